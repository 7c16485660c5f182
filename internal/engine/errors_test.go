package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		DeviceAccess:       "device-access",
		Allocation:         "allocation",
		Mmap:               "mmap",
		PageNotPresent:     "page-not-present",
		AlreadySetup:       "already-setup",
		NotSetup:           "not-setup",
		ChannelRange:       "invalid-channel",
		ChannelNotInit:     "uninitialized",
		ChannelAlreadyInit: "reinit",
		WidthRange:         "width",
		SubcycleRange:      "subcycle",
		GPIONotSetup:       "gpio-not-setup",
		ModeNotSet:         "mode-not-set",
		InvalidArg:         "invalid-arg",
		WrongDirection:     "direction",
		Kind(999):          "unknown",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}

func TestNewf_and_Wrap(t *testing.T) {
	err := Newf("add_pulse", WidthRange, "start %d exceeds %d samples", 10, 5)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "add_pulse", e.Op)
	assert.Equal(t, WidthRange, e.Kind)
	assert.Contains(t, err.Error(), "width")
	assert.Contains(t, err.Error(), "start 10 exceeds 5 samples")

	cause := errors.New("boom")
	wrapped := Wrap("setup", Mmap, cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "mmap")
}
