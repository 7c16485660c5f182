package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitChannel_validation(t *testing.T) {
	e := &Engine{}

	err := e.InitChannel(-1, 20000)
	require.Error(t, err)

	err = e.InitChannel(0, 20000)
	require.Error(t, err)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, NotSetup, ee.Kind)

	e.pwmSetupDone = true
	e.tickUs = 10
	err = e.InitChannel(0, 100)
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, SubcycleRange, ee.Kind)

	e.channels[0] = &Channel{}
	err = e.InitChannel(0, 20000)
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ChannelAlreadyInit, ee.Kind)
}

func TestAddPulse_channelOutOfRange(t *testing.T) {
	e := &Engine{}
	err := e.AddPulse(99, 17, 0, 10)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ChannelRange, ee.Kind)
}

func TestAddPulse_channelNotInit(t *testing.T) {
	e := &Engine{}
	err := e.AddPulse(0, 17, 0, 10)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ChannelNotInit, ee.Kind)
}

func TestAddPulse_gpioRange(t *testing.T) {
	e := &Engine{}
	e.channels[0] = &Channel{numSamples: 2000, gpios: map[int]bool{}}
	err := e.AddPulse(0, 99, 0, 10)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, InvalidArg, ee.Kind)
}

func TestAddPulse_widthRange(t *testing.T) {
	e := &Engine{}
	e.channels[0] = &Channel{numSamples: 2000, gpios: map[int]bool{}}
	err := e.AddPulse(0, 17, 1999, 2)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, WidthRange, ee.Kind)
}

func TestClearChannelGPIO_requiresClaimed(t *testing.T) {
	e := &Engine{}
	e.channels[0] = &Channel{numSamples: 10, gpios: map[int]bool{}}
	err := e.ClearChannelGPIO(0, 17)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, GPIONotSetup, ee.Kind)
}

func TestIsChannelInitialized(t *testing.T) {
	e := &Engine{}
	assert.False(t, e.IsChannelInitialized(0))
	e.channels[0] = &Channel{}
	assert.True(t, e.IsChannelInitialized(0))
	assert.False(t, e.IsChannelInitialized(-1))
	assert.False(t, e.IsChannelInitialized(len(e.channels)))
}

func TestGetChannelSubcycleTimeUs(t *testing.T) {
	e := &Engine{}
	_, err := e.GetChannelSubcycleTimeUs(0)
	assert.Error(t, err)

	e.channels[0] = &Channel{numSamples: 2000, tickUs: 10}
	got, err := e.GetChannelSubcycleTimeUs(0)
	require.NoError(t, err)
	assert.Equal(t, 20000, got)
}

func TestPrintChannel_requiresInit(t *testing.T) {
	e := &Engine{log: Get().log}
	err := e.PrintChannel(0)
	assert.Error(t, err)
}
