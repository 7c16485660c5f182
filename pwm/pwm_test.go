// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pwm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Off a BCM2708 board, Setup's GPIO-mapping step fails before it ever
// touches the DMA/PWM/PCM peripherals.
func TestSetup_offBoard(t *testing.T) {
	err := Setup(10, PWM)
	assert.Error(t, err)
	assert.False(t, IsSetup())
}

func TestInitChannel_requiresSetup(t *testing.T) {
	err := InitChannel(0, 20000)
	assert.Error(t, err)
}

func TestIsChannelInitialized_falseByDefault(t *testing.T) {
	assert.False(t, IsChannelInitialized(3))
}

func TestSoftFatal_defaultsEmpty(t *testing.T) {
	assert.Equal(t, "", LastFatalError())
}

func TestCleanup_idempotent(t *testing.T) {
	assert.NotPanics(t, Cleanup)
	assert.NotPanics(t, Cleanup)
}
