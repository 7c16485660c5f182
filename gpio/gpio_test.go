// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Off a BCM2708 board, Setmode's revision-detection step finds no BCM
// Hardware line in /proc/cpuinfo and fails, exactly as it should on any
// machine this library isn't meant to drive.
func TestSetmode_offBoard(t *testing.T) {
	err := Setmode(false)
	assert.Error(t, err)
}

func TestOutput_requiresSetupFirst(t *testing.T) {
	err := Output(4, High)
	assert.Error(t, err)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "Low", Low.String())
	assert.Equal(t, "High", High.String())
}

func TestPull_String(t *testing.T) {
	assert.Equal(t, "Float", Float.String())
	assert.Equal(t, "Down", Down.String())
	assert.Equal(t, "Up", Up.String())
}
