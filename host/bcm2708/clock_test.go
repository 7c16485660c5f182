// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm2708

import "testing"

func TestSetClockSource(t *testing.T) {
	clockMemory = &clockMap{}
	SetPWMClockSource()
	if clockMemory.pwmCtl&enabClk == 0 {
		t.Fatal("PWM clock generator should end up enabled")
	}
	if clockMemory.pwmCtl&srcPLLD == 0 {
		t.Fatal("PWM clock generator should be sourced from PLLD")
	}
	wantDiv := passwdDiv | clockDiv(clockDivider<<diviShift)
	if clockMemory.pwmDiv != wantDiv {
		t.Fatalf("pwmDiv = 0x%x, want 0x%x", uint32(clockMemory.pwmDiv), uint32(wantDiv))
	}

	SetPCMClockSource()
	if clockMemory.pcmCtl&enabClk == 0 {
		t.Fatal("PCM clock generator should end up enabled")
	}
}

func TestClockDivider(t *testing.T) {
	// 500MHz PLLD / 50 == 10MHz, the pacer's documented base clock.
	if 500/clockDivider != 10 {
		t.Fatalf("clockDivider = %d does not yield a 10MHz base from PLLD", clockDivider)
	}
}
