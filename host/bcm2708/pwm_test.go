// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm2708

import "testing"

func TestStartPWMPacer(t *testing.T) {
	clockMemory = &clockMap{}
	pwmMemory = &pwmMap{}
	StartPWMPacer(10)
	if pwmMemory.rng1 != 100 {
		t.Fatalf("rng1 = %d, want 100 (10us tick * 10)", pwmMemory.rng1)
	}
	if pwmMemory.ctl&(usef1|pwen1) != usef1|pwen1 {
		t.Fatalf("ctl = 0x%x, want USEF1|PWEN1 set", uint32(pwmMemory.ctl))
	}
	StopPWMPacer()
	if pwmMemory.ctl != 0 {
		t.Fatalf("ctl after StopPWMPacer = 0x%x, want 0", uint32(pwmMemory.ctl))
	}
}
