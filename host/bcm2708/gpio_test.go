// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm2708

import "testing"

func TestCPUPins_range(t *testing.T) {
	if CPUPins(-1) != nil {
		t.Fatal("negative BCM line should return nil")
	}
	if CPUPins(len(cpuPins)) != nil {
		t.Fatal("out-of-range BCM line should return nil")
	}
	p := CPUPins(17)
	if p == nil || p.Number() != 17 {
		t.Fatalf("CPUPins(17) = %v, want a pin numbered 17", p)
	}
}

func TestPin_FunctionUnmapped(t *testing.T) {
	gpioMemory = nil
	p := CPUPins(4)
	if f := p.Function(); f != -1 {
		t.Fatalf("Function() before MapGPIO = %d, want -1", f)
	}
}

func TestFunction_String(t *testing.T) {
	cases := map[function]string{
		in: "In", out: "Out", alt0: "Alt0", alt5: "Alt5",
		function(99): "<invalid>",
	}
	for f, want := range cases {
		if got := f.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", f, got, want)
		}
	}
}

func TestPin_AltName(t *testing.T) {
	gpioMemory = &gpioMap{}
	p := CPUPins(2)
	// function-select starts at 0 (In), so AltName is empty until a real
	// register bank reports an alt function.
	if name := p.AltName(); name != "" {
		t.Fatalf("AltName() on an unconfigured pin = %q, want empty", name)
	}
}
