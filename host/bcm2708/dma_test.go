// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm2708

import "testing"

func TestEncodeControlBlock_roundTrip(t *testing.T) {
	cb := make([]byte, ControlBlockSize)
	EncodeControlBlock(cb, CBNoWideBursts|CBWaitResp, 0x1000, 0x2000, 4, 0, 0x3000)
	if got := ControlBlockDest(cb); got != 0x2000 {
		t.Fatalf("dest = 0x%x, want 0x2000", got)
	}
	SetControlBlockDest(cb, BusGPIOSet0)
	if got := ControlBlockDest(cb); got != BusGPIOSet0 {
		t.Fatalf("dest after SetControlBlockDest = 0x%x, want 0x%x", got, BusGPIOSet0)
	}
}

func TestEncodeControlBlock_size(t *testing.T) {
	if ControlBlockSize != 32 {
		t.Fatalf("ControlBlockSize = %d, want 32", ControlBlockSize)
	}
	cb := make([]byte, ControlBlockSize)
	// Must not panic writing to every byte of a minimally sized block.
	EncodeControlBlock(cb, 0, 0, 0, 0, 0, 0)
}

func TestDMAChannel_IsAvailable(t *testing.T) {
	var d DMAChannel
	if !d.IsAvailable() {
		t.Fatal("zero-value channel should be available")
	}
	d.Start(0x1000)
	if d.IsAvailable() {
		t.Fatal("started channel should not be available")
	}
	d.Halt()
	if d.cbAddr != 0x1000 {
		t.Fatal("Halt must not clear cbAddr on its own; only CS is reset")
	}
}

func TestDMAChannel_HasError(t *testing.T) {
	var d DMAChannel
	if err := d.HasError(); err != nil {
		t.Fatalf("zero-value channel reported an error: %v", err)
	}
	d.debug = dmaReadError
	if err := d.HasError(); err == nil {
		t.Fatal("expected a read error")
	}
}

func TestChannel_unmapped(t *testing.T) {
	if Channel(0) != nil {
		t.Fatal("Channel before MapDMA should be nil")
	}
}
