// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm2708

import (
	"reflect"

	"rpio.dev/x/rpio/host/pmem"
)

// Peripheral base addresses, ARM physical view (as seen through /dev/mem).
// The BCM2708/BCM2835 peripheral block starts at 0x20000000 on every rev1/
// rev2 board; getBaseAddress() only overrides the GPIO base, since that's the
// one peripheral the pinctrl driver also exposes under sysfs.
const (
	dmaBase   = 0x20007000
	clockBase = 0x20101000
	pwmBase   = 0x2020C000
	pcmBase   = 0x20203000
)

// Bus-view equivalents (OR 0x7e000000 over the low 28 bits), the addresses
// the DMA engine itself must be told to read or write, as opposed to the
// addresses this process maps via /dev/mem.
const (
	busGPIOSet0 = 0x7e200000 + 0x1c
	busGPIOClr0 = 0x7e200000 + 0x28
	busPWMFIFO  = 0x7e20c000 + 0x18
	busPCMFIFO  = 0x7e203000 + 0x04
)

// mapPeripheral mmaps size bytes of physical memory starting at base and
// points pp (a pointer to a pointer to struct) at it.
func mapPeripheral(base uint64, size int, pp interface{}) error {
	m, err := pmem.Map(base, size)
	if err != nil {
		return err
	}
	return m.Struct(reflect.ValueOf(pp))
}
