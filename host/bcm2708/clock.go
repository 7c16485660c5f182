// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm2708

import "time"

const (
	// 31:24 password
	passwdCtl clockCtl = 0x5A << 24 // PASSWD
	// 23:11 reserved
	mashMask clockCtl = 3 << 9 // MASH
	mash0    clockCtl = 0 << 9 // src_freq / divI  (ignores divF)
	mash1    clockCtl = 1 << 9
	mash2    clockCtl = 2 << 9
	mash3    clockCtl = 3 << 9 // will cause higher spread
	flip     clockCtl = 1 << 8 // FLIP
	busy     clockCtl = 1 << 7 // BUSY
	// 6 reserved
	kill          clockCtl = 1 << 5   // KILL
	enabClk       clockCtl = 1 << 4   // ENAB
	srcMask       clockCtl = 0xF << 0 //SRC
	srcGND        clockCtl = 0        // 0Hz
	srcOscillator clockCtl = 1        // 19.2MHz
	srcTestDebug0 clockCtl = 2        // 0Hz
	srcTestDebug1 clockCtl = 3        // 0Hz
	srcPLLA       clockCtl = 4        // 0Hz
	srcPLLC       clockCtl = 5        // 1000MHz (changes with overclock settings)
	srcPLLD       clockCtl = 6        // 500MHz
	srcHDMI       clockCtl = 7        // 216MHz
	// 8-15 == GND.
)

// clockCtl controls the clock properties.
//
// It must not be changed while busy is set or a glitch may occur.
//
// Page 107
type clockCtl uint32

const (
	// 31:24 password
	passwdDiv clockDiv = 0x5A << 24 // PASSWD
	// Integer part of the divisor
	diviShift          = 12
	diviMax   clockDiv = (1 << 12) - 1
	diviMask  clockDiv = diviMax << diviShift // DIVI
	// Fractional part of the divisor
	divfMask clockDiv = (1 << 12) - 1 // DIVF
)

// clockDiv is a 12.12 fixed point value.
//
// Page 108
type clockDiv uint32

// clockMap is the memory mapped clock manager register bank (Component A),
// covering only the two clock generators the pacer uses: PCM at 0x98-0x9C
// and PWM at 0xA0-0xA4. The many other CM_* generators (GP0-2, UART, etc)
// are out of scope for this driver and left unmapped via padding.
//
// Page 105.
type clockMap struct {
	padding0 [0x98]byte
	pcmCtl   clockCtl // 0x98 CM_PCMCTL
	pcmDiv   clockDiv // 0x9C CM_PCMDIV
	pwmCtl   clockCtl // 0xA0 CM_PWMCTL
	pwmDiv   clockDiv // 0xA4 CM_PWMDIV
}

var clockMemory *clockMap

// MapClock mmaps the clock manager register bank.
func MapClock() error {
	return mapPeripheral(clockBase, 0xA8, &clockMemory)
}

// clockDivider is the integer divisor applied to PLLD (500MHz) to reach the
// pacer's 10MHz base; every tick is then `pulse_width_incr_us*10` cycles of
// that base, per §4.I.
const clockDivider = 50

// settleDelay separates successive clock/pacer register writes, per the
// datasheet's 10-100us settle requirement (§4.I). Setup-path only.
const settleDelay = 100 * time.Microsecond

// setClockSource programs one of the two pacer clock generators to run from
// PLLD/50 = 10MHz, following the datasheet's kill-then-set-then-enable
// sequence; ctl/div point at either the PCM or PWM generator's pair of
// registers.
func setClockSource(ctl *clockCtl, div *clockDiv) {
	*ctl = passwdCtl | kill
	time.Sleep(settleDelay)
	*div = passwdDiv | clockDiv(clockDivider<<diviShift)
	*ctl = passwdCtl | srcPLLD
	time.Sleep(settleDelay)
	*ctl = passwdCtl | srcPLLD | enabClk
	time.Sleep(settleDelay)
}

// SetPWMClockSource brings up the PWM generator's clock at 10MHz.
func SetPWMClockSource() {
	setClockSource(&clockMemory.pwmCtl, &clockMemory.pwmDiv)
}

// SetPCMClockSource brings up the PCM generator's clock at 10MHz.
func SetPCMClockSource() {
	setClockSource(&clockMemory.pcmCtl, &clockMemory.pcmDiv)
}
