// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm2708

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"reflect"
	"strconv"
	"strings"

	"rpio.dev/x/rpio/conn/gpio"
	"rpio.dev/x/rpio/host/distro"
	"rpio.dev/x/rpio/host/pmem"
)

// Each pin can have one of 7 functions.
type function uint8

const (
	in   function = 0
	out  function = 1
	alt0 function = 4
	alt1 function = 5
	alt2 function = 6
	alt3 function = 7
	alt4 function = 3
	alt5 function = 2
)

func (f function) String() string {
	switch f {
	case in:
		return "In"
	case out:
		return "Out"
	case alt0:
		return "Alt0"
	case alt1:
		return "Alt1"
	case alt2:
		return "Alt2"
	case alt3:
		return "Alt3"
	case alt4:
		return "Alt4"
	case alt5:
		return "Alt5"
	default:
		return "<invalid>"
	}
}

// Pin is a single BCM2708 GPIO line. Only lines 0-46 have a Pin (see
// cpuPins); lines 47-53 are not modeled, because using them risks immediate
// SD card corruption on boards that route them to the card slot.
type Pin struct {
	number      int
	name        string
	defaultPull gpio.Pull
}

func (p *Pin) String() string { return p.name }

// Number returns the BCM line number, 0-46.
func (p *Pin) Number() int { return p.number }

// DefaultPull returns the pull resistor state the datasheet documents for
// this pin at power-on.
func (p *Pin) DefaultPull() gpio.Pull { return p.defaultPull }

// Function returns the raw 3-bit function-select field: 0 for input, 1 for
// output, 2-7 for one of the six alternate functions.
func (p *Pin) Function() int {
	if gpioMemory == nil {
		return -1
	}
	return int((gpioMemory.functionSelect[p.number/10] >> uint((p.number%10)*3)) & 7)
}

// AltName returns a human name for the currently selected alternate
// function, or "" if the pin isn't in one of the six alt modes or the
// function has no named use on this pin.
func (p *Pin) AltName() string {
	f := function(p.Function())
	var idx int
	switch f {
	case alt0:
		idx = 0
	case alt1:
		idx = 1
	case alt2:
		idx = 2
	case alt3:
		idx = 3
	case alt4:
		idx = 4
	case alt5:
		idx = 5
	default:
		return ""
	}
	if p.number >= len(mapping) {
		return ""
	}
	return mapping[p.number][idx]
}

// SetFunction programs the function-select bits for this pin directly.
// Callers needing glitch-free output transitions must write the desired
// level via SetLevel before calling SetFunction(out); see Engine.Setup in
// internal/engine for that sequencing.
func (p *Pin) SetFunction(in bool) {
	f := out
	if in {
		f = 0
	}
	off := p.number / 10
	shift := uint(p.number%10) * 3
	gpioMemory.functionSelect[off] = (gpioMemory.functionSelect[off] &^ (7 << shift)) | (uint32(f) << shift)
}

// SetLevel drives the pin high or low via the write-only SET/CLR registers.
// Writing affects only this bit; no read-modify-write is needed.
func (p *Pin) SetLevel(l gpio.Level) {
	offset := p.number / 32
	if l == gpio.Low {
		gpioMemory.outputClear[offset] = 1 << uint(p.number&31)
	} else {
		gpioMemory.outputSet[offset] = 1 << uint(p.number&31)
	}
}

// Level reads back the current level from the read-only LEVEL register.
func (p *Pin) Level() gpio.Level {
	if gpioMemory == nil {
		return gpio.Low
	}
	return gpio.Level((gpioMemory.level[p.number/32] & (1 << uint(p.number&31))) != 0)
}

// SetPull programs the pull-up/down resistor per the mandatory datasheet
// handshake: write the desired state to PUD, wait, assert the per-line
// clock bit, wait again, then deassert both.
func (p *Pin) SetPull(pull gpio.Pull) {
	switch pull {
	case gpio.Down:
		gpioMemory.pullEnable = 1
	case gpio.Up:
		gpioMemory.pullEnable = 2
	case gpio.Float:
		gpioMemory.pullEnable = 0
	case gpio.PullNoChange:
		return
	}
	sleep150cycles()
	offset := p.number / 32
	gpioMemory.pullEnableClock[offset] = 1 << uint(p.number%32)
	sleep150cycles()
	gpioMemory.pullEnable = 0
	gpioMemory.pullEnableClock[offset] = 0
}

var gpioMemory *gpioMap

// cpuPins is all 47 exposed pins as supported by the CPU. There is no
// guarantee that each one is actually bonded to a header pin on any given
// board; see the pin-numbering translator for that.
var cpuPins = []Pin{
	{number: 0, name: "GPIO0", defaultPull: gpio.Up},
	{number: 1, name: "GPIO1", defaultPull: gpio.Up},
	{number: 2, name: "GPIO2", defaultPull: gpio.Up},
	{number: 3, name: "GPIO3", defaultPull: gpio.Up},
	{number: 4, name: "GPIO4", defaultPull: gpio.Up},
	{number: 5, name: "GPIO5", defaultPull: gpio.Up},
	{number: 6, name: "GPIO6", defaultPull: gpio.Up},
	{number: 7, name: "GPIO7", defaultPull: gpio.Up},
	{number: 8, name: "GPIO8", defaultPull: gpio.Up},
	{number: 9, name: "GPIO9", defaultPull: gpio.Down},
	{number: 10, name: "GPIO10", defaultPull: gpio.Down},
	{number: 11, name: "GPIO11", defaultPull: gpio.Down},
	{number: 12, name: "GPIO12", defaultPull: gpio.Down},
	{number: 13, name: "GPIO13", defaultPull: gpio.Down},
	{number: 14, name: "GPIO14", defaultPull: gpio.Down},
	{number: 15, name: "GPIO15", defaultPull: gpio.Down},
	{number: 16, name: "GPIO16", defaultPull: gpio.Down},
	{number: 17, name: "GPIO17", defaultPull: gpio.Down},
	{number: 18, name: "GPIO18", defaultPull: gpio.Down},
	{number: 19, name: "GPIO19", defaultPull: gpio.Down},
	{number: 20, name: "GPIO20", defaultPull: gpio.Down},
	{number: 21, name: "GPIO21", defaultPull: gpio.Down},
	{number: 22, name: "GPIO22", defaultPull: gpio.Down},
	{number: 23, name: "GPIO23", defaultPull: gpio.Down},
	{number: 24, name: "GPIO24", defaultPull: gpio.Down},
	{number: 25, name: "GPIO25", defaultPull: gpio.Down},
	{number: 26, name: "GPIO26", defaultPull: gpio.Down},
	{number: 27, name: "GPIO27", defaultPull: gpio.Down},
	{number: 28, name: "GPIO28", defaultPull: gpio.Float},
	{number: 29, name: "GPIO29", defaultPull: gpio.Float},
	{number: 30, name: "GPIO30", defaultPull: gpio.Down},
	{number: 31, name: "GPIO31", defaultPull: gpio.Down},
	{number: 32, name: "GPIO32", defaultPull: gpio.Down},
	{number: 33, name: "GPIO33", defaultPull: gpio.Down},
	{number: 34, name: "GPIO34", defaultPull: gpio.Up},
	{number: 35, name: "GPIO35", defaultPull: gpio.Up},
	{number: 36, name: "GPIO36", defaultPull: gpio.Up},
	{number: 37, name: "GPIO37", defaultPull: gpio.Down},
	{number: 38, name: "GPIO38", defaultPull: gpio.Down},
	{number: 39, name: "GPIO39", defaultPull: gpio.Down},
	{number: 40, name: "GPIO40", defaultPull: gpio.Down},
	{number: 41, name: "GPIO41", defaultPull: gpio.Down},
	{number: 42, name: "GPIO42", defaultPull: gpio.Down},
	{number: 43, name: "GPIO43", defaultPull: gpio.Down},
	{number: 44, name: "GPIO44", defaultPull: gpio.Float},
	{number: 45, name: "GPIO45", defaultPull: gpio.Float},
	{number: 46, name: "GPIO46", defaultPull: gpio.Up},
}

// CPUPins returns a pointer to one of the 47 exposed pins by BCM number, or
// nil if out of range.
func CPUPins(bcm int) *Pin {
	if bcm < 0 || bcm >= len(cpuPins) {
		return nil
	}
	return &cpuPins[bcm]
}

// mapping names the six alternate functions per pin; empty string means
// unused/unnamed. This excludes In/Out, which are named directly.
var mapping = [][6]string{
	{"I2C0_SDA"}, {"I2C0_SCL"}, {"I2C1_SDA"}, {"I2C1_SCL"}, {"GPCLK0"},
	{"GPCLK1"}, {"GPCLK2"}, {"SPI0_CS1"}, {"SPI0_CS0"}, {"SPI0_MISO"},
	{"SPI0_MOSI"}, {"SPI0_CLK"}, {"PWM0_OUT"}, {"PWM1_OUT"},
	{"UART0_TXD", "", "", "", "", "UART1_TXD"},
	{"UART0_RXD", "", "", "", "", "UART1_RXD"},
	{"", "", "", "UART0_CTS", "SPI1_CS2", "UART1_CTS"},
	{"", "", "", "UART0_RTS", "SPI1_CS1", "UART1_RTS"},
	{"PCM_CLK", "", "", "", "SPI1_CS0", "PWM0_OUT"},
	{"PCM_FS", "", "", "", "SPI1_MISO", "PWM1_OUT"},
	{"PCM_DIN", "", "", "", "SPI1_MOSI", "GPCLK0"},
	{"PCM_DOUT", "", "", "", "SPI1_CLK", "GPCLK1"},
	{""}, {""}, {""}, {""}, {""}, {""},
	{"I2C0_SDA", "", "PCM_CLK", "", "", ""},
	{"I2C0_SCL", "", "PCM_FS", "", "", ""},
	{"", "", "PCM_DIN", "UART0_CTS", "", "UART1_CTS"},
	{"", "", "PCM_DOUT", "UART0_RTS", "", "UART1_RTS"},
	{"GPCLK0", "", "", "UART0_TXD", "", "UART1_TXD"},
	{"", "", "", "UART0_RXD", "", "UART1_RXD"},
	{"GPCLK0"}, {"SPI0_CS1"},
	{"SPI0_CS0", "", "UART0_TXD", "", "", ""},
	{"SPI0_MISO", "", "UART0_RXD", "", "", ""},
	{"SPI0_MOSI", "", "UART0_RTS", "", "", ""},
	{"SPI0_CLK", "", "UART0_CTS", "", "", ""},
	{"PWM0_OUT", "", "", "", "SPI2_MISO", "UART1_TXD"},
	{"PWM1_OUT", "", "", "", "SPI2_MOSI", "UART1_RXD"},
	{"GPCLK1", "", "", "", "SPI2_CLK", "UART1_RTS"},
	{"GPCLK2", "", "", "", "SPI2_CS0", "UART1_CTS"},
	{"GPCLK1", "I2C0_SDA", "I2C1_SDA", "", "SPI2_CS1", ""},
	{"PWM1_OUT", "I2C0_SCL", "I2C1_SCL", "", "SPI2_CS2", ""},
	{""},
}

// gpioMap is the memory mapped GPIO register bank.
//
// https://www.raspberrypi.org/wp-content/uploads/2012/02/BCM2835-ARM-Peripherals.pdf
// pages 90-91.
type gpioMap struct {
	functionSelect [6]uint32 // 0x00-0x14 GPFSEL0-5
	dummy0         uint32    // 0x18
	outputSet      [2]uint32 // 0x1C-0x20 GPSET0-1
	dummy1         uint32    // 0x24
	outputClear    [2]uint32 // 0x28-0x2C GPCLR0-1
	dummy2         uint32    // 0x30
	level          [2]uint32 // 0x34-0x38 GPLEV0-1
	dummy3         uint32    // 0x3C

	eventDetectStatus           [2]uint32 // 0x40-0x44 GPEDS0-1
	dummy4                      uint32    // 0x48
	risingEdgeDetectEnable      [2]uint32 // 0x4C-0x50 GPREN0-1
	dummy5                      uint32    // 0x54
	fallingEdgeDetectEnable     [2]uint32 // 0x58-0x5C GPFEN0-1
	dummy6                      uint32    // 0x60
	highDetectEnable            [2]uint32 // 0x64-0x68 GPHEN0-1
	dummy7                      uint32    // 0x6C
	lowDetectEnable             [2]uint32 // 0x70-0x74 GPLEN0-1
	dummy8                      uint32    // 0x78
	asyncRisingEdgeDetectEnable [2]uint32 // 0x7C-0x80 GPAREN0-1
	dummy9                      uint32    // 0x84
	asyncFallingEdgeDetectEnable [2]uint32 // 0x88-0x8C GPAFEN0-1
	dummy10                      uint32    // 0x90

	pullEnable      uint32    // 0x94 GPPUD (00=Float, 01=Down, 10=Up)
	pullEnableClock [2]uint32 // 0x98-0x9C GPPUDCLK0-1
	dummy11         uint32    // 0xA0
}

// Present reports whether the running kernel reports a Broadcom BCM2708
// family CPU via /proc/cpuinfo.
func Present() bool {
	hardware, ok := distro.CPUInfo()["Hardware"]
	return ok && strings.HasPrefix(hardware, "BCM")
}

// Changing the pull resistor requires a minimum 150 cycle delay per the
// datasheet. Do not inline so the temporary isn't optimized out; the
// register read itself is the delay, not the accumulation.
//
//go:noinline
func sleep150cycles() uint32 {
	var out uint32
	for i := 0; i < 150; i++ {
		out += gpioMemory.functionSelect[0]
	}
	return out
}

// getBaseAddress queries the virtual file system to retrieve the base
// physical address of the GPIO registers, falling back to the documented
// default if the pinctrl driver isn't found under sysfs.
func getBaseAddress() uint64 {
	items, _ := ioutil.ReadDir("/sys/bus/platform/drivers/pinctrl-bcm2835/")
	for _, item := range items {
		if item.Mode()&os.ModeSymlink != 0 {
			parts := strings.SplitN(path.Base(item.Name()), ".", 2)
			if len(parts) != 2 {
				continue
			}
			base, err := strconv.ParseUint(parts[0], 16, 64)
			if err != nil {
				continue
			}
			return base
		}
	}
	return 0x20200000
}

// MapGPIO mmaps the GPIO register bank (Component A) and initializes the
// package-level register handle used by every Pin method.
func MapGPIO() error {
	if !Present() {
		return fmt.Errorf("bcm2708: CPU not detected")
	}
	m, err := pmem.MapGPIO()
	if err != nil {
		var err2 error
		m, err2 = pmem.Map(getBaseAddress(), 4096)
		if err2 != nil {
			if os.IsPermission(err2) {
				return fmt.Errorf("bcm2708: need more access, try as root: %w", err)
			}
			return err2
		}
	}
	return m.Struct(reflect.ValueOf(&gpioMemory))
}
