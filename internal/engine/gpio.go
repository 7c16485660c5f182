package engine

import (
	"rpio.dev/x/rpio/conn/gpio"
	"rpio.dev/x/rpio/host/bcm2708"
)

// Setmode selects the numbering scheme used by every subsequent GPIO facet
// call and, on first use, detects the board revision needed to translate
// board-numbered pins. It may be called more than once to switch modes.
func (e *Engine) Setmode(n Numbering) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.revision == 0 && e.numbering == NumberingUnset {
		rev, err := DetectRevision()
		if err != nil {
			return err
		}
		if rev <= RevisionNotPi {
			return Newf("setmode", DeviceAccess, "no usable BCM2708 board detected (classification %d)", rev)
		}
		e.revision = rev
	}
	e.numbering = n
	return nil
}

// translate converts a caller-supplied channel number to a BCM line per the
// engine's current numbering mode, failing with ModeNotSet if Setmode was
// never called.
func (e *Engine) translate(channel int) (int, error) {
	if e.numbering == NumberingUnset {
		return 0, Newf("gpio", ModeNotSet, "call Setmode before any GPIO operation")
	}
	if e.numbering == BCM {
		if channel < 0 || channel >= numBCMLines {
			return 0, Newf("gpio", ChannelRange, "BCM line %d out of range", channel)
		}
		return channel, nil
	}
	return BoardToBCM(e.revision, channel)
}

// Setup configures channel as input or output, per Component B/D, folding in
// the two SUPPLEMENTED FEATURES recovered from py_setup_channel: a
// claimed-function warning when the line already shows a non-default
// function, and output-before-mode-change glitch avoidance when an initial
// level is given.
func (e *Engine) Setup(channel int, mode PinMode, pull gpio.Pull, initial *gpio.Level) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	bcmLine, err := e.translate(channel)
	if err != nil {
		return err
	}
	if mode != ModeInput && mode != ModeOutput {
		return Newf("setup", InvalidArg, "invalid direction %d", mode)
	}
	if err := e.ensureGPIOMapped(); err != nil {
		return err
	}
	pin := bcm2708.CPUPins(bcmLine)
	if pin == nil {
		return Newf("setup", ChannelRange, "BCM line %d has no CPU pin", bcmLine)
	}
	if e.warnings && e.pinMode[bcmLine] == Unconfigured {
		if f := pin.Function(); f != 0 {
			e.log.Warnf("gpio: BCM%d already in a non-default function (%d); claiming it for %v", bcmLine, f, mode)
		}
	}
	if mode == ModeOutput && initial != nil {
		// Glitch avoidance: drive the requested level before flipping
		// function-select to output, so the pin never transits through
		// whatever level it held as an input.
		pin.SetLevel(*initial)
		pin.SetFunction(false)
	} else if mode == ModeOutput {
		pin.SetFunction(false)
	} else {
		if pull != gpio.PullNoChange {
			pin.SetPull(pull)
		}
		pin.SetFunction(true)
	}
	e.pinMode[bcmLine] = mode
	return nil
}

// Output drives channel, which must already be configured as output.
func (e *Engine) Output(channel int, level gpio.Level) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	bcmLine, err := e.translate(channel)
	if err != nil {
		return err
	}
	if e.pinMode[bcmLine] != ModeOutput {
		return Newf("output", WrongDirection, "BCM%d is not configured as output", bcmLine)
	}
	bcm2708.CPUPins(bcmLine).SetLevel(level)
	return nil
}

// Input reads back channel, which must already be configured as input or
// output (an output pin reads back its own driven level).
func (e *Engine) Input(channel int) (gpio.Level, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bcmLine, err := e.translate(channel)
	if err != nil {
		return gpio.Low, err
	}
	if e.pinMode[bcmLine] == Unconfigured {
		return gpio.Low, Newf("input", WrongDirection, "BCM%d was never configured", bcmLine)
	}
	return bcm2708.CPUPins(bcmLine).Level(), nil
}

// GPIOFunction returns the raw function-select field for channel, bypassing
// this process's own bookkeeping (another process may have reprogrammed
// it).
func (e *Engine) GPIOFunction(channel int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bcmLine, err := e.translate(channel)
	if err != nil {
		return 0, err
	}
	if err := e.ensureGPIOMapped(); err != nil {
		return 0, err
	}
	pin := bcm2708.CPUPins(bcmLine)
	if pin == nil {
		return 0, Newf("gpio_function", ChannelRange, "BCM line %d has no CPU pin", bcmLine)
	}
	return pin.Function(), nil
}

// SetPullUpDn programs the pull resistor directly, independent of direction.
func (e *Engine) SetPullUpDn(channel int, pull gpio.Pull) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	bcmLine, err := e.translate(channel)
	if err != nil {
		return err
	}
	if err := e.ensureGPIOMapped(); err != nil {
		return err
	}
	pin := bcm2708.CPUPins(bcmLine)
	if pin == nil {
		return Newf("set_pullupdn", ChannelRange, "BCM line %d has no CPU pin", bcmLine)
	}
	pin.SetPull(pull)
	return nil
}

// ForceOutput drives channel high or low without checking or updating the
// pin-mode table, the escape hatch force_output/force_input of §6 give
// callers who manage direction themselves (e.g. the PWM engine, which
// claims lines outside the GPIO facet's own bookkeeping).
func (e *Engine) ForceOutput(channel int, level gpio.Level) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	bcmLine, err := e.translate(channel)
	if err != nil {
		return err
	}
	if err := e.ensureGPIOMapped(); err != nil {
		return err
	}
	pin := bcm2708.CPUPins(bcmLine)
	if pin == nil {
		return Newf("force_output", ChannelRange, "BCM line %d has no CPU pin", bcmLine)
	}
	pin.SetLevel(level)
	return nil
}

// ForceInput reads channel without checking the pin-mode table.
func (e *Engine) ForceInput(channel int) (gpio.Level, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bcmLine, err := e.translate(channel)
	if err != nil {
		return gpio.Low, err
	}
	if err := e.ensureGPIOMapped(); err != nil {
		return gpio.Low, err
	}
	pin := bcm2708.CPUPins(bcmLine)
	if pin == nil {
		return gpio.Low, Newf("force_input", ChannelRange, "BCM line %d has no CPU pin", bcmLine)
	}
	return pin.Level(), nil
}

// SetWarnings toggles the claimed-function warning (default on).
func (e *Engine) SetWarnings(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warnings = on
}

// CleanupGPIO restores every BCM line this process configured to input,
// satisfying the cleanup-completeness property (§8 property 2). Idempotent:
// a line already Unconfigured is skipped.
func (e *Engine) CleanupGPIO() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.gpioMapped {
		return
	}
	for bcmLine, mode := range e.pinMode {
		if mode == Unconfigured {
			continue
		}
		if pin := bcm2708.CPUPins(bcmLine); pin != nil {
			pin.SetFunction(true)
		}
		e.pinMode[bcmLine] = Unconfigured
	}
}
