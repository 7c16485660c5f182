// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpio is the public facet of Components B/C/D: general-purpose
// digital I/O on a BCM2708-class board, addressed by either BCM or header
// pin numbering.
package gpio

import (
	"rpio.dev/x/rpio/conn/gpio"
	"rpio.dev/x/rpio/internal/engine"
)

// Re-exported value types, so callers only need to import this package for
// common use.
type (
	Level = gpio.Level
	Pull  = gpio.Pull
)

const (
	Low  = gpio.Low
	High = gpio.High

	Float        = gpio.Float
	Down         = gpio.Down
	Up           = gpio.Up
	PullNoChange = gpio.PullNoChange
)

// Mode is the direction a channel is configured for.
type Mode int

const (
	Input Mode = iota
	Output
)

func toEngineMode(m Mode) engine.PinMode {
	if m == Output {
		return engine.ModeOutput
	}
	return engine.ModeInput
}

// BCM and Board select the numbering scheme subsequent calls interpret their
// channel argument in. BCM addresses a line directly by its SoC GPIO number;
// Board addresses it by its position on the 26-pin P1 header, which varies
// between board revisions (Component C's translation table).
func Setmode(board bool) error {
	n := engine.BCM
	if board {
		n = engine.Board
	}
	return engine.Get().Setmode(n)
}

// Setup configures channel as Input or Output. pull is only meaningful for
// Input; pass PullNoChange to leave the resistor alone. initial, if
// non-nil, is driven before the pin is switched to output, avoiding a
// glitch through whatever level it held as an input.
func Setup(channel int, mode Mode, pull Pull, initial *Level) error {
	return engine.Get().Setup(channel, toEngineMode(mode), pull, initial)
}

// Output drives channel, which must already be configured as Output.
func Output(channel int, level Level) error {
	return engine.Get().Output(channel, level)
}

// Input reads back channel's current level.
func Input(channel int) (Level, error) {
	return engine.Get().Input(channel)
}

// GPIOFunction returns the raw function-select value of channel, bypassing
// this process's own direction bookkeeping.
func GPIOFunction(channel int) (int, error) {
	return engine.Get().GPIOFunction(channel)
}

// SetPullUpDn programs channel's pull resistor directly, independent of its
// configured direction.
func SetPullUpDn(channel int, pull Pull) error {
	return engine.Get().SetPullUpDn(channel, pull)
}

// ForceOutput drives channel without checking or updating the direction
// bookkeeping table. Intended for callers, such as the pwm package, that
// manage a line's direction themselves.
func ForceOutput(channel int, level Level) error {
	return engine.Get().ForceOutput(channel, level)
}

// ForceInput reads channel without checking the direction bookkeeping
// table.
func ForceInput(channel int) (Level, error) {
	return engine.Get().ForceInput(channel)
}

// SetWarnings toggles the claimed-function warning logged the first time
// Setup reconfigures a line away from a non-default function. Defaults to
// on.
func SetWarnings(on bool) {
	engine.Get().SetWarnings(on)
}

// Cleanup restores every channel this process configured back to input.
func Cleanup() {
	engine.Get().CleanupGPIO()
}
