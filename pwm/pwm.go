// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pwm is the public facet of Components F/G/H/I/J: a software PWM
// engine that streams prepared GPIO SET/CLR bit masks through the DMA
// controller, paced by the PWM or PCM peripheral's DREQ line.
package pwm

import (
	"go.uber.org/zap/zapcore"

	"rpio.dev/x/rpio/internal/engine"
)

// Pacer selects which peripheral produces the DMA pacing DREQ.
type Pacer = engine.Pacer

const (
	PWM = engine.PacerPWM
	PCM = engine.PacerPCM
)

// Setup brings the DMA engine's pacer online at the given tick resolution,
// in microseconds. It is one-shot: a second call without an intervening
// Cleanup fails.
func Setup(tickUs int, pacer Pacer) error {
	return engine.Get().PWMSetup(tickUs, pacer)
}

// Cleanup halts every initialized channel and stops the pacer. Idempotent.
func Cleanup() {
	engine.Get().Shutdown()
}

// IsSetup reports whether Setup has run without a matching Cleanup.
func IsSetup() bool {
	return engine.Get().IsSetup()
}

// GetPulseIncrUs returns the tick length Setup was configured with.
func GetPulseIncrUs() int {
	return engine.Get().GetPulseIncrUs()
}

// InitChannel allocates DMA engine channel and brings it online with a
// subcycle (the full PWM period) subcycleUs microseconds long. subcycleUs
// must be at least 3000 and at least one tick.
func InitChannel(channel, subcycleUs int) error {
	return engine.Get().InitChannel(channel, subcycleUs)
}

// IsChannelInitialized reports whether channel currently owns a live DMA
// program.
func IsChannelInitialized(channel int) bool {
	return engine.Get().IsChannelInitialized(channel)
}

// GetChannelSubcycleTimeUs returns channel's actual subcycle length, which
// may differ slightly from the value passed to InitChannel due to integer
// tick rounding.
func GetChannelSubcycleTimeUs(channel int) (int, error) {
	return engine.Get().GetChannelSubcycleTimeUs(channel)
}

// AddChannelPulse schedules a single high pulse for bcmGPIO within channel's
// subcycle, starting at startTick and lasting widthTicks ticks. The first
// time a GPIO is referenced on any channel it is claimed and configured as
// output, driven low.
func AddChannelPulse(channel, bcmGPIO, startTick, widthTicks int) error {
	return engine.Get().AddPulse(channel, bcmGPIO, startTick, widthTicks)
}

// ClearChannel removes every scheduled pulse from channel, returning it to
// a steady low output.
func ClearChannel(channel int) error {
	return engine.Get().ClearChannel(channel)
}

// ClearChannelGPIO removes bcmGPIO's pulses from channel without disturbing
// any other GPIO multiplexed onto it.
func ClearChannelGPIO(channel, bcmGPIO int) error {
	return engine.Get().ClearChannelGPIO(channel, bcmGPIO)
}

// PrintChannel logs a diagnostic dump of channel's current configuration:
// its subcycle length, sample count, page count, and the GPIOs it drives.
func PrintChannel(channel int) error {
	return engine.Get().PrintChannel(channel)
}

// SetLogLevel adjusts the minimum level the PWM engine's logger emits at.
// The engine is quiet (WarnLevel) by default.
func SetLogLevel(level zapcore.Level) {
	engine.Get().SetLogLevel(level)
}

// SetSoftFatal toggles whether an internal fatal condition panics the
// process (the default) or is recorded for LastFatalError instead.
func SetSoftFatal(soft bool) {
	engine.Get().SetSoftFatal(soft)
}

// LastFatalError returns the message recorded by the most recent
// soft-fatal condition, or "" if none occurred.
func LastFatalError() string {
	return engine.Get().LastFatalError()
}
