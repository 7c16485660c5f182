// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpio defines the value types shared by the GPIO and PWM facets:
// logic level and pull resistor configuration.
package gpio

// Level is a logical gpio level. It implements fmt.Stringer.
type Level bool

const (
	// Low represents a low level, 0v.
	Low Level = false
	// High represents a high level, 3.3v on most boards.
	High Level = true
)

func (l Level) String() string {
	if l == Low {
		return "Low"
	}
	return "High"
}

// Pull specifies the internal pull-up/pull-down resistor configuration for
// an input. The BCM2708 exposes exactly these three states; there is no way
// to read back which one is currently active.
type Pull uint8

const (
	// Float leaves the resistor disconnected, also known as hi-z.
	Float Pull = iota
	// Down pulls the line towards 0v (ground) with a weak resistor.
	Down
	// Up pulls the line towards 3.3v with a weak resistor.
	Up
	// PullNoChange leaves the current state of the pin as-is, if it was set
	// previously.
	PullNoChange
)

const pullName = "FloatDownUpPullNoChange"

var pullIndex = [...]uint8{0, 5, 9, 11, 23}

func (p Pull) String() string {
	if int(p) >= len(pullIndex)-1 {
		return "Pull(invalid)"
	}
	return pullName[pullIndex[p]:pullIndex[p+1]]
}
