// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bcm2708 exposes the BCM2708 (Raspberry Pi rev1/rev2) peripheral
// register layout: GPIO pin manipulation, the DMA controller, and the PWM/
// PCM/clock-manager registers used to pace a DMA-driven software PWM
// engine. Edge-triggered interrupt detection is out of scope; see
// internal/engine for the higher-level GPIO and PWM facets built on top of
// this package.
//
// Datasheet
//
// https://www.raspberrypi.org/wp-content/uploads/2012/02/BCM2835-ARM-Peripherals.pdf
//
// Its crowd-sourced errata: http://elinux.org/BCM2835_datasheet_errata
//
// Another doc about PCM and PWM:
// https://fr.scribd.com/doc/127599939/BCM2835-Audio-clocks
package bcm2708
