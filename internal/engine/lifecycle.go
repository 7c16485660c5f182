package engine

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"rpio.dev/x/rpio/host/bcm2708"
)

// sleepSubcycle blocks for one full subcycle, the time the DMA engine needs
// to observe a CB-destination edit made on the caller's behalf (§4.H, §4.J).
func sleepSubcycle(ch *Channel) {
	time.Sleep(time.Duration(ch.numSamples*ch.tickUs) * time.Microsecond)
}

// PWMSetup brings the DMA pacer online, per Component I. It is one-shot:
// a second call without an intervening Shutdown fails AlreadySetup.
func (e *Engine) PWMSetup(tickUs int, pacer Pacer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pwmSetupDone {
		return Newf("setup", AlreadySetup, "pwm engine is already set up")
	}
	if tickUs <= 0 {
		return Newf("setup", InvalidArg, "tick must be a positive number of microseconds")
	}
	if err := e.ensureGPIOMapped(); err != nil {
		return err
	}
	if err := bcm2708.MapDMA(); err != nil {
		return Wrap("setup", Mmap, err)
	}
	if err := bcm2708.MapClock(); err != nil {
		return Wrap("setup", Mmap, err)
	}
	switch pacer {
	case PacerPWM:
		if err := bcm2708.MapPWM(); err != nil {
			return Wrap("setup", Mmap, err)
		}
		bcm2708.StartPWMPacer(tickUs)
	case PacerPCM:
		if err := bcm2708.MapPCM(); err != nil {
			return Wrap("setup", Mmap, err)
		}
		bcm2708.StartPCMPacer(tickUs)
	default:
		return Newf("setup", InvalidArg, "unknown pacer %d", pacer)
	}
	e.tickUs = tickUs
	e.pacer = pacer
	e.pacerStarted = true
	e.pwmSetupDone = true
	e.installSignalTrap()
	return nil
}

// IsSetup reports whether PWMSetup has run without a matching Shutdown.
func (e *Engine) IsSetup() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pwmSetupDone
}

// GetPulseIncrUs returns the tick length PWMSetup was configured with.
func (e *Engine) GetPulseIncrUs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickUs
}

// Shutdown halts every live channel's DMA engine and stops the pacer, per
// Component J's cleanup path. Idempotent.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdownLocked()
}

func (e *Engine) shutdownLocked() {
	for i, ch := range e.channels {
		if ch == nil {
			continue
		}
		for s := 0; s < ch.numSamples; s++ {
			bcm2708.SetControlBlockDest(ch.cbAt(2*s), bcm2708.BusGPIOClr0)
		}
		sleepSubcycle(ch)
		if dmaCh := bcm2708.Channel(i); dmaCh != nil {
			dmaCh.Halt()
		}
		e.channels[i] = nil
	}
	if e.pacerStarted {
		switch e.pacer {
		case PacerPWM:
			bcm2708.StopPWMPacer()
		case PacerPCM:
			bcm2708.StopPCMPacer()
		}
		e.pacerStarted = false
	}
	e.pwmSetupDone = false
}

// SetSoftFatal toggles whether an otherwise-fatal internal condition (a
// write to unmapped hardware, a corrupted CB program) panics the process or
// is recorded and surfaced through LastFatalError instead. Hard-fatal (the
// default) matches the original's behavior of a library that assumes it is
// the only client of the DMA engine.
func (e *Engine) SetSoftFatal(soft bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.softFatal = soft
}

// LastFatalError returns the message recorded by the most recent soft-fatal
// condition, or "" if none occurred.
func (e *Engine) LastFatalError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fatalMsg
}

// fatal reports an unrecoverable internal condition: it panics unless
// soft-fatal mode is enabled, in which case it records msg and returns.
// Callers must hold e.mu.
func (e *Engine) fatal(msg string) {
	e.fatalMsg = msg
	e.log.Errorw("fatal condition", "msg", msg, "soft_fatal", e.softFatal)
	if !e.softFatal {
		panic("rpio: " + msg)
	}
}

// installSignalTrap arranges for a clean Shutdown on process termination
// signals, per Component J. Caller must hold e.mu. The original RPIO C
// sources trap every signal in 1..63 except SIGKILL/SIGSTOP and a benign
// whitelist (SIGCHLD, SIGWINCH, SIGURG); reproducing that exhaustively isn't
// idiomatic Go, so this traps the signals a Go program can actually expect
// to receive and handle: SIGINT, SIGTERM, SIGHUP, and SIGQUIT.
func (e *Engine) installSignalTrap() {
	if e.signalsInstalled {
		return
	}
	e.signalsInstalled = true
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	go func() {
		sig := <-ch
		e.mu.Lock()
		e.log.Warnw("caught signal, shutting down", "signal", sig.String())
		e.shutdownLocked()
		e.mu.Unlock()
		os.Exit(0)
	}()
}
