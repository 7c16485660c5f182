package engine

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rpio.dev/x/rpio/host/bcm2708"
)

// PinMode records this process's intent for a BCM line, independent of what
// the hardware currently reports (another process may have changed the
// function-select bits).
type PinMode uint8

const (
	Unconfigured PinMode = iota
	ModeInput
	ModeOutput
)

// Numbering selects which numbering scheme the GPIO facet's channel
// arguments are interpreted in.
type Numbering uint8

const (
	NumberingUnset Numbering = iota
	BCM
	Board
)

// Pacer selects which peripheral produces the DMA pacing DREQ.
type Pacer uint8

const (
	PacerPWM Pacer = iota
	PacerPCM
)

func (p Pacer) String() string {
	if p == PacerPCM {
		return "PCM"
	}
	return "PWM"
}

const numBCMLines = 54

// Engine is the process-wide singleton holding every piece of mutable state
// described in §3's "Process-wide state" and "Pin-mode table": the GPIO
// facet's bookkeeping and the PWM facet's channel arenas. It is opened by
// gpio.Setmode/pwm.Setup and closed by pwm.Cleanup/gpio.Cleanup; see
// internal/engine/lifecycle.go.
type Engine struct {
	mu sync.Mutex

	numbering Numbering
	revision  Revision

	pinMode    [numBCMLines]PinMode
	warnings   bool
	softFatal  bool
	fatalMsg   string

	gpioMapped bool

	pwmSetupDone bool
	tickUs       int
	pacer        Pacer
	pacerStarted bool
	gpioSetup    [numBCMLines]bool // claimed by the PWM engine
	channels     [15]*Channel

	log      *zap.SugaredLogger
	logLevel zap.AtomicLevel

	signalsInstalled bool
}

var (
	instOnce sync.Once
	inst     *Engine
)

// Get returns the process-wide singleton, constructing it on first use. The
// logger defaults to WarnLevel so a library importer sees nothing unless it
// opts in via SetLogLevel (pwm.SetLogLevel in §6).
func Get() *Engine {
	instOnce.Do(func() {
		level := zap.NewAtomicLevelAt(zap.WarnLevel)
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		logger, err := cfg.Build()
		if err != nil {
			logger = zap.NewNop()
		}
		inst = &Engine{
			warnings: true,
			log:      logger.Sugar(),
			logLevel: level,
		}
	})
	return inst
}

// SetLogLevel adjusts the minimum level the engine's logger emits at,
// backing pwm.SetLogLevel (§6).
func (e *Engine) SetLogLevel(level zapcore.Level) {
	e.logLevel.SetLevel(level)
}

// SetLogger overrides the engine's logger, used by tests and by advanced
// callers who want the library's diagnostics folded into their own zap
// pipeline.
func (e *Engine) SetLogger(l *zap.SugaredLogger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = l
}

func (e *Engine) ensureGPIOMapped() error {
	if e.gpioMapped {
		return nil
	}
	if err := bcm2708.MapGPIO(); err != nil {
		return Wrap("gpio", DeviceAccess, err)
	}
	e.gpioMapped = true
	return nil
}
