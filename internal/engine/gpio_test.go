package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpio.dev/x/rpio/conn/gpio"
)

func newTestEngine() *Engine {
	return &Engine{
		numbering: BCM,
		warnings:  true,
		log:       Get().log,
	}
}

func TestTranslate_modeNotSet(t *testing.T) {
	e := &Engine{}
	_, err := e.translate(4)
	require.Error(t, err)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ModeNotSet, ee.Kind)
}

func TestTranslate_BCM(t *testing.T) {
	e := newTestEngine()
	bcm, err := e.translate(17)
	require.NoError(t, err)
	assert.Equal(t, 17, bcm)

	_, err = e.translate(numBCMLines)
	assert.Error(t, err)
}

func TestTranslate_Board(t *testing.T) {
	e := newTestEngine()
	e.numbering = Board
	e.revision = Revision2
	bcm, err := e.translate(11)
	require.NoError(t, err)
	assert.Equal(t, 17, bcm)

	_, err = e.translate(1) // power rail, not bonded
	assert.Error(t, err)
}

func TestOutput_requiresOutputMode(t *testing.T) {
	e := newTestEngine()
	err := e.Output(4, gpio.High)
	require.Error(t, err)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, WrongDirection, ee.Kind)
}

func TestInput_requiresConfigured(t *testing.T) {
	e := newTestEngine()
	_, err := e.Input(4)
	require.Error(t, err)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, WrongDirection, ee.Kind)
}

func TestSetWarnings(t *testing.T) {
	e := newTestEngine()
	e.SetWarnings(false)
	assert.False(t, e.warnings)
	e.SetWarnings(true)
	assert.True(t, e.warnings)
}

func TestCleanupGPIO_noopWhenNotMapped(t *testing.T) {
	e := newTestEngine()
	e.pinMode[4] = ModeOutput
	e.CleanupGPIO()
	// gpioMapped is false, so cleanup must not touch hardware or the table.
	assert.Equal(t, ModeOutput, e.pinMode[4])
}

// BCM lines 47-53 are valid per translate's BCM-mode range check (numBCMLines
// is 54) but unbonded on this SoC, so CPUPins returns nil for them; these
// four calls must report ChannelRange instead of dereferencing a nil *Pin.
func TestGPIOFunction_unbondedLine(t *testing.T) {
	e := newTestEngine()
	e.gpioMapped = true
	_, err := e.GPIOFunction(47)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ChannelRange, ee.Kind)
}

func TestSetPullUpDn_unbondedLine(t *testing.T) {
	e := newTestEngine()
	e.gpioMapped = true
	err := e.SetPullUpDn(47, gpio.Up)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ChannelRange, ee.Kind)
}

func TestForceOutput_unbondedLine(t *testing.T) {
	e := newTestEngine()
	e.gpioMapped = true
	err := e.ForceOutput(47, gpio.High)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ChannelRange, ee.Kind)
}

func TestForceInput_unbondedLine(t *testing.T) {
	e := newTestEngine()
	e.gpioMapped = true
	_, err := e.ForceInput(47)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ChannelRange, ee.Kind)
}
