package pwm

import (
	"testing"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

func TestNewDriver_Mock(t *testing.T) {
	d, err := NewDriver(true, Options{Backend: BackendPCA9685, FrequencyHz: 1000})
	require.NoError(t, err)
	_, ok := d.(*MockDriver)
	assert.True(t, ok, "expected *MockDriver, got %T", d)
	assert.NoError(t, d.Close())
}

func TestMockDriver_RemembersDuty(t *testing.T) {
	d := &MockDriver{}

	require.NoError(t, d.SetDutyCycle(12, 90))
	require.NoError(t, d.SetDutyCycle(19, 100))
	require.NoError(t, d.SetDutyCycle(12, 0))

	assert.Equal(t, uint8(0), d.Duty(12))
	assert.Equal(t, uint8(100), d.Duty(19))
	assert.Equal(t, uint8(0), d.Duty(13), "untouched channel reads zero")
}

func TestMockDriver_SetupZeroesChannel(t *testing.T) {
	d := &MockDriver{}
	require.NoError(t, d.SetDutyCycle(18, 200))
	require.NoError(t, d.SetupChannel(18))
	assert.Equal(t, uint8(0), d.Duty(18))
}

func TestNewDriver_UnknownBackend(t *testing.T) {
	_, err := NewDriver(false, Options{Backend: "servo", FrequencyHz: 1000})
	assert.ErrorContains(t, err, "unknown PWM backend")
}

func TestRPiUnit(t *testing.T) {
	tests := []struct {
		ch     Channel
		unit   int
		usable bool
	}{
		{12, 0, true},
		{18, 0, true},
		{13, 1, true},
		{19, 1, true},
		{17, 0, false},
		{0, 0, false},
	}
	for _, tc := range tests {
		unit, ok := RPiUnit(tc.ch)
		assert.Equal(t, tc.usable, ok, "pin %d", tc.ch)
		if ok {
			assert.Equal(t, tc.unit, unit, "pin %d", tc.ch)
		}
	}
}

// A second pin on an occupied unit is refused before any register is touched.
func TestRPiDriver_RejectsSharedUnit(t *testing.T) {
	r := &RPiDriver{
		pins:  map[Channel]rpio.Pin{},
		units: map[int]Channel{0: 12},
		freq:  1000,
	}

	err := r.SetupChannel(18)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSharedUnit)
	assert.Contains(t, err.Error(), "by pin 12")

	assert.ErrorContains(t, r.SetupChannel(5), "no hardware PWM")
}

func TestPCA9685Driver_RejectsUnknownChannel(t *testing.T) {
	d := &PCA9685Driver{}
	assert.ErrorContains(t, d.SetupChannel(16), "no channel 16")
	assert.ErrorContains(t, d.SetDutyCycle(-1, 10), "no channel -1")
}

func TestPCAOffCount(t *testing.T) {
	assert.Equal(t, gpio.Duty(0), pcaOffCount(0))
	assert.Equal(t, gpio.Duty(2039), pcaOffCount(127))
	assert.Equal(t, gpio.Duty(4095), pcaOffCount(MaxDuty))
}
