package hw

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/hw/adc"
	"github.com/cjeanneret/RoverGo/internal/hw/motor"
	"github.com/cjeanneret/RoverGo/internal/hw/pwm"
	"github.com/cjeanneret/RoverGo/internal/hw/uart"
)

func TestOpen_MockHardware(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.MockHardware = true

	h, err := Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, h)

	assert.NotNil(t, h.ADC)
	require.NotNil(t, h.MockADC)
	h.MockADC.Set(2, 640)
	v, err := h.ADC.Read(2)
	require.NoError(t, err)
	assert.Equal(t, adc.Sample(640), v)
	assert.IsType(t, &pwm.MockDriver{}, h.PWM)
	assert.IsType(t, &uart.MockPort{}, h.Serial)
	assert.Equal(t, "left", h.Left.Name())
	assert.Equal(t, "right", h.Right.Name())

	require.NoError(t, h.Left.Drive(motor.Forward, 77))
	drv := h.PWM.(*pwm.MockDriver)
	assert.Equal(t, uint8(77), drv.Duty(3), "left motor drives forward on B by default")

	require.NoError(t, h.Close())
	assert.Zero(t, drv.Duty(3), "close brakes the motors")
}

func TestOpen_InvalidMotorPins(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.MockHardware = true
	cfg.Motors.Left.PinB = cfg.Motors.Left.PinA

	h, err := Open(cfg)
	assert.Error(t, err)
	assert.Nil(t, h)
}

func TestMotorConfig(t *testing.T) {
	mc := MotorConfig("right", config.MotorConfig{PinA: 12, PinB: 13, Forward: "a"})
	assert.Equal(t, motor.Config{Name: "right", PinA: 12, PinB: 13}, mc)

	mc = MotorConfig("left", config.MotorConfig{PinA: 18, PinB: 19, Forward: "b"})
	assert.True(t, mc.ForwardOnB)
}

func TestPWMOptions(t *testing.T) {
	mc := config.Default().Motors
	mc.EnablePin = 22

	assert.Equal(t, pwm.Options{
		Backend:     pwm.BackendPCA9685,
		FrequencyHz: 1000,
		Address:     0x40,
		EnablePin:   22,
	}, PWMOptions(mc))
}

type failingPort struct{ err error }

func (f failingPort) Transmit([]byte) error { return nil }
func (f failingPort) Close() error          { return f.err }

type failingPWM struct{ err error }

func (f failingPWM) SetupChannel(pwm.Channel) error         { return nil }
func (f failingPWM) SetDutyCycle(pwm.Channel, uint8) error { return nil }
func (f failingPWM) Close() error                          { return f.err }

func TestHandle_CloseCollectsErrors(t *testing.T) {
	errSerial := errors.New("serial busy")
	errPWM := errors.New("pwm gone")
	h := &Handle{Serial: failingPort{errSerial}, PWM: failingPWM{errPWM}}

	err := h.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errSerial)
	assert.ErrorIs(t, err, errPWM)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestHandle_CloseEmpty(t *testing.T) {
	assert.NoError(t, (&Handle{}).Close())
}
