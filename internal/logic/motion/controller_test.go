package motion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/RoverGo/internal/hw/motor"
	"github.com/cjeanneret/RoverGo/internal/hw/pwm"
	"github.com/cjeanneret/RoverGo/internal/logic/control"
)

// Line robot wiring: right motor forward on A, left motor forward on B.
func newMockPair(t *testing.T) (*Controller, *pwm.MockDriver) {
	t.Helper()
	drv := &pwm.MockDriver{}
	right, err := motor.NewMotor(drv, motor.Config{Name: "right", PinA: 12, PinB: 13})
	require.NoError(t, err)
	left, err := motor.NewMotor(drv, motor.Config{Name: "left", PinA: 18, PinB: 19, ForwardOnB: true})
	require.NoError(t, err)
	return NewController(left, right), drv
}

func TestController_DriveStraight(t *testing.T) {
	ctrl, drv := newMockPair(t)

	require.NoError(t, ctrl.Drive(control.Command{Left: control.Forward(100), Right: control.Forward(90)}))

	assert.Equal(t, uint8(90), drv.Duty(12), "right forward output")
	assert.Zero(t, drv.Duty(13))
	assert.Zero(t, drv.Duty(18))
	assert.Equal(t, uint8(100), drv.Duty(19), "left forward output")
}

func TestController_DriveReverseAndBrake(t *testing.T) {
	ctrl, drv := newMockPair(t)

	require.NoError(t, ctrl.Drive(control.Command{Left: control.Reverse(50), Right: control.Brake()}))

	assert.Equal(t, uint8(50), drv.Duty(18))
	assert.Zero(t, drv.Duty(19))
	assert.Zero(t, drv.Duty(12))
	assert.Zero(t, drv.Duty(13))
}

func TestController_LastCommandWins(t *testing.T) {
	ctrl, drv := newMockPair(t)

	require.NoError(t, ctrl.Drive(control.Command{Left: control.Forward(220), Right: control.Brake()}))
	require.NoError(t, ctrl.Drive(control.Command{Left: control.Reverse(50), Right: control.Reverse(255)}))

	assert.Zero(t, drv.Duty(19), "forward output cleared by the reverse command")
	assert.Equal(t, uint8(50), drv.Duty(18))
	assert.Equal(t, uint8(255), drv.Duty(13))
	assert.Zero(t, drv.Duty(12))
}

func TestController_Stop(t *testing.T) {
	ctrl, drv := newMockPair(t)
	require.NoError(t, ctrl.Drive(control.Command{Left: control.Forward(100), Right: control.Forward(90)}))

	require.NoError(t, ctrl.Stop())
	for _, ch := range []pwm.Channel{12, 13, 18, 19} {
		assert.Zero(t, drv.Duty(ch), "channel %d", ch)
	}
}

// failingDriver accepts setup but fails every duty write on one channel.
type failingDriver struct {
	pwm.MockDriver
	bad pwm.Channel
}

func (f *failingDriver) SetDutyCycle(ch pwm.Channel, v uint8) error {
	if ch == f.bad {
		return errors.New("register write failed")
	}
	return f.MockDriver.SetDutyCycle(ch, v)
}

func TestController_DriveError(t *testing.T) {
	drv := &failingDriver{bad: 19}
	left, err := motor.NewMotor(drv, motor.Config{Name: "left", PinA: 18, PinB: 19, ForwardOnB: true})
	require.NoError(t, err)
	right, err := motor.NewMotor(drv, motor.Config{Name: "right", PinA: 12, PinB: 13})
	require.NoError(t, err)
	ctrl := NewController(left, right)

	err = ctrl.Drive(control.Command{Left: control.Forward(100), Right: control.Forward(90)})
	assert.ErrorContains(t, err, "drive left")
	assert.Zero(t, drv.Duty(12), "right not driven after left failed")

	err = ctrl.Stop()
	assert.ErrorContains(t, err, "stop left")
}
