package motor

import (
	"fmt"

	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/cjeanneret/RoverGo/internal/hw/pwm"
)

// Direction is the rotation requested from an H-bridge.
type Direction int

const (
	Brake Direction = iota // both outputs low
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Brake:
		return "brake"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Config holds the hardware configuration for one DC motor.
type Config struct {
	Name       string
	PinA       pwm.Channel
	PinB       pwm.Channel
	ForwardOnB bool // true when a duty on B (with A at zero) drives forward
}

// Motor drives one H-bridge through a pair of PWM outputs.
// Exactly one output carries the duty, the other is held at zero;
// which one is lit encodes the direction.
type Motor struct {
	pwm pwm.Driver
	cfg Config
}

// NewMotor configures both outputs and leaves the motor braked.
func NewMotor(p pwm.Driver, cfg Config) (*Motor, error) {
	if cfg.PinA == cfg.PinB {
		return nil, fmt.Errorf("motor %s: outputs A and B share channel %d", cfg.Name, cfg.PinA)
	}
	if err := p.SetupChannel(cfg.PinA); err != nil {
		return nil, fmt.Errorf("motor %s: setup A: %w", cfg.Name, err)
	}
	if err := p.SetupChannel(cfg.PinB); err != nil {
		return nil, fmt.Errorf("motor %s: setup B: %w", cfg.Name, err)
	}
	return &Motor{pwm: p, cfg: cfg}, nil
}

// Name returns the configured motor name.
func (m *Motor) Name() string {
	return m.cfg.Name
}

func (m *Motor) outputs() (forward, reverse pwm.Channel) {
	if m.cfg.ForwardOnB {
		return m.cfg.PinB, m.cfg.PinA
	}
	return m.cfg.PinA, m.cfg.PinB
}

// Drive writes both duty registers for the requested direction.
// A zero magnitude or Brake leaves both outputs at zero.
func (m *Motor) Drive(dir Direction, magnitude uint8) error {
	fwd, rev := m.outputs()

	var on, off pwm.Channel
	switch {
	case dir == Brake || magnitude == 0:
		debug.Trace("Motor %s: brake", m.cfg.Name)
		if err := m.pwm.SetDutyCycle(fwd, 0); err != nil {
			return err
		}
		return m.pwm.SetDutyCycle(rev, 0)
	case dir == Forward:
		on, off = fwd, rev
	case dir == Reverse:
		on, off = rev, fwd
	default:
		return fmt.Errorf("motor %s: unknown direction %v", m.cfg.Name, dir)
	}

	debug.Trace("Motor %s: %s %d", m.cfg.Name, dir, magnitude)

	// Off side first so both outputs are never lit together.
	if err := m.pwm.SetDutyCycle(off, 0); err != nil {
		return err
	}
	return m.pwm.SetDutyCycle(on, magnitude)
}

// Stop brakes the motor.
func (m *Motor) Stop() error {
	return m.Drive(Brake, 0)
}
