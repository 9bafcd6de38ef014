package control

import (
	"math"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/debug"
)

// SteeringParams are the constants of the proportional line follower.
type SteeringParams struct {
	Kp        float64
	BaseLeft  float64
	BaseRight float64
	DeadBand  float64
	// Fixed magnitudes used inside the dead band.
	StraightLeft  uint8
	StraightRight uint8
	// When false both turn directions produce the same command.
	DifferentiateTurns bool
}

// LineReading holds the smoothed readings of the three line sensors.
type LineReading struct {
	Left   float64
	Center float64
	Right  float64
}

// SteeringResult is the outcome of one steering computation.
type SteeringResult struct {
	Decision   Decision
	Error      float64
	Correction float64
	LeftSpeed  float64 // clamped
	RightSpeed float64 // clamped
	Command    Command
}

// Steering is the proportional line-following control law. It keeps no
// state between calls.
type Steering struct {
	params SteeringParams
	clamp  Clamp
}

// NewSteering creates the line control law from configuration.
func NewSteering(cfg *config.Config) *Steering {
	return NewSteeringWith(SteeringParams{
		Kp:                 cfg.Line.Kp,
		BaseLeft:           cfg.Line.BaseLeft,
		BaseRight:          cfg.Line.BaseRight,
		DeadBand:           cfg.Line.DeadBand,
		StraightLeft:       uint8(cfg.Line.StraightLeft),
		StraightRight:      uint8(cfg.Line.StraightRight),
		DifferentiateTurns: cfg.Line.DifferentiateTurns,
	}, NewClamp(cfg))
}

// NewSteeringWith creates the line control law from explicit parameters.
func NewSteeringWith(p SteeringParams, c Clamp) *Steering {
	return &Steering{params: p, clamp: c}
}

// Compute derives the motor command from one set of readings.
// The speeds are always computed and clamped, even inside the dead band
// where the fixed straight command replaces them.
func (s *Steering) Compute(r LineReading) SteeringResult {
	p := s.params
	e := r.Right - r.Left
	correction := p.Kp * e

	res := SteeringResult{
		Error:      e,
		Correction: correction,
		LeftSpeed:  s.clamp.Apply(p.BaseLeft + correction),
		RightSpeed: s.clamp.Apply(p.BaseRight - correction),
	}

	switch {
	case math.Abs(e) < p.DeadBand:
		res.Decision = GoStraight
		res.Command = Command{Left: Forward(p.StraightLeft), Right: Forward(p.StraightRight)}
	case e < 0:
		res.Decision = TurnLeft
		res.Command = s.turnCommand(TurnLeft, res.LeftSpeed, res.RightSpeed)
	default:
		res.Decision = TurnRight
		res.Command = s.turnCommand(TurnRight, res.LeftSpeed, res.RightSpeed)
	}

	debug.Verbose("Steering: error=%.2f correction=%.2f speeds=%.2f/%.2f -> %s",
		e, correction, res.LeftSpeed, res.RightSpeed, res.Decision)
	return res
}

// turnCommand maps a turn decision to motor magnitudes. The reference
// robot drives both turns the same way; DifferentiateTurns swaps the
// magnitudes for left turns.
func (s *Steering) turnCommand(d Decision, left, right float64) Command {
	l, r := s.clamp.Magnitude(left), s.clamp.Magnitude(right)
	if s.params.DifferentiateTurns && d == TurnLeft {
		l, r = r, l
	}
	return Command{Left: Forward(l), Right: Forward(r)}
}
