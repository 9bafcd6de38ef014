package control

import (
	"math"

	"github.com/cjeanneret/RoverGo/internal/config"
)

// Clamp bounds a computed motor speed to what the PWM output accepts.
// The low end is a snap, not a clamp: anything under Threshold becomes
// Floor, which is below Threshold itself.
type Clamp struct {
	Threshold float64
	Floor     float64
	Ceiling   float64
}

// NewClamp creates a clamp from configuration.
func NewClamp(cfg *config.Config) Clamp {
	return Clamp{
		Threshold: cfg.Clamp.Threshold,
		Floor:     cfg.Clamp.Floor,
		Ceiling:   cfg.Clamp.Ceiling,
	}
}

// Apply returns the bounded speed. NaN is treated as a stalled motor.
func (c Clamp) Apply(speed float64) float64 {
	switch {
	case math.IsNaN(speed):
		return c.Floor
	case speed > c.Ceiling:
		return c.Ceiling
	case speed < c.Threshold:
		return c.Floor
	default:
		return speed
	}
}

// Magnitude returns the bounded speed truncated to a duty register value.
func (c Clamp) Magnitude(speed float64) uint8 {
	return uint8(c.Apply(speed))
}
