package control

import (
	"time"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/cjeanneret/RoverGo/internal/logic/ranging"
)

// WallParams are the thresholds and fixed commands of the wall follower.
type WallParams struct {
	TurnDistance       float64 // cm, sharp turn at or below
	ProximityThreshold float64 // raw reading, reverse below
	ReverseFor         time.Duration
	SharpTurn          Command
	Forward            Command
	Reverse            Command
}

// WallReading holds the smoothed readings of the wall-mode sensors.
type WallReading struct {
	Distance  float64 // range sensor, raw counts
	Proximity float64 // proximity sensor, raw counts
}

// WallResult is the outcome of one wall-following computation.
type WallResult struct {
	Decision  Decision
	Voltage   float64
	Distance  float64 // cm, truncated; +Inf when nothing is in range
	Proximity float64
	Command   Command

	// Reverse is set when the proximity override fires. The caller must
	// write ReverseCommand after Command and hold it for ReverseFor.
	Reverse        bool
	ReverseCommand Command
	ReverseFor     time.Duration
}

// WallFollower is the distance threshold control law with its proximity
// override. It keeps no state between calls.
type WallFollower struct {
	params WallParams
	ranger *ranging.Calculator
}

// NewWallFollower creates the wall control law from configuration.
func NewWallFollower(cfg *config.Config) *WallFollower {
	w := cfg.Wall
	return NewWallFollowerWith(WallParams{
		TurnDistance:       w.TurnDistance,
		ProximityThreshold: w.ProximityThreshold,
		ReverseFor:         cfg.ReverseDuration(),
		SharpTurn:          Command{Left: forwardOrBrake(w.SharpTurn.Left), Right: forwardOrBrake(w.SharpTurn.Right)},
		Forward:            Command{Left: forwardOrBrake(w.Forward.Left), Right: forwardOrBrake(w.Forward.Right)},
		Reverse:            Command{Left: Reverse(uint8(w.Reverse.Left)), Right: Reverse(uint8(w.Reverse.Right))},
	}, ranging.NewCalculator(cfg))
}

// NewWallFollowerWith creates the wall control law from explicit parameters.
func NewWallFollowerWith(p WallParams, r *ranging.Calculator) *WallFollower {
	return &WallFollower{params: p, ranger: r}
}

func forwardOrBrake(duty int) MotorCommand {
	if duty <= 0 {
		return Brake()
	}
	return Forward(uint8(duty))
}

// Compute derives the branch command and the reverse override from one
// set of readings.
func (w *WallFollower) Compute(r WallReading) WallResult {
	p := w.params
	v := w.ranger.Voltage(r.Distance)
	d := w.ranger.Centimeters(v)

	res := WallResult{
		Voltage:   v,
		Distance:  d,
		Proximity: r.Proximity,
	}

	if d <= p.TurnDistance {
		res.Decision = SharpTurn
		res.Command = p.SharpTurn
	} else {
		res.Decision = ForwardBias
		res.Command = p.Forward
	}

	if r.Proximity < p.ProximityThreshold {
		res.Reverse = true
		res.ReverseCommand = p.Reverse
		res.ReverseFor = p.ReverseFor
	}

	debug.Verbose("Wall: V=%.3f distance=%v proximity=%.1f -> %s (reverse=%v)",
		v, d, r.Proximity, res.Decision, res.Reverse)
	return res
}
