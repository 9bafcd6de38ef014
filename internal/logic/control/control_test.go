package control

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/hw/motor"
	"github.com/cjeanneret/RoverGo/internal/logic/ranging"
)

// ---------- Clamp ----------

func TestClamp_Apply(t *testing.T) {
	c := NewClamp(config.Default())

	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"far_below", -95, 20},
		{"zero", 0, 20},
		{"just_below_threshold", 29.999, 20},
		{"threshold", 30, 30},
		{"mid", 131, 131},
		{"fractional_passes", 49.5, 49.5},
		{"ceiling", 255, 255},
		{"above_ceiling", 275, 255},
		{"huge", 1e9, 255},
		{"neg_inf", math.Inf(-1), 20},
		{"pos_inf", math.Inf(1), 255},
		{"nan", math.NaN(), 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Apply(tc.in))
		})
	}
}

func TestClamp_Magnitude(t *testing.T) {
	c := NewClamp(config.Default())
	assert.Equal(t, uint8(49), c.Magnitude(49.9))
	assert.Equal(t, uint8(20), c.Magnitude(3))
	assert.Equal(t, uint8(255), c.Magnitude(400))
}

// ---------- Steering ----------

func TestSteering_DeadBandIsFixedStraight(t *testing.T) {
	s := NewSteering(config.Default())
	straight := Command{Left: Forward(100), Right: Forward(90)}

	for _, r := range []LineReading{
		{Left: 500, Right: 500},
		{Left: 0, Right: 29},
		{Left: 1023, Right: 994},
		{Left: 10, Center: 900, Right: 39.9},
	} {
		res := s.Compute(r)
		assert.Equal(t, GoStraight, res.Decision, "reading %+v", r)
		assert.Equal(t, straight, res.Command, "reading %+v", r)
	}
}

func TestSteering_EndToEndStraight(t *testing.T) {
	res := NewSteering(config.Default()).Compute(LineReading{Left: 500, Right: 500})

	assert.Zero(t, res.Error)
	assert.Equal(t, 95.0, res.LeftSpeed)
	assert.Equal(t, 85.0, res.RightSpeed)
	assert.Equal(t, uint8(100), res.Command.Left.Magnitude)
	assert.Equal(t, uint8(90), res.Command.Right.Magnitude)
}

func TestSteering_EndToEndTurnRight(t *testing.T) {
	res := NewSteering(config.Default()).Compute(LineReading{Left: 200, Right: 600})

	assert.Equal(t, TurnRight, res.Decision)
	assert.Equal(t, 400.0, res.Error)
	assert.Equal(t, 36.0, res.Correction)
	assert.Equal(t, 131.0, res.LeftSpeed)
	assert.Equal(t, 49.0, res.RightSpeed, "49 is inside [30,255] and passes unchanged")
	assert.Equal(t, Command{Left: Forward(131), Right: Forward(49)}, res.Command)
}

func TestSteering_TurnMagnitudesAreTruncatedClampedSpeeds(t *testing.T) {
	s := NewSteering(config.Default())

	res := s.Compute(LineReading{Left: 200, Right: 601})
	assert.InDelta(t, 131.09, res.LeftSpeed, 1e-9)
	assert.InDelta(t, 48.91, res.RightSpeed, 1e-9)
	assert.Equal(t, Command{Left: Forward(131), Right: Forward(48)}, res.Command)

	// Right speed 85 - 72 = 13 snaps to the floor.
	res = s.Compute(LineReading{Left: 0, Right: 800})
	assert.Equal(t, Command{Left: Forward(167), Right: Forward(20)}, res.Command)
}

func TestSteering_TurnsAreIdenticalByDefault(t *testing.T) {
	s := NewSteering(config.Default())

	left := s.Compute(LineReading{Left: 600, Right: 200})
	assert.Equal(t, TurnLeft, left.Decision)
	assert.Equal(t, 59.0, left.LeftSpeed)
	assert.Equal(t, 121.0, left.RightSpeed)
	assert.Equal(t, Command{Left: Forward(59), Right: Forward(121)}, left.Command)
}

func TestSteering_ClampSnapsAndCeils(t *testing.T) {
	res := NewSteering(config.Default()).Compute(LineReading{Left: 0, Right: 2000})

	// 95+180=275 -> 255, 85-180=-95 -> 20
	assert.Equal(t, 255.0, res.LeftSpeed)
	assert.Equal(t, 20.0, res.RightSpeed)
	assert.Equal(t, Command{Left: Forward(255), Right: Forward(20)}, res.Command)
}

func TestSteering_DifferentiateTurns(t *testing.T) {
	cfg := config.Default()
	cfg.Line.DifferentiateTurns = true
	s := NewSteering(cfg)

	left := s.Compute(LineReading{Left: 600, Right: 200})
	assert.Equal(t, Command{Left: Forward(121), Right: Forward(59)}, left.Command)

	right := s.Compute(LineReading{Left: 200, Right: 600})
	assert.Equal(t, Command{Left: Forward(131), Right: Forward(49)}, right.Command, "right turns unchanged")

	straight := s.Compute(LineReading{Left: 300, Right: 310})
	assert.Equal(t, GoStraight, straight.Decision)
}

func TestSteering_CustomParams(t *testing.T) {
	s := NewSteeringWith(SteeringParams{Kp: 1, BaseLeft: 100, BaseRight: 100, DeadBand: 5, StraightLeft: 7, StraightRight: 8},
		Clamp{Threshold: 10, Floor: 0, Ceiling: 200})

	res := s.Compute(LineReading{Left: 0, Right: 4})
	assert.Equal(t, Command{Left: Forward(7), Right: Forward(8)}, res.Command)

	res = s.Compute(LineReading{Left: 0, Right: 95})
	assert.Equal(t, 195.0, res.LeftSpeed)
	assert.Equal(t, 0.0, res.RightSpeed, "5 is below threshold and snaps to floor 0")
}

// ---------- WallFollower ----------

func TestWallFollower_CustomParams(t *testing.T) {
	w := NewWallFollowerWith(WallParams{
		TurnDistance:       20,
		ProximityThreshold: 100,
		ReverseFor:         time.Second,
		SharpTurn:          Command{Left: Forward(1), Right: Brake()},
		Forward:            Command{Left: Forward(2), Right: Forward(3)},
		Reverse:            Command{Left: Reverse(4), Right: Reverse(5)},
	}, &ranging.Calculator{VRef: 5, ADCMax: 1023, Coefficient: 29.98, Exponent: -1.17})

	// 1.5 V is about 18 cm: under the custom 20 cm threshold.
	res := w.Compute(WallReading{Distance: 306.9, Proximity: 50})
	assert.Equal(t, SharpTurn, res.Decision)
	assert.Equal(t, Command{Left: Forward(1), Right: Brake()}, res.Command)
	assert.True(t, res.Reverse)
	assert.Equal(t, Command{Left: Reverse(4), Right: Reverse(5)}, res.ReverseCommand)
	assert.Equal(t, time.Second, res.ReverseFor)
}

func TestWallFollower_SharpTurnWhenClose(t *testing.T) {
	w := NewWallFollower(config.Default())

	// 2.5 V -> 10.26 cm -> 10, at the threshold.
	res := w.Compute(WallReading{Distance: 511.5, Proximity: 900})
	assert.Equal(t, SharpTurn, res.Decision)
	assert.Equal(t, 10.0, res.Distance)
	assert.Equal(t, Command{Left: Forward(220), Right: Brake()}, res.Command)
	assert.False(t, res.Reverse)
}

func TestWallFollower_ForwardBiasWhenFar(t *testing.T) {
	w := NewWallFollower(config.Default())

	// 1 V -> 29.98 cm -> 29.
	res := w.Compute(WallReading{Distance: 204.6, Proximity: 800})
	assert.Equal(t, ForwardBias, res.Decision)
	assert.Equal(t, 29.0, res.Distance)
	assert.Equal(t, Command{Left: Forward(50), Right: Forward(255)}, res.Command)
	assert.False(t, res.Reverse, "800 is not below the threshold")
}

func TestWallFollower_NothingInRange(t *testing.T) {
	res := NewWallFollower(config.Default()).Compute(WallReading{Distance: 0, Proximity: 1000})

	assert.True(t, math.IsInf(res.Distance, 1))
	assert.Equal(t, ForwardBias, res.Decision)
}

func TestWallFollower_ProximityOverride(t *testing.T) {
	w := NewWallFollower(config.Default())

	for _, d := range []float64{511.5, 204.6} {
		res := w.Compute(WallReading{Distance: d, Proximity: 799.9})
		assert.True(t, res.Reverse)
		assert.Equal(t, Command{Left: Reverse(50), Right: Reverse(255)}, res.ReverseCommand)
		assert.Equal(t, 450*time.Millisecond, res.ReverseFor)
	}
}

func TestForwardOrBrake(t *testing.T) {
	assert.Equal(t, Brake(), forwardOrBrake(0))
	assert.Equal(t, MotorCommand{Direction: motor.Forward, Magnitude: 9}, forwardOrBrake(9))
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "straight", GoStraight.String())
	assert.Equal(t, "turn-left", TurnLeft.String())
	assert.Equal(t, "turn-right", TurnRight.String())
	assert.Equal(t, "sharp-turn", SharpTurn.String())
	assert.Equal(t, "forward-bias", ForwardBias.String())
	assert.Equal(t, "Decision(42)", Decision(42).String())
}

func TestMotorCommand_String(t *testing.T) {
	assert.Equal(t, "forward 90", Forward(90).String())
	assert.Equal(t, "reverse 50", Reverse(50).String())
	assert.Equal(t, "brake", Brake().String())
}
