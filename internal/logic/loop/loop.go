// Package loop runs the sample, compute, actuate, report cycle of the
// rover. Ticks are strictly sequential: a tick always completes,
// including a reverse hold, before the next one may start sampling.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/cjeanneret/RoverGo/internal/hw"
	"github.com/cjeanneret/RoverGo/internal/hw/adc"
	"github.com/cjeanneret/RoverGo/internal/hw/delay"
	"github.com/cjeanneret/RoverGo/internal/logic/control"
	"github.com/cjeanneret/RoverGo/internal/logic/motion"
	"github.com/cjeanneret/RoverGo/internal/logic/sampling"
	"github.com/cjeanneret/RoverGo/internal/logic/telemetry"
)

// ErrUnknownMode is returned for a mode other than line or wall.
var ErrUnknownMode = errors.New("unknown control mode")

// Sensors maps sensor roles to analog channels.
type Sensors struct {
	Left      adc.Channel
	Center    adc.Channel
	Right     adc.Channel
	Distance  adc.Channel
	Proximity adc.Channel
}

// Loop owns the hardware handle and runs the control laws against it.
type Loop struct {
	mu sync.Mutex // held for a whole tick

	mode     string
	sensors  Sensors
	averager *sampling.Averager
	steering *control.Steering
	wall     *control.WallFollower
	motion   *motion.Controller
	reporter *telemetry.Reporter
	delay    delay.Sleeper
	onTick   func(State)

	stateMu sync.RWMutex
	state   State
}

// Option customizes a Loop.
type Option func(*Loop)

// WithSink mirrors every diagnostic chunk to sink.
func WithSink(sink telemetry.Sink) Option {
	return func(l *Loop) {
		l.reporter = telemetry.NewReporter(l.reporter.Port(), sink)
	}
}

// WithTickHook calls fn with the state at the end of every tick.
func WithTickHook(fn func(State)) Option {
	return func(l *Loop) {
		l.onTick = fn
	}
}

// New builds a loop for cfg.Mode on top of h.
func New(cfg *config.Config, h *hw.Handle, opts ...Option) (*Loop, error) {
	if err := checkMode(cfg.Mode); err != nil {
		return nil, err
	}
	sleeper := h.Delay
	if sleeper == nil {
		sleeper = delay.Real{}
	}
	l := &Loop{
		mode: cfg.Mode,
		sensors: Sensors{
			Left:      adc.Channel(cfg.Sensors.Left),
			Center:    adc.Channel(cfg.Sensors.Center),
			Right:     adc.Channel(cfg.Sensors.Right),
			Distance:  adc.Channel(cfg.Sensors.Distance),
			Proximity: adc.Channel(cfg.Sensors.Proximity),
		},
		averager: sampling.NewAverager(h.ADC, cfg.Sampling.Samples),
		steering: control.NewSteering(cfg),
		wall:     control.NewWallFollower(cfg),
		motion:   motion.NewController(h.Left, h.Right),
		reporter: telemetry.NewReporter(h.Serial, nil),
		delay:    sleeper,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.state.Mode = l.mode
	return l, nil
}

func checkMode(mode string) error {
	switch mode {
	case config.ModeLine, config.ModeWall:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// Mode returns the active mode.
func (l *Loop) Mode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Tick runs one complete iteration. It cannot be interrupted once
// started; concurrent callers are serialized.
func (l *Loop) Tick() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		st  State
		err error
	)
	switch l.mode {
	case config.ModeLine:
		st, err = l.lineTick()
	case config.ModeWall:
		st, err = l.wallTick()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMode, l.mode)
	}
	if err != nil {
		return fmt.Errorf("%s tick: %w", l.mode, err)
	}

	l.stateMu.Lock()
	st.Tick = l.state.Tick + 1
	st.Mode = l.mode
	l.state = st
	l.stateMu.Unlock()

	debug.Tick(st.Tick, st.Mode, st.Decision)
	if l.onTick != nil {
		l.onTick(st)
	}
	return nil
}

// lineTick: sample, steer, clamp, drive, report.
func (l *Loop) lineTick() (State, error) {
	s := l.sensors
	means, err := l.averager.AverageAll(s.Left, s.Center, s.Right)
	if err != nil {
		return State{}, err
	}
	reading := control.LineReading{Left: means[0], Center: means[1], Right: means[2]}

	res := l.steering.Compute(reading)

	if err := l.motion.Drive(res.Command); err != nil {
		return State{}, err
	}
	if err := l.reporter.Report(telemetry.LineFields(res.LeftSpeed, res.RightSpeed)...); err != nil {
		return State{}, err
	}

	return State{
		Decision: res.Decision.String(),
		Left:     res.Command.Left.String(),
		Right:    res.Command.Right.String(),
		Readings: map[string]float64{
			"left":        reading.Left,
			"center":      reading.Center,
			"right":       reading.Right,
			"error":       res.Error,
			"left_speed":  res.LeftSpeed,
			"right_speed": res.RightSpeed,
		},
	}, nil
}

// wallTick: sample, threshold, drive, report, then the proximity
// override which overwrites the branch command and holds it.
func (l *Loop) wallTick() (State, error) {
	s := l.sensors
	means, err := l.averager.AverageAll(s.Distance, s.Proximity)
	if err != nil {
		return State{}, err
	}

	res := l.wall.Compute(control.WallReading{Distance: means[0], Proximity: means[1]})

	if err := l.motion.Drive(res.Command); err != nil {
		return State{}, err
	}
	if err := l.reporter.Report(telemetry.WallFields(res.Proximity, res.Distance)...); err != nil {
		return State{}, err
	}

	st := State{
		Decision: res.Decision.String(),
		Left:     res.Command.Left.String(),
		Right:    res.Command.Right.String(),
		Readings: map[string]float64{
			"distance_raw": means[0],
			"voltage":      res.Voltage,
			"distance_cm":  float64(telemetry.Truncate(res.Distance)),
			"proximity":    res.Proximity,
		},
	}

	if res.Reverse {
		debug.Live("Proximity %.1f: reversing for %v", res.Proximity, res.ReverseFor)
		if err := l.motion.Drive(res.ReverseCommand); err != nil {
			return State{}, err
		}
		l.delay.Sleep(res.ReverseFor)
		st.Reversed = true
		st.Left = res.ReverseCommand.Left.String()
		st.Right = res.ReverseCommand.Right.String()
	}
	return st, nil
}

// Run ticks until ctx is cancelled or maxTicks ticks completed
// (maxTicks <= 0 means no limit). Cancellation is only observed between
// ticks. The motors are braked before Run returns.
func (l *Loop) Run(ctx context.Context, maxTicks int) (err error) {
	debug.Info("Control loop started (mode=%s, ticks=%d)", l.Mode(), maxTicks)
	defer func() {
		if stopErr := l.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
		debug.Info("Control loop stopped after %d ticks", l.State().Tick)
	}()

	for n := 0; maxTicks <= 0 || n < maxTicks; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := l.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Stop brakes both motors, waiting for a running tick to finish first.
func (l *Loop) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.motion.Stop()
}

// State returns a snapshot of the last completed tick.
func (l *Loop) State() State {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.state.clone()
}
