package pwm

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
// BCM 12/18 share PWM0 and 13/19 share PWM1, so at most one pin per unit
// can be set up: two outputs on one unit would always hold the same duty.
type RPiDriver struct {
	pins  map[Channel]rpio.Pin
	units map[int]Channel
	freq  int
}

// ErrSharedUnit is returned when a pin would share a PWM unit with a pin
// already in use.
var ErrSharedUnit = errors.New("PWM unit already in use")

// RPiUnit returns the SoC PWM unit driving a BCM pin.
func RPiUnit(ch Channel) (int, bool) {
	switch ch {
	case 12, 18:
		return 0, true
	case 13, 19:
		return 1, true
	}
	return 0, false
}

// NewRPiRealDriver creates a real PWM driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/mem (root).
func NewRPiRealDriver(frequencyHz int) (*RPiDriver, error) {
	debug.Info("Initializing real PWM driver (go-rpio)")

	if frequencyHz <= 0 {
		return nil, fmt.Errorf("invalid PWM frequency: %d Hz", frequencyHz)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Trace("GPIO memory mapped successfully")

	return &RPiDriver{
		pins:  make(map[Channel]rpio.Pin),
		units: make(map[int]Channel),
		freq:  frequencyHz,
	}, nil
}

func (r *RPiDriver) SetupChannel(ch Channel) error {
	unit, ok := RPiUnit(ch)
	if !ok {
		return fmt.Errorf("BCM pin %d has no hardware PWM", ch)
	}
	if owner, taken := r.units[unit]; taken && owner != ch {
		return fmt.Errorf("BCM pin %d: %w by pin %d (unit %d)", ch, ErrSharedUnit, owner, unit)
	}

	p := rpio.Pin(ch)
	p.Mode(rpio.Pwm)
	// The PWM clock runs MaxDuty times faster than the output so that a
	// duty of value/MaxDuty yields the configured output frequency.
	p.Freq(r.freq * MaxDuty)
	p.DutyCycle(0, MaxDuty)
	r.pins[ch] = p
	r.units[unit] = ch

	debug.Trace("PWM SetupChannel %d at %d Hz", ch, r.freq)
	return nil
}

func (r *RPiDriver) SetDutyCycle(ch Channel, value uint8) error {
	debug.PWM(int(ch), value)

	p, ok := r.pins[ch]
	if !ok {
		if err := r.SetupChannel(ch); err != nil {
			return err
		}
		p = r.pins[ch]
	}

	p.DutyCycle(uint32(value), MaxDuty)
	return nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("PWM Close (real driver)")

	// Stop every output and leave the pins as low outputs (motors coast)
	for ch, p := range r.pins {
		debug.Trace("Resetting PWM pin %d", ch)
		p.DutyCycle(0, MaxDuty)
		p.Output()
		p.Low()
	}

	return rpio.Close()
}
