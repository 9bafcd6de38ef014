package pwm

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/RoverGo/internal/debug"
)

// Channel identifies one PWM output: a PCA9685 channel or a BCM pin,
// depending on the backend.
type Channel int

// MaxDuty is the duty value of a fully-on output, matching an 8-bit compare register.
const MaxDuty = 255

// Backends accepted by NewDriver.
const (
	BackendPCA9685 = "pca9685"
	BackendRPi     = "rpio"
)

// Driver defines the abstract interface for PWM outputs.
// This allows plugging in a real implementation
// or a mock for development on PC.
type Driver interface {
	SetupChannel(ch Channel) error
	SetDutyCycle(ch Channel, value uint8) error
	Close() error
}

// Options selects and configures a real backend.
type Options struct {
	Backend     string
	FrequencyHz int
	I2CBus      string // pca9685 only
	Address     uint16 // pca9685 only
	EnablePin   int    // BCM pin on the pca9685 OE line, < 0 = not wired
}

// MockDriver is a test implementation that logs actions and
// remembers the last duty written to each channel.
type MockDriver struct {
	mu   sync.Mutex
	duty map[Channel]uint8
}

// NewDriver creates a PWM driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// Otherwise opts.Backend picks the PCA9685 or the Raspberry Pi SoC PWM.
func NewDriver(mock bool, opts Options) (Driver, error) {
	if mock {
		debug.Info("Using MOCK PWM driver (development mode)")
		return &MockDriver{}, nil
	}
	switch opts.Backend {
	case BackendPCA9685:
		return NewPCA9685Driver(opts)
	case BackendRPi:
		return NewRPiRealDriver(opts.FrequencyHz)
	default:
		return nil, fmt.Errorf("unknown PWM backend %q", opts.Backend)
	}
}

func (m *MockDriver) SetupChannel(ch Channel) error {
	debug.Trace("PWM SetupChannel %d (mock)", ch)
	return m.SetDutyCycle(ch, 0)
}

func (m *MockDriver) SetDutyCycle(ch Channel, value uint8) error {
	debug.PWM(int(ch), value)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.duty == nil {
		m.duty = make(map[Channel]uint8)
	}
	m.duty[ch] = value
	return nil
}

// Duty returns the last value written to ch.
func (m *MockDriver) Duty(ch Channel) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duty[ch]
}

func (m *MockDriver) Close() error {
	debug.Trace("PWM Close (mock)")
	return nil
}
