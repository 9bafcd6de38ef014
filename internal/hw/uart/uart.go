package uart

import (
	"bytes"
	"strings"
	"sync"

	"github.com/cjeanneret/RoverGo/internal/debug"
)

// Port is a write-only serial line. Transmit blocks until the bytes
// have left the transmitter.
type Port interface {
	Transmit(p []byte) error
	Close() error
}

// NewPort creates a serial port based on the chosen mode.
// If mock is true, returns a MockPort that keeps everything in memory.
func NewPort(mock bool, name string, baudRate int) (Port, error) {
	if mock {
		debug.Info("Using MOCK serial port (development mode)")
		return &MockPort{}, nil
	}
	return OpenSerialPort(name, baudRate)
}

// MockPort records transmitted bytes.
type MockPort struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (m *MockPort) Transmit(p []byte) error {
	debug.Serial(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Write(p)
	return nil
}

// String returns everything transmitted so far.
func (m *MockPort) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

// Lines splits the transmitted stream on newlines, dropping the trailing empty element.
func (m *MockPort) Lines() []string {
	s := strings.TrimSuffix(m.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Reset discards the recorded bytes.
func (m *MockPort) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Reset()
}

func (m *MockPort) Close() error {
	debug.Trace("UART Close (mock)")
	return nil
}
