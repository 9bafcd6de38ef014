package uart

import (
	"fmt"

	"github.com/cjeanneret/RoverGo/internal/debug"
	"go.bug.st/serial"
)

// DefaultBaudRate is the diagnostic line speed of the reference robot.
const DefaultBaudRate = 9600

// SerialPort transmits over a real UART using go.bug.st/serial, 8N1.
type SerialPort struct {
	name string
	conn serial.Port
}

// OpenSerialPort opens name for transmission.
func OpenSerialPort(name string, baudRate int) (*SerialPort, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	debug.Info("Opening serial port %s at %d baud", name, baudRate)

	conn, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return &SerialPort{name: name, conn: conn}, nil
}

// Transmit writes p and waits until the driver has sent it.
func (s *SerialPort) Transmit(p []byte) error {
	debug.Serial(p)
	for len(p) > 0 {
		n, err := s.conn.Write(p)
		if err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
		p = p[n:]
	}
	if err := s.conn.Drain(); err != nil {
		return fmt.Errorf("drain %s: %w", s.name, err)
	}
	return nil
}

func (s *SerialPort) Close() error {
	debug.Trace("UART Close %s", s.name)
	return s.conn.Close()
}
