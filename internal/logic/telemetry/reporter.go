// Package telemetry formats the per-tick diagnostic stream sent over the
// serial line. The framing is consumed by existing log tooling and must
// not change: each value is a decimal integer followed by a literal suffix.
package telemetry

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cjeanneret/RoverGo/internal/hw/uart"
)

// Field is one value of a report and the literal text that follows it.
type Field struct {
	Value  float64
	Suffix string
}

// Sink receives a copy of every transmitted chunk.
type Sink func(chunk string)

// Reporter transmits diagnostic fields over a serial port.
type Reporter struct {
	port uart.Port
	sink Sink
}

// NewReporter creates a reporter writing to port. sink may be nil.
func NewReporter(port uart.Port, sink Sink) *Reporter {
	return &Reporter{port: port, sink: sink}
}

// Report transmits each field in order, one Transmit call per field.
// It blocks until the port accepted every byte.
func (r *Reporter) Report(fields ...Field) error {
	for _, f := range fields {
		chunk := Format(f)
		if err := r.port.Transmit([]byte(chunk)); err != nil {
			return fmt.Errorf("transmit %q: %w", chunk, err)
		}
		if r.sink != nil {
			r.sink(chunk)
		}
	}
	return nil
}

// Format renders a field the way the firmware did: the value truncated
// toward zero to an int, in decimal, followed by the suffix.
func Format(f Field) string {
	return strconv.FormatInt(int64(Truncate(f.Value)), 10) + f.Suffix
}

// Truncate converts v to a 32-bit integer toward zero. NaN becomes 0 and
// out-of-range values saturate, so +Inf (nothing in range) is reported as
// the largest int32.
func Truncate(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}

// LineFields returns the line-mode report: left then right motor speed.
func LineFields(left, right float64) []Field {
	return []Field{
		{Value: left, Suffix: "Left\n"},
		{Value: right, Suffix: "Right\n"},
	}
}

// WallFields returns the wall-mode report: proximity reading then distance.
func WallFields(proximity, distance float64) []Field {
	return []Field{
		{Value: proximity, Suffix: "_"},
		{Value: distance, Suffix: "\n"},
	}
}

// Port returns the underlying serial port.
func (r *Reporter) Port() uart.Port {
	return r.port
}
