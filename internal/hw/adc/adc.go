// Package adc exposes analog sensor inputs as blocking single-conversion reads.
package adc

import (
	"errors"
	"sync"

	"github.com/cjeanneret/RoverGo/internal/debug"
)

// Channel identifies one analog input.
type Channel int

// Sample is one 10-bit conversion result.
type Sample uint16

// MaxSample is the full scale value of a Sample.
const MaxSample Sample = 1023

// ErrConversionTimeout is returned by a Reader wrapped with WithTimeout
// when a conversion does not complete in time.
var ErrConversionTimeout = errors.New("adc: conversion timed out")

// Reader performs blocking conversions on analog channels.
type Reader interface {
	Read(ch Channel) (Sample, error)
	Close() error
}

// Options configures the real converter.
type Options struct {
	Bus            string  // I2C bus name, "" for the first one
	Address        uint16  // I2C address
	FullScaleVolts float64 // input voltage mapped to MaxSample
	DataRateHz     int
}

// NewReader creates an ADC reader based on the chosen mode.
// If mock is true, returns a MockReader (for dev/test).
// If mock is false, returns an ADS1115Reader on the I2C bus.
func NewReader(mock bool, opts Options) (Reader, error) {
	if mock {
		debug.Info("Using MOCK ADC reader (development mode)")
		return NewMockReader(MaxSample / 2), nil
	}
	return NewADS1115Reader(opts)
}

// MockReader returns scripted samples. Each channel cycles through the
// values given to Set; channels without a script return the fallback.
type MockReader struct {
	mu       sync.Mutex
	fallback Sample
	script   map[Channel][]Sample
	pos      map[Channel]int
	reads    map[Channel]int
}

// NewMockReader creates a mock returning fallback on every channel.
func NewMockReader(fallback Sample) *MockReader {
	return &MockReader{
		fallback: fallback,
		script:   make(map[Channel][]Sample),
		pos:      make(map[Channel]int),
		reads:    make(map[Channel]int),
	}
}

// Set scripts the values returned for ch, replacing any previous script.
func (m *MockReader) Set(ch Channel, values ...Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script[ch] = append([]Sample(nil), values...)
	m.pos[ch] = 0
}

func (m *MockReader) Read(ch Channel) (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads[ch]++
	v := m.fallback
	if values := m.script[ch]; len(values) > 0 {
		v = values[m.pos[ch]%len(values)]
		m.pos[ch]++
	}
	debug.ADC(int(ch), v)
	return v, nil
}

// Reads returns how many conversions were performed on ch.
func (m *MockReader) Reads(ch Channel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[ch]
}

func (m *MockReader) Close() error {
	debug.Trace("ADC Close (mock)")
	return nil
}
