package ranging

import (
	"math"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/hw/adc"
)

// Calculator converts averaged range-sensor samples to centimeters using
// the empirical power-law fit of the IR sensor.
type Calculator struct {
	VRef        float64 // reference voltage of the converter
	ADCMax      float64 // sample value mapped to VRef
	Coefficient float64
	Exponent    float64
}

// NewCalculator creates a range calculator from configuration.
func NewCalculator(cfg *config.Config) *Calculator {
	return &Calculator{
		VRef:        cfg.Wall.VRef,
		ADCMax:      cfg.Wall.ADCMax,
		Coefficient: cfg.Wall.Coefficient,
		Exponent:    cfg.Wall.Exponent,
	}
}

// Voltage converts a (possibly averaged) sample to volts.
func (c *Calculator) Voltage(sample float64) float64 {
	return sample * c.VRef / c.ADCMax
}

// Estimate returns the fitted distance in centimeters for a voltage.
// A non-positive voltage means nothing is in range and yields +Inf.
func (c *Calculator) Estimate(volts float64) float64 {
	if volts <= 0 {
		return math.Inf(1)
	}
	return c.Coefficient * math.Pow(volts, c.Exponent)
}

// Centimeters returns Estimate truncated toward zero, which is the value
// the threshold and the diagnostics work with.
func (c *Calculator) Centimeters(volts float64) float64 {
	return math.Trunc(c.Estimate(volts))
}

// SampleFor returns the raw sample that corresponds to volts, clamped to
// the converter range. Mostly useful to script mock readings.
func (c *Calculator) SampleFor(volts float64) adc.Sample {
	s := math.Round(volts * c.ADCMax / c.VRef)
	if s < 0 {
		return 0
	}
	if s > float64(adc.MaxSample) {
		return adc.MaxSample
	}
	return adc.Sample(s)
}
