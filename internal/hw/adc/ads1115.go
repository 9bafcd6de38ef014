package adc

import (
	"fmt"
	"math"

	"github.com/cjeanneret/RoverGo/internal/debug"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// ADS1115Reader reads single-ended channels of an ADS1115 over I2C and
// rescales the result to the 10-bit range the control laws are calibrated for.
type ADS1115Reader struct {
	bus       i2c.BusCloser
	dev       *ads1x15.Dev
	pins      map[Channel]ads1x15.PinADC
	fullScale physic.ElectricPotential
	rate      physic.Frequency
}

// NewADS1115Reader opens the I2C bus and the converter.
func NewADS1115Reader(opts Options) (*ADS1115Reader, error) {
	debug.Info("Initializing ADS1115 ADC on I2C bus %q addr 0x%02x", opts.Bus, opts.Address)

	if opts.FullScaleVolts <= 0 {
		return nil, fmt.Errorf("invalid ADC full scale: %g V", opts.FullScaleVolts)
	}
	if opts.DataRateHz <= 0 {
		opts.DataRateHz = 860
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(opts.Bus)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", opts.Bus, err)
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: opts.Address})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("open ADS1115: %w", err)
	}

	return &ADS1115Reader{
		bus:       bus,
		dev:       dev,
		pins:      make(map[Channel]ads1x15.PinADC),
		fullScale: physic.ElectricPotential(opts.FullScaleVolts * float64(physic.Volt)),
		rate:      physic.Frequency(opts.DataRateHz) * physic.Hertz,
	}, nil
}

func (a *ADS1115Reader) pin(ch Channel) (ads1x15.PinADC, error) {
	if p, ok := a.pins[ch]; ok {
		return p, nil
	}
	if ch < 0 || ch > 3 {
		return nil, fmt.Errorf("ADS1115 has no single-ended channel %d", ch)
	}
	p, err := a.dev.PinForChannel(ads1x15.Channel(ch), a.fullScale, a.rate, ads1x15.SaveEnergy)
	if err != nil {
		return nil, fmt.Errorf("configure ADS1115 channel %d: %w", ch, err)
	}
	a.pins[ch] = p
	return p, nil
}

func (a *ADS1115Reader) Read(ch Channel) (Sample, error) {
	p, err := a.pin(ch)
	if err != nil {
		return 0, err
	}
	s, err := p.Read()
	if err != nil {
		return 0, fmt.Errorf("read ADS1115 channel %d: %w", ch, err)
	}
	v := scale(s.V, a.fullScale)
	debug.ADC(int(ch), v)
	return v, nil
}

func (a *ADS1115Reader) Close() error {
	for ch, p := range a.pins {
		if err := p.Halt(); err != nil {
			debug.Verbose("halt ADS1115 channel %d: %v", ch, err)
		}
	}
	return a.bus.Close()
}

// scale maps a measured voltage onto [0, MaxSample].
func scale(v, fullScale physic.ElectricPotential) Sample {
	if v <= 0 {
		return 0
	}
	if v >= fullScale {
		return MaxSample
	}
	return Sample(math.Round(float64(v) / float64(fullScale) * float64(MaxSample)))
}
