package pwm

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"

	"github.com/cjeanneret/RoverGo/internal/debug"
)

// pcaChannels is the number of outputs of one PCA9685.
const pcaChannels = 16

// pcaCounts is the full-scale value of the 12-bit PCA9685 counter.
const pcaCounts = 4095

// PCA9685Driver drives H-bridge inputs from a PCA9685 on I2C. Every
// channel has its own duty register. The optional output-enable line is
// held low through go-rpio while the driver is open.
type PCA9685Driver struct {
	bus    i2c.BusCloser
	dev    *pca9685.Dev
	enable *rpio.Pin
}

// NewPCA9685Driver opens the I2C bus, sets the output frequency and
// starts with every channel off.
func NewPCA9685Driver(opts Options) (*PCA9685Driver, error) {
	debug.Info("Initializing PCA9685 PWM on I2C bus %q addr 0x%02x", opts.I2CBus, opts.Address)

	if opts.FrequencyHz <= 0 {
		return nil, fmt.Errorf("invalid PWM frequency: %d Hz", opts.FrequencyHz)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(opts.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", opts.I2CBus, err)
	}
	dev, err := pca9685.NewI2C(bus, opts.Address)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("open PCA9685: %w", err)
	}
	if err := dev.SetPwmFreq(physic.Frequency(opts.FrequencyHz) * physic.Hertz); err != nil {
		bus.Close()
		return nil, fmt.Errorf("set PCA9685 frequency: %w", err)
	}
	if err := dev.SetAllPwm(0, 0); err != nil {
		bus.Close()
		return nil, fmt.Errorf("clear PCA9685 outputs: %w", err)
	}

	d := &PCA9685Driver{bus: bus, dev: dev}
	if opts.EnablePin >= 0 {
		if err := rpio.Open(); err != nil {
			bus.Close()
			return nil, fmt.Errorf("failed to open GPIO for PCA9685 OE: %w", err)
		}
		p := rpio.Pin(opts.EnablePin)
		p.Output()
		p.Low()
		d.enable = &p
		debug.Trace("PCA9685 outputs enabled on BCM %d", opts.EnablePin)
	}
	return d, nil
}

func (d *PCA9685Driver) SetupChannel(ch Channel) error {
	if ch < 0 || ch >= pcaChannels {
		return fmt.Errorf("PCA9685 has no channel %d", ch)
	}
	debug.Trace("PWM SetupChannel %d (pca9685)", ch)
	return d.SetDutyCycle(ch, 0)
}

func (d *PCA9685Driver) SetDutyCycle(ch Channel, value uint8) error {
	debug.PWM(int(ch), value)
	if ch < 0 || ch >= pcaChannels {
		return fmt.Errorf("PCA9685 has no channel %d", ch)
	}
	if err := d.dev.SetPwm(int(ch), 0, pcaOffCount(value)); err != nil {
		return fmt.Errorf("set PCA9685 channel %d: %w", ch, err)
	}
	return nil
}

func (d *PCA9685Driver) Close() error {
	debug.Trace("PWM Close (pca9685)")

	err := d.dev.SetAllPwm(0, 0)
	if d.enable != nil {
		// OE high releases every output (motors coast).
		d.enable.High()
		if cerr := rpio.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if cerr := d.bus.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// pcaOffCount converts an 8-bit duty into the counter value at which the
// output turns off. A zero count keeps the output low for the whole period.
func pcaOffCount(value uint8) gpio.Duty {
	return gpio.Duty(uint32(value) * pcaCounts / MaxDuty)
}
