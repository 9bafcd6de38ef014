// Package hw groups the hardware capabilities the control loop needs
// behind a single handle that is opened once and closed on shutdown.
package hw

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/cjeanneret/RoverGo/internal/hw/adc"
	"github.com/cjeanneret/RoverGo/internal/hw/delay"
	"github.com/cjeanneret/RoverGo/internal/hw/motor"
	"github.com/cjeanneret/RoverGo/internal/hw/pwm"
	"github.com/cjeanneret/RoverGo/internal/hw/uart"
)

// Handle owns every peripheral of the robot.
type Handle struct {
	ADC    adc.Reader
	PWM    pwm.Driver
	Serial uart.Port
	Delay  delay.Sleeper
	Left   *motor.Motor
	Right  *motor.Motor

	// MockADC is the scripted converter behind ADC when mock hardware is used.
	MockADC *adc.MockReader
}

// Open brings up the peripherals described by cfg. Mock hardware is used
// when cfg.Defaults.MockHardware is set. On failure, everything opened so
// far is closed again.
func Open(cfg *config.Config) (h *Handle, err error) {
	mock := cfg.Defaults.MockHardware
	h = &Handle{Delay: delay.Real{}}
	defer func() {
		if err != nil {
			err = multierr.Append(err, h.Close())
			h = nil
		}
	}()

	reader, err := adc.NewReader(mock, adc.Options{
		Bus:            cfg.ADC.I2CBus,
		Address:        cfg.ADC.Address,
		FullScaleVolts: cfg.ADC.FullScaleVolts,
		DataRateHz:     cfg.ADC.DataRateHz,
	})
	if err != nil {
		return h, fmt.Errorf("open adc: %w", err)
	}
	if m, ok := reader.(*adc.MockReader); ok {
		h.MockADC = m
	}
	h.ADC = adc.WithTimeout(reader, cfg.ReadTimeout())

	h.PWM, err = pwm.NewDriver(mock, PWMOptions(cfg.Motors))
	if err != nil {
		return h, fmt.Errorf("open pwm: %w", err)
	}

	h.Serial, err = uart.NewPort(mock, cfg.Serial.Port, cfg.Serial.BaudRate)
	if err != nil {
		return h, fmt.Errorf("open serial: %w", err)
	}

	h.Left, err = motor.NewMotor(h.PWM, MotorConfig("left", cfg.Motors.Left))
	if err != nil {
		return h, err
	}
	h.Right, err = motor.NewMotor(h.PWM, MotorConfig("right", cfg.Motors.Right))
	if err != nil {
		return h, err
	}

	debug.Info("Hardware ready (mock=%v)", mock)
	return h, nil
}

// PWMOptions converts the PWM backend settings of the motors section.
func PWMOptions(mc config.MotorsConfig) pwm.Options {
	return pwm.Options{
		Backend:     mc.Driver,
		FrequencyHz: mc.FrequencyHz,
		I2CBus:      mc.I2CBus,
		Address:     mc.Address,
		EnablePin:   mc.EnablePin,
	}
}

// MotorConfig converts a motor section of the configuration.
func MotorConfig(name string, mc config.MotorConfig) motor.Config {
	return motor.Config{
		Name:       name,
		PinA:       pwm.Channel(mc.PinA),
		PinB:       pwm.Channel(mc.PinB),
		ForwardOnB: mc.Forward == "b",
	}
}

// Close brakes the motors and releases every peripheral.
// All errors are reported, not only the first one.
func (h *Handle) Close() error {
	var err error
	if h.Left != nil {
		err = multierr.Append(err, h.Left.Stop())
	}
	if h.Right != nil {
		err = multierr.Append(err, h.Right.Stop())
	}
	if h.PWM != nil {
		err = multierr.Append(err, h.PWM.Close())
	}
	if h.Serial != nil {
		err = multierr.Append(err, h.Serial.Close())
	}
	if h.ADC != nil {
		err = multierr.Append(err, h.ADC.Close())
	}
	return err
}
