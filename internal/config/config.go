package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/RoverGo/internal/hw/pwm"
)

// Operating modes.
const (
	ModeLine = "line" // proportional line following
	ModeWall = "wall" // distance threshold wall following
)

// SensorsConfig maps each sensor role to an analog input channel.
type SensorsConfig struct {
	Left      int `yaml:"left"`      // line mode, left IR
	Center    int `yaml:"center"`    // line mode, center IR (telemetry only)
	Right     int `yaml:"right"`     // line mode, right IR
	Distance  int `yaml:"distance"`  // wall mode, IR range sensor
	Proximity int `yaml:"proximity"` // wall mode, reflective proximity sensor
}

// SamplingConfig controls per-tick acquisition.
type SamplingConfig struct {
	Samples       int `yaml:"samples"`         // raw reads averaged per channel per tick
	ReadTimeoutMs int `yaml:"read_timeout_ms"` // 0 = block forever on a conversion
}

// LineConfig holds the proportional steering constants.
type LineConfig struct {
	Kp                 float64 `yaml:"kp"`
	BaseLeft           float64 `yaml:"base_left"`
	BaseRight          float64 `yaml:"base_right"`
	DeadBand           float64 `yaml:"dead_band"`
	StraightLeft       int     `yaml:"straight_left"`       // fixed duty when inside the dead band
	StraightRight      int     `yaml:"straight_right"`      // fixed duty when inside the dead band
	DifferentiateTurns bool    `yaml:"differentiate_turns"` // false reproduces the firmware (both turns identical)
}

// DutyPair is a fixed left/right duty command.
type DutyPair struct {
	Left  int `yaml:"left"`
	Right int `yaml:"right"`
}

// WallConfig holds the distance threshold constants and fixed commands.
type WallConfig struct {
	VRef               float64  `yaml:"vref"`                // volts at full scale
	ADCMax             float64  `yaml:"adc_max"`             // full scale count (1023 for 10-bit)
	Coefficient        float64  `yaml:"coefficient"`         // distance = coefficient * V^exponent
	Exponent           float64  `yaml:"exponent"`
	TurnDistance       float64  `yaml:"turn_distance"`       // sharp turn at or below this distance
	ProximityThreshold float64  `yaml:"proximity_threshold"` // reverse below this reading
	ReverseMs          int      `yaml:"reverse_ms"`
	SharpTurn          DutyPair `yaml:"sharp_turn"` // left forward, right braked
	Forward            DutyPair `yaml:"forward"`    // both forward, biased
	Reverse            DutyPair `yaml:"reverse"`    // both reverse
}

// ClampConfig describes the actuator floor snap and ceiling.
type ClampConfig struct {
	Threshold float64 `yaml:"threshold"` // values below this snap to Floor
	Floor     float64 `yaml:"floor"`
	Ceiling   float64 `yaml:"ceiling"`
}

// MotorConfig describes one H-bridge: two PWM outputs and which one drives forward.
type MotorConfig struct {
	PinA    int    `yaml:"pin_a"`
	PinB    int    `yaml:"pin_b"`
	Forward string `yaml:"forward"` // "a" or "b"
}

// PWM backends.
const (
	DriverPCA9685 = "pca9685" // 16 independent channels on I2C
	DriverRPi     = "rpio"    // SoC hardware PWM, two units shared by BCM 12/18 and 13/19
)

// MotorsConfig aggregates both motors and the PWM backend driving them.
type MotorsConfig struct {
	Left        MotorConfig `yaml:"left"`
	Right       MotorConfig `yaml:"right"`
	FrequencyHz int         `yaml:"frequency_hz"`
	Driver      string      `yaml:"driver"`     // "pca9685" or "rpio"
	I2CBus      string      `yaml:"i2c_bus"`    // pca9685 only, "" = first available bus
	Address     uint16      `yaml:"address"`    // pca9685 only
	EnablePin   int         `yaml:"enable_pin"` // BCM pin wired to the pca9685 OE line, -1 = not wired
}

// ADCConfig configures the external ADS1115 converter.
type ADCConfig struct {
	I2CBus         string  `yaml:"i2c_bus"` // "" = first available bus
	Address        uint16  `yaml:"address"`
	FullScaleVolts float64 `yaml:"full_scale_volts"`
	DataRateHz     int     `yaml:"data_rate_hz"`
}

// SerialConfig configures the diagnostic UART.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel   int  `yaml:"debug_level"`   // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockHardware bool `yaml:"mock_hardware"` // use mock ADC/PWM/UART (true=dev/test, false=real Raspberry Pi)
	TickLimit    int  `yaml:"tick_limit"`    // 0 = run until interrupted
}

// Config aggregates all application configuration.
type Config struct {
	Mode     string         `yaml:"mode"`
	Sensors  SensorsConfig  `yaml:"sensors"`
	Sampling SamplingConfig `yaml:"sampling"`
	Line     LineConfig     `yaml:"line"`
	Wall     WallConfig     `yaml:"wall"`
	Clamp    ClampConfig    `yaml:"clamp"`
	Motors   MotorsConfig   `yaml:"motors"`
	ADC      ADCConfig      `yaml:"adc"`
	Serial   SerialConfig   `yaml:"serial"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the configuration of the reference robot.
// The constants are empirical calibration values, not tuning knobs.
func Default() *Config {
	return &Config{
		Mode: ModeLine,
		Sensors: SensorsConfig{
			Left:      0,
			Center:    1,
			Right:     2,
			Distance:  0,
			Proximity: 1,
		},
		Sampling: SamplingConfig{
			Samples: 10,
		},
		Line: LineConfig{
			Kp:            0.09,
			BaseLeft:      95,
			BaseRight:     85,
			DeadBand:      30,
			StraightLeft:  100,
			StraightRight: 90,
		},
		Wall: WallConfig{
			VRef:               5,
			ADCMax:             1023,
			Coefficient:        29.98,
			Exponent:           -1.17,
			TurnDistance:       10,
			ProximityThreshold: 800,
			ReverseMs:          450,
			SharpTurn:          DutyPair{Left: 220, Right: 0},
			Forward:            DutyPair{Left: 50, Right: 255},
			Reverse:            DutyPair{Left: 50, Right: 255},
		},
		Clamp: ClampConfig{
			Threshold: 30,
			Floor:     20,
			Ceiling:   255,
		},
		Motors: MotorsConfig{
			Right:       MotorConfig{PinA: 0, PinB: 1, Forward: "a"},
			Left:        MotorConfig{PinA: 2, PinB: 3, Forward: "b"},
			FrequencyHz: 1000,
			Driver:      DriverPCA9685,
			Address:     0x40,
			EnablePin:   -1,
		},
		ADC: ADCConfig{
			Address:        0x48,
			FullScaleVolts: 5,
			DataRateHz:     860,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyAMA0",
			BaudRate: 9600,
		},
		Defaults: DefaultsConfig{
			DebugLevel:   1,
			MockHardware: true,
		},
	}
}

// Load reads a YAML file and returns the configuration.
// Fields missing from the file keep their Default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if cfg.Sampling.Samples <= 0 {
		cfg.Sampling.Samples = 10 // firmware window
	}
	if cfg.Motors.FrequencyHz <= 0 {
		cfg.Motors.FrequencyHz = 1000
	}
	if cfg.Serial.BaudRate <= 0 {
		cfg.Serial.BaudRate = 9600
	}
	cfg.Motors.Driver = strings.ToLower(cfg.Motors.Driver)
	cfg.Motors.Left.Forward = strings.ToLower(cfg.Motors.Left.Forward)
	cfg.Motors.Right.Forward = strings.ToLower(cfg.Motors.Right.Forward)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the hardware cannot represent.
func (c *Config) Validate() error {
	if c.Mode != ModeLine && c.Mode != ModeWall {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeLine, ModeWall, c.Mode)
	}
	if c.Sampling.Samples < 1 {
		return fmt.Errorf("sampling.samples must be >= 1, got %d", c.Sampling.Samples)
	}
	if c.Sampling.ReadTimeoutMs < 0 {
		return fmt.Errorf("sampling.read_timeout_ms must be >= 0, got %d", c.Sampling.ReadTimeoutMs)
	}

	if c.Clamp.Ceiling <= 0 || c.Clamp.Ceiling > 255 {
		return fmt.Errorf("clamp.ceiling must be between 1 and 255, got %.2f", c.Clamp.Ceiling)
	}
	if c.Clamp.Floor < 0 || c.Clamp.Floor > c.Clamp.Threshold {
		return fmt.Errorf("clamp.floor must be between 0 and clamp.threshold (%.2f), got %.2f", c.Clamp.Threshold, c.Clamp.Floor)
	}
	if c.Clamp.Threshold > c.Clamp.Ceiling {
		return fmt.Errorf("clamp.threshold must be <= clamp.ceiling, got %.2f", c.Clamp.Threshold)
	}

	if c.Line.DeadBand < 0 {
		return fmt.Errorf("line.dead_band must be >= 0, got %.2f", c.Line.DeadBand)
	}
	if err := checkDuty("line.straight_left", c.Line.StraightLeft); err != nil {
		return err
	}
	if err := checkDuty("line.straight_right", c.Line.StraightRight); err != nil {
		return err
	}

	if c.Wall.VRef <= 0 || c.Wall.ADCMax <= 0 {
		return fmt.Errorf("wall.vref and wall.adc_max must be > 0")
	}
	if c.Wall.Coefficient <= 0 || c.Wall.Exponent == 0 || math.IsNaN(c.Wall.Exponent) {
		return fmt.Errorf("wall calibration invalid: coefficient=%g exponent=%g", c.Wall.Coefficient, c.Wall.Exponent)
	}
	if c.Wall.ReverseMs < 0 {
		return fmt.Errorf("wall.reverse_ms must be >= 0, got %d", c.Wall.ReverseMs)
	}
	for name, p := range map[string]DutyPair{
		"wall.sharp_turn": c.Wall.SharpTurn,
		"wall.forward":    c.Wall.Forward,
		"wall.reverse":    c.Wall.Reverse,
	} {
		if err := checkDuty(name+".left", p.Left); err != nil {
			return err
		}
		if err := checkDuty(name+".right", p.Right); err != nil {
			return err
		}
	}

	for name, m := range map[string]MotorConfig{"motors.left": c.Motors.Left, "motors.right": c.Motors.Right} {
		if m.Forward != "a" && m.Forward != "b" {
			return fmt.Errorf("%s.forward must be \"a\" or \"b\", got %q", name, m.Forward)
		}
		if m.PinA == m.PinB {
			return fmt.Errorf("%s: pin_a and pin_b must differ, both are %d", name, m.PinA)
		}
	}
	return c.Motors.validateOutputs()
}

// validateOutputs checks that the four H-bridge outputs are distinct and
// that the backend can set each of them independently.
func (m MotorsConfig) validateOutputs() error {
	pins := map[string]int{
		"motors.left.pin_a":  m.Left.PinA,
		"motors.left.pin_b":  m.Left.PinB,
		"motors.right.pin_a": m.Right.PinA,
		"motors.right.pin_b": m.Right.PinB,
	}
	seen := make(map[int]string, len(pins))
	units := make(map[int]string, len(pins))
	for _, name := range []string{"motors.left.pin_a", "motors.left.pin_b", "motors.right.pin_a", "motors.right.pin_b"} {
		pin := pins[name]
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("%s and %s both use output %d", other, name, pin)
		}
		seen[pin] = name

		switch m.Driver {
		case DriverPCA9685:
			if pin < 0 || pin > 15 {
				return fmt.Errorf("%s must be a pca9685 channel 0-15, got %d", name, pin)
			}
		case DriverRPi:
			unit, ok := pwm.RPiUnit(pwm.Channel(pin))
			if !ok {
				return fmt.Errorf("%s: BCM pin %d has no hardware PWM", name, pin)
			}
			if other, ok := units[unit]; ok {
				return fmt.Errorf("%s and %s share PWM unit %d and cannot hold different duties", other, name, unit)
			}
			units[unit] = name
		default:
			return fmt.Errorf("motors.driver must be %q or %q, got %q", DriverPCA9685, DriverRPi, m.Driver)
		}
	}
	if m.EnablePin < -1 || m.EnablePin > 27 {
		return fmt.Errorf("motors.enable_pin must be a BCM pin 0-27 or -1, got %d", m.EnablePin)
	}
	if m.Driver == DriverPCA9685 && (m.FrequencyHz < 24 || m.FrequencyHz > 1526) {
		return fmt.Errorf("motors.frequency_hz must be between 24 and 1526 for pca9685, got %d", m.FrequencyHz)
	}
	return nil
}

func checkDuty(name string, v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%s must be between 0 and 255, got %d", name, v)
	}
	return nil
}

// ValidateConfigPath accepts only .yaml files located directly in a configs/ directory.
func ValidateConfigPath(path string) error {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path must not contain '..': %s", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension: %s", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config file must be in a configs/ directory: %s", path)
	}
	return nil
}

// ReverseDuration returns how long the wall mode reverse manoeuvre is held.
func (c *Config) ReverseDuration() time.Duration {
	return time.Duration(c.Wall.ReverseMs) * time.Millisecond
}

// ReadTimeout returns the per-conversion timeout, 0 meaning none.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Sampling.ReadTimeoutMs) * time.Millisecond
}
