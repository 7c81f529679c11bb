package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/drivectl/internal/drive"
	"github.com/san-kum/drivectl/internal/models"
	"github.com/san-kum/drivectl/internal/sensing"
	"github.com/san-kum/drivectl/internal/sim"
)

var ErrInvalidConfig = errors.New("config: invalid")

const (
	DefaultDt          = 0.01
	DefaultDuration    = 10.0
	DefaultTargetSpeed = 500.0
	DefaultLoopRate    = 100.0
)

var Integrators = []string{"euler", "heun", "rk4"}

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Plant      PlantConfig      `yaml:"plant"`
	Sim        SimConfig        `yaml:"sim"`
	Hardware   HardwareConfig   `yaml:"hardware"`
}

type ControllerConfig struct {
	Speed                drive.Gains   `yaml:"speed"`
	Heading              drive.Gains   `yaml:"heading"`
	OutputLimit          float64       `yaml:"output_limit"`
	HeadingOutputLimit   float64       `yaml:"heading_output_limit"`
	SpeedIntegralLimit   float64       `yaml:"speed_integral_limit"`
	HeadingIntegralLimit float64       `yaml:"heading_integral_limit"`
	HeadingPolicy        string        `yaml:"heading_policy"`
	CalibrationSamples   int           `yaml:"calibration_samples"`
	CalibrationInterval  time.Duration `yaml:"calibration_interval"`
}

type PlantConfig struct {
	Robot models.RobotParams `yaml:",inline"`
	Gyro  models.GyroParams  `yaml:"gyro"`
}

type SimConfig struct {
	Dt          float64       `yaml:"dt"`
	Duration    float64       `yaml:"duration"`
	Integrator  string        `yaml:"integrator"`
	Seed        int64         `yaml:"seed"`
	TargetSpeed float64       `yaml:"target_speed"`
	Calibrate   bool          `yaml:"calibrate"`
	Profile     []sim.Segment `yaml:"profile,omitempty"`
}

// HardwareConfig describes the Raspberry Pi wiring. Pins are BCM numbers.
type HardwareConfig struct {
	LeftIn1      int           `yaml:"left_in1" env:"DRIVECTL_LEFT_IN1"`
	LeftIn2      int           `yaml:"left_in2" env:"DRIVECTL_LEFT_IN2"`
	LeftPWM      int           `yaml:"left_pwm" env:"DRIVECTL_LEFT_PWM"`
	RightIn1     int           `yaml:"right_in1" env:"DRIVECTL_RIGHT_IN1"`
	RightIn2     int           `yaml:"right_in2" env:"DRIVECTL_RIGHT_IN2"`
	RightPWM     int           `yaml:"right_pwm" env:"DRIVECTL_RIGHT_PWM"`
	LeftEncA     int           `yaml:"left_enc_a" env:"DRIVECTL_LEFT_ENC_A"`
	LeftEncB     int           `yaml:"left_enc_b" env:"DRIVECTL_LEFT_ENC_B"`
	RightEncA    int           `yaml:"right_enc_a" env:"DRIVECTL_RIGHT_ENC_A"`
	RightEncB    int           `yaml:"right_enc_b" env:"DRIVECTL_RIGHT_ENC_B"`
	PWMFrequency int           `yaml:"pwm_frequency" env:"DRIVECTL_PWM_FREQUENCY"`
	PollPeriod   time.Duration `yaml:"poll_period" env:"DRIVECTL_POLL_PERIOD"`
	Gyro         string        `yaml:"gyro" env:"DRIVECTL_GYRO"`
	I2CBus       string        `yaml:"i2c_bus" env:"DRIVECTL_I2C_BUS"`
	SerialPort   string        `yaml:"serial_port" env:"DRIVECTL_SERIAL_PORT"`
	Baud         int           `yaml:"baud" env:"DRIVECTL_BAUD"`
	LoopRate     float64       `yaml:"loop_rate" env:"DRIVECTL_LOOP_RATE"`
}

func DefaultConfig() *Config {
	d := drive.DefaultConfig()
	return &Config{
		Controller: ControllerConfig{
			Speed:                d.SpeedGains,
			Heading:              d.HeadingGains,
			OutputLimit:          d.OutputLimit,
			HeadingOutputLimit:   d.HeadingOutputLimit,
			SpeedIntegralLimit:   d.SpeedIntegralLimit,
			HeadingIntegralLimit: d.HeadingIntegralLimit,
			HeadingPolicy:        d.HeadingPolicy.String(),
			CalibrationSamples:   sensing.DefaultCalibrationSamples,
			CalibrationInterval:  sensing.DefaultCalibrationInterval,
		},
		Plant: PlantConfig{
			Robot: models.DefaultRobotParams(),
		},
		Sim: SimConfig{
			Dt:          DefaultDt,
			Duration:    DefaultDuration,
			Integrator:  "rk4",
			TargetSpeed: DefaultTargetSpeed,
			Calibrate:   true,
		},
		Hardware: HardwareConfig{
			LeftIn1:      5,
			LeftIn2:      6,
			LeftPWM:      12,
			RightIn1:     20,
			RightIn2:     21,
			RightPWM:     13,
			LeftEncA:     17,
			LeftEncB:     27,
			RightEncA:    22,
			RightEncB:    23,
			PWMFrequency: 20000,
			PollPeriod:   100 * time.Microsecond,
			Gyro:         "i2c",
			I2CBus:       "",
			SerialPort:   "/dev/ttyUSB0",
			Baud:         9600,
			LoopRate:     DefaultLoopRate,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides hardware wiring from DRIVECTL_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(&c.Hardware); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	ctl := c.Controller
	if ctl.OutputLimit <= 0 {
		bad("controller.output_limit must be positive, got %g", ctl.OutputLimit)
	}
	if ctl.HeadingOutputLimit <= 0 || ctl.HeadingOutputLimit > ctl.OutputLimit {
		bad("controller.heading_output_limit must be in (0, output_limit], got %g", ctl.HeadingOutputLimit)
	}
	if ctl.SpeedIntegralLimit < 0 || ctl.HeadingIntegralLimit < 0 {
		bad("controller integral limits must not be negative")
	}
	if _, err := drive.ParseHeadingPolicy(ctl.HeadingPolicy); err != nil {
		bad("controller.heading_policy %q", ctl.HeadingPolicy)
	}
	if ctl.CalibrationSamples < 0 {
		bad("controller.calibration_samples must not be negative, got %d", ctl.CalibrationSamples)
	}

	p := c.Plant.Robot
	if p.MaxWheelSpeed <= 0 || p.TimeConstant <= 0 {
		bad("plant max_wheel_speed and time_constant must be positive")
	}
	if p.CountsPerMeter <= 0 || p.TrackWidth <= 0 {
		bad("plant counts_per_meter and track_width must be positive")
	}
	if c.Plant.Gyro.Noise < 0 {
		bad("plant.gyro.noise must not be negative, got %g", c.Plant.Gyro.Noise)
	}

	s := c.Sim
	if s.Dt <= 0 {
		bad("sim.dt must be positive, got %g", s.Dt)
	}
	if s.Duration <= 0 {
		bad("sim.duration must be positive, got %g", s.Duration)
	}
	if !knownIntegrator(s.Integrator) {
		bad("sim.integrator %q not one of %v", s.Integrator, Integrators)
	}

	h := c.Hardware
	if h.LoopRate <= 0 {
		bad("hardware.loop_rate must be positive, got %g", h.LoopRate)
	}
	if h.Gyro != "i2c" && h.Gyro != "serial" {
		bad("hardware.gyro must be i2c or serial, got %q", h.Gyro)
	}
	if h.Gyro == "serial" && h.Baud <= 0 {
		bad("hardware.baud must be positive, got %d", h.Baud)
	}

	return multierr.Combine(errs...)
}

func knownIntegrator(name string) bool {
	for _, n := range Integrators {
		if n == name {
			return true
		}
	}
	return false
}

// DriveConfig converts the controller section. Call Validate first; an
// unknown policy falls back to speed-only.
func (c *Config) DriveConfig() drive.Config {
	policy, _ := drive.ParseHeadingPolicy(c.Controller.HeadingPolicy)
	return drive.Config{
		SpeedGains:           c.Controller.Speed,
		HeadingGains:         c.Controller.Heading,
		OutputLimit:          c.Controller.OutputLimit,
		HeadingOutputLimit:   c.Controller.HeadingOutputLimit,
		SpeedIntegralLimit:   c.Controller.SpeedIntegralLimit,
		HeadingIntegralLimit: c.Controller.HeadingIntegralLimit,
		HeadingPolicy:        policy,
	}
}

func (c *Config) CalibrationConfig() sensing.CalibrationConfig {
	return sensing.CalibrationConfig{
		Samples:  c.Controller.CalibrationSamples,
		Interval: c.Controller.CalibrationInterval,
	}
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Dt:          c.Sim.Dt,
		Duration:    c.Sim.Duration,
		Seed:        c.Sim.Seed,
		TargetSpeed: c.Sim.TargetSpeed,
		Calibrate:   c.Sim.Calibrate,
		Profile:     c.Sim.Profile,
	}
}

// LoopPeriod is the hardware control period derived from LoopRate.
func (h HardwareConfig) LoopPeriod() time.Duration {
	return time.Duration(float64(time.Second) / h.LoopRate)
}
