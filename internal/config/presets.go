package config

import (
	"sort"

	"github.com/san-kum/drivectl/internal/sim"
)

// Presets build bench scenarios on top of DefaultConfig.
var Presets = map[string]func(*Config){
	"default": func(c *Config) {},
	"smooth": func(c *Config) {
		c.Controller.Speed.Kd = 0
	},
	"mismatch": func(c *Config) {
		c.Plant.Robot.LeftGain = 0.9
		c.Plant.Robot.RightGain = 1.05
		c.Sim.Duration = 15
	},
	"drift": func(c *Config) {
		c.Controller.Speed.Kd = 0
		c.Plant.Robot.YawDrift = 10
		c.Sim.Duration = 15
	},
	"noisy-gyro": func(c *Config) {
		c.Plant.Gyro.Bias = 1.5
		c.Plant.Gyro.Noise = 0.3
		c.Sim.Calibrate = true
	},
	"no-gyro": func(c *Config) {
		c.Plant.Gyro.FailInit = true
		c.Plant.Robot.YawDrift = 10
		c.Controller.HeadingPolicy = "speed-only"
	},
	"profile": func(c *Config) {
		c.Controller.Speed.Kd = 0
		c.Sim.Duration = 12
		c.Sim.TargetSpeed = 300
		c.Sim.Profile = []sim.Segment{
			{At: 3, Speed: 600},
			{At: 6, Speed: -300},
			{At: 9, Speed: 0},
		}
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
