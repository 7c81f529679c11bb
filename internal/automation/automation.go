package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/drivectl/internal/config"
	"github.com/san-kum/drivectl/internal/drive"
	"github.com/san-kum/drivectl/internal/experiment"
	"github.com/san-kum/drivectl/internal/sim"
)

// Scenario is a scripted sequence of bench runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one bench run: a preset plus overrides. Zero values
// keep the preset's setting.
type ScenarioStep struct {
	Name        string        `yaml:"name"`
	Preset      string        `yaml:"preset"`
	Duration    float64       `yaml:"duration"`
	TargetSpeed float64       `yaml:"target_speed"`
	Profile     []sim.Segment `yaml:"profile"`
	Seed        int64         `yaml:"seed"`
	Speed       *drive.Gains  `yaml:"speed"`
	Heading     *drive.Gains  `yaml:"heading"`
	YawDrift    float64       `yaml:"yaw_drift"`
	GyroBias    float64       `yaml:"gyro_bias"`
}

// StepResult pairs a step with the config it ran under and its result.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	return &scenario, nil
}

// Config resolves the step against its preset.
func (s ScenarioStep) Config() (*config.Config, error) {
	preset := s.Preset
	if preset == "" {
		preset = "default"
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q", preset)
	}

	if s.Duration > 0 {
		cfg.Sim.Duration = s.Duration
	}
	if s.TargetSpeed != 0 {
		cfg.Sim.TargetSpeed = s.TargetSpeed
	}
	if len(s.Profile) > 0 {
		cfg.Sim.Profile = s.Profile
	}
	if s.Seed != 0 {
		cfg.Sim.Seed = s.Seed
	}
	if s.Speed != nil {
		cfg.Controller.Speed = *s.Speed
	}
	if s.Heading != nil {
		cfg.Controller.Heading = *s.Heading
	}
	if s.YawDrift != 0 {
		cfg.Plant.Robot.YawDrift = s.YawDrift
	}
	if s.GyroBias != 0 {
		cfg.Plant.Gyro.Bias = s.GyroBias
	}
	return cfg, nil
}

// RunScenario executes all steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, log zerolog.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		log.Info().Int("step", i+1).Int("of", len(scenario.Steps)).Str("name", name).Msg("scenario step")

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.Build(cfg, log)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Name: name, Config: cfg, Result: result})
	}

	return results, nil
}

// MonteCarloConfig perturbs the robot around a base config to see how
// often the controller still holds its heading.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	Seed      int64

	GainSpread float64 // ± fraction applied to each wheel gain
	MaxDrift   float64 // yaw drift drawn from ±MaxDrift deg/m
	MaxBias    float64 // gyro bias drawn from ±MaxBias °/s

	HeadingLimit float64 // heading_max above this counts as lost
}

// MonteCarloResult is one perturbed trial.
type MonteCarloResult struct {
	TrialID   int
	LeftGain  float64
	RightGain float64
	YawDrift  float64
	GyroBias  float64
	Metrics   map[string]float64
	Held      bool
}

// RunMonteCarlo runs the trials sequentially; every trial owns its bench.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, log zerolog.Logger) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	spread := func(width float64) float64 {
		return (rng.Float64() - 0.5) * 2 * width
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		c := *cfg.Base
		c.Plant.Robot.LeftGain *= 1 + spread(cfg.GainSpread)
		c.Plant.Robot.RightGain *= 1 + spread(cfg.GainSpread)
		c.Plant.Robot.YawDrift = spread(cfg.MaxDrift)
		c.Plant.Gyro.Bias = spread(cfg.MaxBias)
		c.Sim.Seed = cfg.Base.Sim.Seed + int64(trial)

		exp, err := experiment.Build(&c, zerolog.Nop())
		if err != nil {
			return nil, err
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		results = append(results, MonteCarloResult{
			TrialID:   trial,
			LeftGain:  c.Plant.Robot.LeftGain,
			RightGain: c.Plant.Robot.RightGain,
			YawDrift:  c.Plant.Robot.YawDrift,
			GyroBias:  c.Plant.Gyro.Bias,
			Metrics:   result.Metrics,
			Held:      result.Metrics["heading_max"] <= cfg.HeadingLimit,
		})

		if (trial+1)%10 == 0 {
			log.Info().Int("done", trial+1).Int("of", cfg.NumTrials).Msg("monte carlo")
		}
	}

	return results, nil
}

// MonteCarloStats counts trials that held and lost their heading.
func MonteCarloStats(results []MonteCarloResult) (held int, lost int) {
	for _, r := range results {
		if r.Held {
			held++
		} else {
			lost++
		}
	}
	return
}
