package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/drivectl/internal/actuation"
	"github.com/san-kum/drivectl/internal/config"
	"github.com/san-kum/drivectl/internal/drive"
	"github.com/san-kum/drivectl/internal/models"
	"github.com/san-kum/drivectl/internal/sensing"
	"github.com/san-kum/drivectl/internal/sim"
)

// Experiment is one closed-loop bench run built from a config.
type Experiment struct {
	cfg       *config.Config
	log       zerolog.Logger
	registry  *Registry
	observers []drive.Observer

	simulator *sim.Simulator
	bench     *models.Bench
}

func New(cfg *config.Config, log zerolog.Logger) *Experiment {
	return &Experiment{
		cfg:      cfg,
		log:      log,
		registry: NewRegistry(),
	}
}

// Build is New followed by Setup.
func Build(cfg *config.Config, log zerolog.Logger) (*Experiment, error) {
	e := New(cfg, log)
	if err := e.Setup(); err != nil {
		return nil, err
	}
	return e, nil
}

// Observe registers a controller observer; call before Setup.
func (e *Experiment) Observe(o drive.Observer) {
	e.observers = append(e.observers, o)
}

func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	integ, err := e.registry.GetIntegrator(e.cfg.Sim.Integrator)
	if err != nil {
		return err
	}

	bench := models.NewBench(e.cfg.Plant.Robot, e.cfg.Plant.Gyro, integ, e.cfg.Sim.Seed)
	limit := int(e.cfg.Controller.OutputLimit)
	bench.Motors.Range = limit

	// bench time only advances through Step, so calibration must not sleep
	cal := e.cfg.CalibrationConfig()
	cal.Sleep = func(time.Duration) {}

	sensors := sensing.NewAdapter(bench.Encoders, bench.Gyro, cal)
	motors := actuation.NewAdapter(bench.Motors, e.log)
	motors.Range = limit

	opts := []drive.Option{drive.WithLogger(e.log)}
	for _, o := range e.observers {
		opts = append(opts, drive.WithObserver(o))
	}
	ctrl := drive.New(sensors, motors, e.cfg.DriveConfig(), opts...)
	if err := ctrl.Init(); err != nil {
		// the controller's heading policy decides what this means
		e.log.Debug().Err(err).Msg("bench gyro unavailable")
	}

	e.simulator = sim.New(bench, ctrl)
	for _, m := range e.registry.DefaultMetrics() {
		e.simulator.AddMetric(m)
	}
	e.bench = bench
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.cfg.SimConfig())
}

// RunEnsemble repeats the experiment over n consecutive seeds, each with
// its own bench and controller.
func (e *Experiment) RunEnsemble(ctx context.Context, n int) ([]*sim.Result, error) {
	build := func(seed int64) (*sim.Simulator, error) {
		cfg := *e.cfg
		cfg.Sim.Seed = seed
		exp, err := Build(&cfg, e.log)
		if err != nil {
			return nil, err
		}
		return exp.simulator, nil
	}
	return sim.NewEnsemble(build, n, e.cfg.Sim.Seed).Run(ctx, e.cfg.SimConfig())
}

// Simulator returns the underlying simulator for adding observers
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

func (e *Experiment) Bench() *models.Bench { return e.bench }

func (e *Experiment) Controller() *drive.Controller {
	if e.simulator == nil {
		return nil
	}
	return e.simulator.Controller()
}

func (e *Experiment) Config() *config.Config { return e.cfg }
