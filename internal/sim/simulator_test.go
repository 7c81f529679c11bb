package sim_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/drivectl/internal/actuation"
	"github.com/san-kum/drivectl/internal/drive"
	"github.com/san-kum/drivectl/internal/integrators"
	"github.com/san-kum/drivectl/internal/models"
	"github.com/san-kum/drivectl/internal/sensing"
	"github.com/san-kum/drivectl/internal/sim"
)

func smoothConfig() drive.Config {
	cfg := drive.DefaultConfig()
	cfg.SpeedGains.Kd = 0
	return cfg
}

func closedLoop(t *testing.T, p models.RobotParams, g models.GyroParams, cfg drive.Config, seed int64) (*sim.Simulator, *models.Bench) {
	t.Helper()
	bench := models.NewBench(p, g, integrators.NewRK4(), seed)
	sensors := sensing.NewAdapter(bench.Encoders, bench.Gyro, sensing.CalibrationConfig{Sleep: func(time.Duration) {}})
	motors := actuation.NewAdapter(bench.Motors, zerolog.Nop())
	ctrl := drive.New(sensors, motors, cfg)
	_ = ctrl.Init()
	return sim.New(bench, ctrl), bench
}

func meanSpeed(tel []drive.Telemetry) float64 {
	sum := 0.0
	for _, tk := range tel {
		sum += tk.Wheels.Mean()
	}
	return sum / float64(len(tel))
}

type countMetric struct {
	n int
}

func (c *countMetric) Name() string              { return "count" }
func (c *countMetric) Observe(_ drive.Telemetry) { c.n++ }
func (c *countMetric) Value() float64            { return float64(c.n) }
func (c *countMetric) Reset()                    { c.n = 0 }

func TestSimulatorRun(t *testing.T) {
	s, _ := closedLoop(t, models.DefaultRobotParams(), models.GyroParams{}, smoothConfig(), 1)
	s.AddMetric(&countMetric{})

	result, err := s.Run(context.Background(), sim.Config{Dt: 0.01, Duration: 10, TargetSpeed: 500})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 1001 || len(result.Times) != 1001 {
		t.Errorf("expected 1001 states and times, got %d/%d", len(result.States), len(result.Times))
	}
	if len(result.Telemetry) != 1000 || result.Steps != 1000 {
		t.Errorf("expected 1000 ticks, got %d", len(result.Telemetry))
	}
	if result.Metrics["count"] != 1000 {
		t.Errorf("metric saw %f ticks", result.Metrics["count"])
	}

	tail := result.Telemetry[900:]
	if v := meanSpeed(tail); math.Abs(v-500) > 50 {
		t.Errorf("speed should settle near 500, got %f", v)
	}
	for _, tk := range result.Telemetry {
		if tk.Command.Left > 1000 || tk.Command.Left < -1000 || tk.Command.Right > 1000 || tk.Command.Right < -1000 {
			t.Fatalf("command out of range at t=%.2f: %+v", tk.Time, tk.Command)
		}
	}
}

func TestSimulatorHoldsHeading(t *testing.T) {
	p := models.DefaultRobotParams()
	p.YawDrift = 10

	run := func(g models.GyroParams) float64 {
		s, bench := closedLoop(t, p, g, smoothConfig(), 1)
		if _, err := s.Run(context.Background(), sim.Config{Dt: 0.01, Duration: 10, TargetSpeed: 500}); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return bench.State()[models.StateHeading]
	}

	corrected := run(models.GyroParams{})
	drifting := run(models.GyroParams{FailInit: true})

	if math.Abs(drifting) < 20 {
		t.Fatalf("expected uncorrected drift, got %f degrees", drifting)
	}
	if math.Abs(corrected) > math.Abs(drifting)/2 {
		t.Errorf("heading loop should hold course: corrected %f vs drifting %f", corrected, drifting)
	}
}

func TestSimulatorCalibrates(t *testing.T) {
	s, bench := closedLoop(t, models.DefaultRobotParams(), models.GyroParams{Bias: 2}, smoothConfig(), 1)

	result, err := s.Run(context.Background(), sim.Config{Dt: 0.01, Duration: 2, TargetSpeed: 300, Calibrate: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if math.Abs(result.Bias-2) > 1e-9 {
		t.Errorf("expected bias 2, got %f", result.Bias)
	}
	if h := result.Telemetry[len(result.Telemetry)-1].Heading; math.Abs(h) > 0.5 {
		t.Errorf("calibrated heading should not drift, got %f", h)
	}
	if math.Abs(bench.State()[models.StateHeading]) > 0.5 {
		t.Errorf("robot should stay straight, got %f", bench.State()[models.StateHeading])
	}
}

func TestSimulatorProfile(t *testing.T) {
	s, _ := closedLoop(t, models.DefaultRobotParams(), models.GyroParams{}, smoothConfig(), 1)
	cfg := sim.Config{
		Dt:          0.01,
		Duration:    3,
		TargetSpeed: 400,
		Profile:     []sim.Segment{{At: 1, Speed: -200}, {At: 2, Speed: 0}},
	}

	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Telemetry[50].Target != 400 {
		t.Errorf("expected target 400 at 0.5s, got %f", result.Telemetry[50].Target)
	}
	if result.Telemetry[150].Target != -200 || result.Telemetry[150].Mode != drive.Running {
		t.Errorf("expected running at -200, got %+v", result.Telemetry[150])
	}
	last := result.Telemetry[len(result.Telemetry)-1]
	if last.Mode != drive.Stopped || last.Command != (actuation.DriveCommand{}) {
		t.Errorf("expected braked stop at the end, got %+v", last)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	s, _ := closedLoop(t, models.DefaultRobotParams(), models.GyroParams{}, drive.DefaultConfig(), 1)

	tests := []struct {
		name string
		cfg  sim.Config
	}{
		{"zero dt", sim.Config{Dt: 0, Duration: 1.0}},
		{"negative dt", sim.Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", sim.Config{Dt: 0.1, Duration: 0}},
		{"duration below dt", sim.Config{Dt: 0.1, Duration: 0.05}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Run(context.Background(), tt.cfg)
			if !errors.Is(err, sim.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSimulatorCancel(t *testing.T) {
	s, _ := closedLoop(t, models.DefaultRobotParams(), models.GyroParams{}, drive.DefaultConfig(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, sim.Config{Dt: 0.01, Duration: 1, TargetSpeed: 100})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatorHeadingRequired(t *testing.T) {
	cfg := drive.DefaultConfig()
	cfg.HeadingPolicy = drive.HeadingRequired
	s, _ := closedLoop(t, models.DefaultRobotParams(), models.GyroParams{FailInit: true}, cfg, 1)

	_, err := s.Run(context.Background(), sim.Config{Dt: 0.01, Duration: 1, TargetSpeed: 100})
	if !errors.Is(err, drive.ErrHeadingUnavailable) {
		t.Errorf("expected ErrHeadingUnavailable, got %v", err)
	}
}

func TestEnsemble(t *testing.T) {
	build := func(seed int64) (*sim.Simulator, error) {
		s, _ := closedLoop(t, models.DefaultRobotParams(), models.GyroParams{Noise: 0.2}, smoothConfig(), seed)
		s.AddMetric(&countMetric{})
		return s, nil
	}

	results, err := sim.NewEnsemble(build, 3, 10).Run(context.Background(), sim.Config{Dt: 0.01, Duration: 1, TargetSpeed: 200})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if m := sim.MeanMetrics(results); m["count"] != 100 {
		t.Errorf("expected mean count 100, got %f", m["count"])
	}
}
