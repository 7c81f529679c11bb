package sim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/drivectl/internal/drive"
)

// Simulator closes the loop between a plant and a drive controller at a
// fixed step.
type Simulator struct {
	plant     Plant
	ctrl      *drive.Controller
	metrics   []Metric
	observers []Observer
}

func New(plant Plant, ctrl *drive.Controller) *Simulator {
	return &Simulator{
		plant:     plant,
		ctrl:      ctrl,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Controller() *drive.Controller { return s.ctrl }
func (s *Simulator) Plant() Plant                  { return s.plant }

// Step advances the plant by dt and then runs one controller tick.
func (s *Simulator) Step(t, dt float64) drive.Telemetry {
	s.plant.Step(t, dt)
	s.ctrl.Update(dt)
	return s.ctrl.Telemetry()
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		States:    make([]State, 0, steps+1),
		Telemetry: make([]drive.Telemetry, 0, steps),
		Times:     make([]float64, 0, steps+1),
		Metrics:   make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	if cfg.Calibrate {
		result.Bias = s.ctrl.Calibrate()
	}

	result.States = append(result.States, s.plant.State().Clone())
	result.Times = append(result.Times, 0)

	sched := newSchedule(cfg.TargetSpeed, cfg.Profile)
	t := 0.0

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if v, changed := sched.at(t); changed {
			if err := s.ctrl.SetSpeed(v); err != nil {
				return result, fmt.Errorf("sim: set speed %.1f at t=%.3f: %w", v, t, err)
			}
		}

		tel := s.Step(t, cfg.Dt)
		t = float64(i+1) * cfg.Dt

		x := s.plant.State()
		if !x.IsValid() {
			return result, fmt.Errorf("sim: invalid state at t=%.4f", t)
		}

		for _, m := range s.metrics {
			m.Observe(tel)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, tel)
		}

		result.States = append(result.States, x.Clone())
		result.Telemetry = append(result.Telemetry, tel)
		result.Times = append(result.Times, t)
		result.Steps++
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Duration < cfg.Dt {
		return fmt.Errorf("%w: duration %f shorter than dt %f", ErrInvalidConfig, cfg.Duration, cfg.Dt)
	}
	return nil
}

// schedule yields the target speed in effect at a given time.
type schedule struct {
	base     float64
	segments []Segment
	last     float64
	started  bool
}

func newSchedule(base float64, profile []Segment) *schedule {
	segs := make([]Segment, len(profile))
	copy(segs, profile)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].At < segs[j].At })
	return &schedule{base: base, segments: segs}
}

// at returns the target at time t and whether it differs from the previous call.
func (s *schedule) at(t float64) (float64, bool) {
	v := s.base
	for _, seg := range s.segments {
		if seg.At > t {
			break
		}
		v = seg.Speed
	}
	changed := !s.started || v != s.last
	s.started = true
	s.last = v
	return v, changed
}
