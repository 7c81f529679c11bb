package sim

import (
	"errors"
	"math"

	"github.com/san-kum/drivectl/internal/drive"
)

var ErrInvalidConfig = errors.New("sim: invalid config")

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

// Plant is the physical side of a closed loop. Step advances it by dt using
// whatever command its actuator last received and refreshes its sensors.
type Plant interface {
	Step(t, dt float64)
	State() State
}

type Metric interface {
	Name() string
	Observe(tel drive.Telemetry)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, tel drive.Telemetry)
}

// Segment switches the target speed at time At.
type Segment struct {
	At    float64 `yaml:"at" json:"at"`
	Speed float64 `yaml:"speed" json:"speed"`
}

type Config struct {
	Dt          float64
	Duration    float64
	Seed        int64
	TargetSpeed float64
	Calibrate   bool
	Profile     []Segment
}

type Result struct {
	States    []State
	Telemetry []drive.Telemetry
	Times     []float64
	Metrics   map[string]float64
	Bias      float64
	Steps     int
}
