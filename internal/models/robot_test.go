package models

import (
	"math"
	"testing"

	"github.com/san-kum/drivectl/internal/sim"
)

func TestRobotDims(t *testing.T) {
	r := NewRobot(DefaultRobotParams())
	if r.StateDim() != 7 {
		t.Errorf("expected 7 states, got %d", r.StateDim())
	}
	if r.ControlDim() != 3 {
		t.Errorf("expected 3 controls, got %d", r.ControlDim())
	}
}

func TestRobotStraightLine(t *testing.T) {
	r := NewRobot(DefaultRobotParams())
	x := sim.State{500, 500, 0, 0, 0, 0, 0}
	dx := r.Derivative(x, sim.Control{0.25, 0.25, DampDrive}, 0)

	if math.Abs(dx[StateVL]) > 1e-9 || math.Abs(dx[StateVR]) > 1e-9 {
		t.Errorf("wheels at steady state should not accelerate, got %v", dx[:2])
	}
	if dx[StateHeading] != 0 {
		t.Errorf("equal wheel speeds should not yaw, got %f", dx[StateHeading])
	}
	if math.Abs(dx[StateX]-0.5) > 1e-9 || math.Abs(dx[StateY]) > 1e-9 {
		t.Errorf("expected 0.5 m/s along x, got (%f, %f)", dx[StateX], dx[StateY])
	}
}

func TestRobotYawConvention(t *testing.T) {
	r := NewRobot(DefaultRobotParams())

	// right wheel faster turns counter-clockwise
	x := sim.State{400, 500, 0, 0, 0, 0, 0}
	rate := r.YawRate(x)
	expected := 100.0 / 1000 / 0.15 * 180 / math.Pi
	if math.Abs(rate-expected) > 1e-9 {
		t.Errorf("expected %f deg/s, got %f", expected, rate)
	}
}

func TestRobotCommandClamp(t *testing.T) {
	r := NewRobot(DefaultRobotParams())
	x := make(sim.State, 7)
	a := r.Derivative(x, sim.Control{5, -5, DampDrive}, 0)
	b := r.Derivative(x, sim.Control{1, -1, DampDrive}, 0)
	if a[StateVL] != b[StateVL] || a[StateVR] != b[StateVR] {
		t.Error("commands beyond full scale should saturate")
	}
}

func TestRobotBrakeDampsFaster(t *testing.T) {
	r := NewRobot(DefaultRobotParams())
	x := sim.State{800, 800, 0, 0, 0, 0, 0}
	brake := r.Derivative(x, sim.Control{0, 0, DampBrake}, 0)
	coast := r.Derivative(x, sim.Control{0, 0, DampCoast}, 0)
	if !(brake[StateVL] < coast[StateVL] && coast[StateVL] < 0) {
		t.Errorf("brake decel %f should exceed coast decel %f", brake[StateVL], coast[StateVL])
	}
}

func TestRobotYawDrift(t *testing.T) {
	p := DefaultRobotParams()
	p.YawDrift = 10
	r := NewRobot(p)

	if rate := r.YawRate(make(sim.State, 7)); rate != 0 {
		t.Errorf("drift must vanish at rest, got %f", rate)
	}
	x := sim.State{500, 500, 0, 0, 0, 0, 0}
	if rate := r.YawRate(x); math.Abs(rate-5) > 1e-9 {
		t.Errorf("expected 5 deg/s at 0.5 m/s, got %f", rate)
	}
}
