package models

import (
	"math"

	"github.com/san-kum/drivectl/internal/sim"
)

// State layout of the differential-drive robot.
const (
	StateVL      = iota // left wheel speed, counts/s
	StateVR             // right wheel speed, counts/s
	StatePosL           // left wheel travel, counts
	StatePosR           // right wheel travel, counts
	StateHeading        // yaw, degrees, counter-clockwise positive
	StateX              // metres
	StateY              // metres
	robotDim
)

// Damping scales applied to the wheel time constant through the third
// control input.
const (
	DampDrive = 1.0
	DampBrake = 0.2
	DampCoast = 4.0
)

type RobotParams struct {
	MaxWheelSpeed  float64 `yaml:"max_wheel_speed"` // counts/s at full command
	TimeConstant   float64 `yaml:"time_constant"`   // s
	LeftGain       float64 `yaml:"left_gain"`
	RightGain      float64 `yaml:"right_gain"`
	CountsPerMeter float64 `yaml:"counts_per_meter"`
	TrackWidth     float64 `yaml:"track_width"`     // m
	YawDrift       float64 `yaml:"yaw_drift"`       // deg per metre travelled, e.g. caster drag
}

func DefaultRobotParams() RobotParams {
	return RobotParams{
		MaxWheelSpeed:  2000,
		TimeConstant:   0.15,
		LeftGain:       1.0,
		RightGain:      1.0,
		CountsPerMeter: 1000,
		TrackWidth:     0.15,
	}
}

// Robot is a first-order model of two independently driven wheels. The
// control vector is {left, right, damping} with wheel commands normalised
// to [-1, 1].
type Robot struct {
	RobotParams
}

func NewRobot(p RobotParams) *Robot {
	return &Robot{RobotParams: p}
}

func (r *Robot) StateDim() int   { return robotDim }
func (r *Robot) ControlDim() int { return 3 }

func (r *Robot) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	vL, vR, heading := x[StateVL], x[StateVR], x[StateHeading]

	uL, uR, damp := 0.0, 0.0, DampDrive
	if len(u) >= 2 {
		uL, uR = clampUnit(u[0]), clampUnit(u[1])
	}
	if len(u) >= 3 && u[2] > 0 {
		damp = u[2]
	}
	tau := r.TimeConstant * damp

	dvL := (r.LeftGain*r.MaxWheelSpeed*uL - vL) / tau
	dvR := (r.RightGain*r.MaxWheelSpeed*uR - vR) / tau

	v := (vL + vR) / 2 / r.CountsPerMeter
	h := heading * math.Pi / 180

	return sim.State{
		dvL,
		dvR,
		vL,
		vR,
		r.YawRate(x),
		v * math.Cos(h),
		v * math.Sin(h),
	}
}

// YawRate returns the body yaw rate in deg/s for state x.
func (r *Robot) YawRate(x sim.State) float64 {
	omega := (x[StateVR] - x[StateVL]) / r.CountsPerMeter / r.TrackWidth
	v := (x[StateVL] + x[StateVR]) / 2 / r.CountsPerMeter
	return omega*180/math.Pi + r.YawDrift*v
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
