package models

import (
	"github.com/san-kum/drivectl/internal/sim"
)

// Bench is a simulated robot with its encoders, gyro and motor driver. It
// implements sim.Plant.
type Bench struct {
	Robot      *Robot
	Integrator sim.Integrator
	Encoders   *SimEncoder
	Gyro       *SimGyro
	Motors     *SimMotors

	x sim.State
}

func NewBench(p RobotParams, g GyroParams, integ sim.Integrator, seed int64) *Bench {
	b := &Bench{
		Robot:      NewRobot(p),
		Integrator: integ,
		Encoders:   &SimEncoder{},
		Gyro:       NewSimGyro(g, seed),
		Motors:     NewSimMotors(),
	}
	b.Reset()
	return b
}

func (b *Bench) Step(t, dt float64) {
	b.x = b.Integrator.Step(b.Robot, b.x, b.Motors.Control(), t, dt)
	b.Encoders.set(quantize(b.x[StatePosL]), quantize(b.x[StatePosR]))
	b.Gyro.setRate(b.Robot.YawRate(b.x))
}

func (b *Bench) State() sim.State { return b.x }

// Reset puts the robot back at rest at the origin.
func (b *Bench) Reset() {
	b.x = make(sim.State, b.Robot.StateDim())
	b.Encoders.set(0, 0)
	b.Encoders.Reset()
	b.Gyro.setRate(b.Robot.YawRate(b.x))
}
