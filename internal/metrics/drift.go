package metrics

import (
	"math"

	"github.com/san-kum/drivectl/internal/drive"
)

// LateralDrift dead-reckons the sideways offset, in encoder counts, from
// the controller's own heading and speed estimates. It measures how
// straight the robot believes it drove.
type LateralDrift struct {
	offset   float64
	lastTime float64
	started  bool
}

func NewLateralDrift() *LateralDrift { return &LateralDrift{} }

func (d *LateralDrift) Name() string { return "lateral_drift" }

func (d *LateralDrift) Observe(tel drive.Telemetry) {
	if !d.started {
		d.started = true
		d.lastTime = tel.Time
		return
	}
	dt := tel.Time - d.lastTime
	d.lastTime = tel.Time
	if tel.Mode != drive.Running || dt <= 0 {
		return
	}
	d.offset += tel.Wheels.Mean() * math.Sin(tel.Heading*math.Pi/180) * dt
}

func (d *LateralDrift) Value() float64 { return math.Abs(d.offset) }

func (d *LateralDrift) Reset() {
	d.offset = 0
	d.started = false
}
