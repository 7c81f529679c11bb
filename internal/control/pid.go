package control

import (
	"errors"
	"fmt"
)

// ErrUnknownParam is returned by SetParam for names the controller does not expose.
var ErrUnknownParam = errors.New("control: unknown parameter")

// PID is a proportional-integral-derivative controller with a clamped
// integrator, output saturation and derivative on measurement.
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	integral        float64
	prevMeasurement float64
	integralLimit   float64
	outputMin       float64
	outputMax       float64
}

// NewPID returns a controller bounded to [outMin, outMax]. The integral
// limit defaults to half of outMax.
func NewPID(kp, ki, kd, outMin, outMax float64) *PID {
	return &PID{
		Kp:            kp,
		Ki:            ki,
		Kd:            kd,
		integralLimit: outMax * 0.5,
		outputMin:     outMin,
		outputMax:     outMax,
	}
}

// Compute returns the control output for one step of length dt seconds.
// A non-positive dt returns 0 and leaves the controller untouched.
func (p *PID) Compute(setpoint, measurement, dt float64) float64 {
	if dt <= 0 {
		return 0
	}

	err := setpoint - measurement
	prop := p.Kp * err

	prev := p.integral
	p.integral = clamp(p.integral+p.Ki*err*dt, -p.integralLimit, p.integralLimit)

	// derivative on measurement: no kick when the setpoint jumps
	deriv := -p.Kd * (measurement - p.prevMeasurement) / dt
	p.prevMeasurement = measurement

	raw := prop + p.integral + deriv
	out := clamp(raw, p.outputMin, p.outputMax)

	if (out >= p.outputMax && err > 0) || (out <= p.outputMin && err < 0) {
		p.integral = prev
	}

	return out
}

// Reset clears integral and derivative memory.
func (p *PID) Reset() {
	p.integral = 0
	p.prevMeasurement = 0
}

// SetGains replaces the gains without touching controller memory.
func (p *PID) SetGains(kp, ki, kd float64) {
	p.Kp = kp
	p.Ki = ki
	p.Kd = kd
}

// SetIntegralLimit changes the anti-windup bound and re-clamps the integrator.
func (p *PID) SetIntegralLimit(limit float64) {
	if limit < 0 {
		limit = -limit
	}
	p.integralLimit = limit
	p.integral = clamp(p.integral, -limit, limit)
}

func (p *PID) Integral() float64        { return p.integral }
func (p *PID) IntegralLimit() float64   { return p.integralLimit }
func (p *PID) PrevMeasurement() float64 { return p.prevMeasurement }

// Limits returns the output bounds.
func (p *PID) Limits() (min, max float64) {
	return p.outputMin, p.outputMax
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":            p.Kp,
		"Ki":            p.Ki,
		"Kd":            p.Kd,
		"IntegralLimit": p.integralLimit,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "IntegralLimit":
		p.SetIntegralLimit(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
