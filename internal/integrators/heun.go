package integrators

import "github.com/san-kum/drivectl/internal/sim"

// Heun is the explicit trapezoidal (improved Euler) step.
type Heun struct {
	pred sim.State
}

func NewHeun() *Heun {
	return &Heun{}
}

func (h *Heun) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) sim.State {
	n := len(x)
	if len(h.pred) != n {
		h.pred = make(sim.State, n)
	}

	k1 := dyn.Derivative(x, u, t)
	for i := 0; i < n; i++ {
		h.pred[i] = x[i] + dt*k1[i]
	}
	k2 := dyn.Derivative(h.pred, u, t+dt)

	result := make(sim.State, n)
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt*0.5*(k1[i]+k2[i])
	}
	return result
}
