// Package metrics scores closed-loop runs from controller telemetry.
package metrics

import "github.com/san-kum/drivectl/internal/sim"

// DefaultSettle is the start-up window excluded from speed tracking error.
const DefaultSettle = 1.0

// All returns a fresh instance of every metric.
func All() []sim.Metric {
	return []sim.Metric{
		NewSpeedError(DefaultSettle),
		NewHeadingRMS(),
		NewHeadingMax(),
		NewControlEffort(),
		NewSaturation(),
		NewLateralDrift(),
	}
}

// ByName returns a fresh metric with the given name, or nil.
func ByName(name string) sim.Metric {
	for _, m := range All() {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// Names lists the metric names in All order.
func Names() []string {
	ms := All()
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name()
	}
	return names
}
