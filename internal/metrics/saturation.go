package metrics

import (
	"github.com/san-kum/drivectl/internal/drive"
)

// Saturation is the fraction of running ticks where either wheel command
// sat on the actuator limit.
type Saturation struct {
	name      string
	saturated int
	samples   int
}

func NewSaturation() *Saturation {
	return &Saturation{
		name: "saturation",
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(tel drive.Telemetry) {
	if tel.Mode != drive.Running {
		return
	}
	s.samples++
	if tel.Saturated {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
