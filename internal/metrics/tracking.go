package metrics

import (
	"math"

	"github.com/san-kum/drivectl/internal/drive"
)

// SpeedError is the RMS difference between target and mean wheel speed
// over running ticks, skipping the first Settle seconds after each start.
type SpeedError struct {
	Settle float64

	sumSq   float64
	samples int
	start   float64
	running bool
}

func NewSpeedError(settle float64) *SpeedError {
	return &SpeedError{Settle: settle}
}

func (s *SpeedError) Name() string { return "speed_rms" }

func (s *SpeedError) Observe(tel drive.Telemetry) {
	if tel.Mode != drive.Running {
		s.running = false
		return
	}
	if !s.running {
		s.running = true
		s.start = tel.Time
	}
	if tel.Time-s.start < s.Settle {
		return
	}
	e := tel.Target - tel.Wheels.Mean()
	s.sumSq += e * e
	s.samples++
}

func (s *SpeedError) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return math.Sqrt(s.sumSq / float64(s.samples))
}

func (s *SpeedError) Reset() {
	s.sumSq = 0
	s.samples = 0
	s.running = false
}

// HeadingRMS is the RMS heading error while running.
type HeadingRMS struct {
	sumSq   float64
	samples int
}

func NewHeadingRMS() *HeadingRMS { return &HeadingRMS{} }

func (h *HeadingRMS) Name() string { return "heading_rms" }

func (h *HeadingRMS) Observe(tel drive.Telemetry) {
	if tel.Mode != drive.Running {
		return
	}
	h.sumSq += tel.Heading * tel.Heading
	h.samples++
}

func (h *HeadingRMS) Value() float64 {
	if h.samples == 0 {
		return 0
	}
	return math.Sqrt(h.sumSq / float64(h.samples))
}

func (h *HeadingRMS) Reset() {
	h.sumSq = 0
	h.samples = 0
}

type HeadingMax struct {
	max float64
}

func NewHeadingMax() *HeadingMax { return &HeadingMax{} }

func (h *HeadingMax) Name() string { return "heading_max" }

func (h *HeadingMax) Observe(tel drive.Telemetry) {
	if tel.Mode != drive.Running {
		return
	}
	h.max = math.Max(h.max, math.Abs(tel.Heading))
}

func (h *HeadingMax) Value() float64 { return h.max }
func (h *HeadingMax) Reset()         { h.max = 0 }
