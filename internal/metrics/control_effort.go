package metrics

import (
	"github.com/san-kum/drivectl/internal/drive"
)

// ControlEffort is the mean absolute wheel command while running.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(tel drive.Telemetry) {
	if tel.Mode != drive.Running {
		return
	}
	c.sum += float64(absInt(tel.Command.Left)+absInt(tel.Command.Right)) / 2
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
