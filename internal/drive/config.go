package drive

import (
	"fmt"
	"strings"
)

// HeadingPolicy decides what the controller does when the yaw-rate source
// failed to initialise.
type HeadingPolicy int

const (
	// HeadingSpeedOnly runs the speed loops and holds heading correction at zero.
	HeadingSpeedOnly HeadingPolicy = iota
	// HeadingIgnore keeps correcting on whatever the source reports.
	HeadingIgnore
	// HeadingRequired refuses to enter Running.
	HeadingRequired
)

func (p HeadingPolicy) String() string {
	switch p {
	case HeadingSpeedOnly:
		return "speed-only"
	case HeadingIgnore:
		return "ignore"
	case HeadingRequired:
		return "required"
	default:
		return fmt.Sprintf("HeadingPolicy(%d)", int(p))
	}
}

// ParseHeadingPolicy accepts the names produced by String.
func ParseHeadingPolicy(s string) (HeadingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "speed-only", "speedonly":
		return HeadingSpeedOnly, nil
	case "ignore":
		return HeadingIgnore, nil
	case "required":
		return HeadingRequired, nil
	}
	return HeadingSpeedOnly, fmt.Errorf("drive: unknown heading policy %q", s)
}

type Gains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// Config holds loop tuning. Speed loops are bounded by OutputLimit, the
// heading loop by HeadingOutputLimit.
type Config struct {
	SpeedGains           Gains
	HeadingGains         Gains
	OutputLimit          float64
	HeadingOutputLimit   float64
	SpeedIntegralLimit   float64
	HeadingIntegralLimit float64
	HeadingPolicy        HeadingPolicy
}

func DefaultConfig() Config {
	return Config{
		SpeedGains:           Gains{Kp: 2.0, Ki: 0.5, Kd: 0.1},
		HeadingGains:         Gains{Kp: 5.0, Ki: 0.1, Kd: 0.5},
		OutputLimit:          1000,
		HeadingOutputLimit:   500,
		SpeedIntegralLimit:   300,
		HeadingIntegralLimit: 200,
		HeadingPolicy:        HeadingSpeedOnly,
	}
}
