package sensing

import (
	"math"
	"time"
)

const (
	DefaultCalibrationSamples  = 100
	DefaultCalibrationInterval = 2 * time.Millisecond
)

// CalibrationConfig controls gyro bias sampling. Zero fields fall back to
// the defaults; Sleep defaults to time.Sleep.
type CalibrationConfig struct {
	Samples  int
	Interval time.Duration
	Sleep    func(time.Duration)
}

func (c CalibrationConfig) withDefaults() CalibrationConfig {
	if c.Samples <= 0 {
		c.Samples = DefaultCalibrationSamples
	}
	if c.Interval <= 0 {
		c.Interval = DefaultCalibrationInterval
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	return c
}

// HeadingEstimator integrates bias-corrected yaw rate into a heading.
type HeadingEstimator struct {
	source  YawRateSource
	heading float64
	bias    float64
	rate    float64
}

func NewHeadingEstimator(source YawRateSource) *HeadingEstimator {
	return &HeadingEstimator{source: source}
}

// Update integrates one step. A non-positive dt returns the current heading
// without reading the source; a non-finite reading is dropped.
func (h *HeadingEstimator) Update(dt float64) HeadingSample {
	if dt <= 0 {
		return HeadingSample{Degrees: h.heading}
	}

	raw := h.source.YawRate()
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return HeadingSample{Degrees: h.heading}
	}
	h.rate = raw - h.bias
	h.heading = WrapDegrees(h.heading + h.rate*dt)
	return HeadingSample{Degrees: h.heading}
}

// Calibrate averages the raw rate while the robot is stationary and stores
// the result as the bias.
func (h *HeadingEstimator) Calibrate(cfg CalibrationConfig) float64 {
	cfg = cfg.withDefaults()

	sum := 0.0
	for i := 0; i < cfg.Samples; i++ {
		sum += h.source.YawRate()
		cfg.Sleep(cfg.Interval)
	}
	h.bias = sum / float64(cfg.Samples)
	return h.bias
}

func (h *HeadingEstimator) Reset() {
	h.heading = 0
}

func (h *HeadingEstimator) Heading() float64 { return h.heading }
func (h *HeadingEstimator) Bias() float64    { return h.bias }

// YawRate returns the last bias-corrected rate in deg/s.
func (h *HeadingEstimator) YawRate() float64 { return h.rate }

// WrapDegrees maps an angle into (-180, 180].
func WrapDegrees(a float64) float64 {
	for a > 180 {
		a -= 360
	}
	for a <= -180 {
		a += 360
	}
	return a
}
