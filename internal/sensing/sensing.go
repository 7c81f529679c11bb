package sensing

// WheelCounter is a pair of signed cumulative encoder counters. Counts are
// written from another goroutine, so implementations must make both reads
// atomic.
type WheelCounter interface {
	CountLeft() int64
	CountRight() int64
	Reset()
}

// YawRateSource is a single-axis rate gyro reporting degrees per second.
type YawRateSource interface {
	Init() error
	YawRate() float64
}

// WheelSample holds per-wheel speed in encoder counts per second.
type WheelSample struct {
	Left  float64
	Right float64
}

// Mean returns the average of both wheels.
func (w WheelSample) Mean() float64 {
	return (w.Left + w.Right) / 2
}

// HeadingSample is an integrated yaw angle in degrees, within (-180, 180].
type HeadingSample struct {
	Degrees float64
}
