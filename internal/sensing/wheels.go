package sensing

// WheelSampler turns cumulative counts into speeds. Each Sample advances the
// checkpoint, so it must be called exactly once per control tick.
type WheelSampler struct {
	counter   WheelCounter
	lastLeft  int64
	lastRight int64
}

func NewWheelSampler(counter WheelCounter) *WheelSampler {
	return &WheelSampler{counter: counter}
}

// Sample returns the speed of each wheel over the last dt seconds. A
// non-positive dt yields a zero sample and keeps the checkpoints.
func (w *WheelSampler) Sample(dt float64) WheelSample {
	if dt <= 0 {
		return WheelSample{}
	}

	left := w.counter.CountLeft()
	right := w.counter.CountRight()

	s := WheelSample{
		Left:  float64(left-w.lastLeft) / dt,
		Right: float64(right-w.lastRight) / dt,
	}
	w.lastLeft = left
	w.lastRight = right
	return s
}

// Reset zeroes the underlying counters and the checkpoints.
func (w *WheelSampler) Reset() {
	w.counter.Reset()
	w.lastLeft = 0
	w.lastRight = 0
}
