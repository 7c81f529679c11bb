package analysis

import "math"

// StepInfo summarises a response to a setpoint step.
type StepInfo struct {
	RiseTime         float64 // 10% to 90% of the step
	SettlingTime     float64 // from start until the response stays inside the band
	Overshoot        float64 // percent beyond the target
	SteadyStateError float64 // mean error over the last tenth of the window
	Settled          bool
}

// StepResponse measures values against target from the first sample at or
// after start. band is the settling tolerance as a fraction of |target|.
func StepResponse(times, values []float64, start, target, band float64) StepInfo {
	var info StepInfo
	if len(times) != len(values) || target == 0 {
		return info
	}

	first := -1
	for i, t := range times {
		if t >= start {
			first = i
			break
		}
	}
	if first < 0 {
		return info
	}
	ts, vs := times[first:], values[first:]
	t0 := ts[0]
	sign := math.Copysign(1, target)
	mag := math.Abs(target)

	t10, t90 := math.NaN(), math.NaN()
	peak := math.Inf(-1)
	lastOutside := -1
	for i, v := range vs {
		n := v * sign
		if math.IsNaN(t10) && n >= 0.1*mag {
			t10 = ts[i]
		}
		if math.IsNaN(t90) && n >= 0.9*mag {
			t90 = ts[i]
		}
		peak = math.Max(peak, n)
		if math.Abs(v-target) > band*mag {
			lastOutside = i
		}
	}

	if !math.IsNaN(t10) && !math.IsNaN(t90) {
		info.RiseTime = t90 - t10
	}
	if peak > mag {
		info.Overshoot = (peak - mag) / mag * 100
	}
	switch {
	case lastOutside < 0:
		info.Settled = true
	case lastOutside < len(vs)-1:
		info.Settled = true
		info.SettlingTime = ts[lastOutside+1] - t0
	}

	tail := len(vs) / 10
	if tail < 1 {
		tail = 1
	}
	sum := 0.0
	for _, v := range vs[len(vs)-tail:] {
		sum += v - target
	}
	info.SteadyStateError = sum / float64(tail)
	return info
}
