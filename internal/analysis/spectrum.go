package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum returns the one-sided power spectrum of a signal sampled every
// dt seconds. The mean is removed and a Hann window applied first.
func Spectrum(signal []float64, dt float64) (freqs, power []float64) {
	n := len(signal)
	if n < 2 || dt <= 0 {
		return nil, nil
	}

	x := make([]float64, n)
	mean := 0.0
	for _, v := range signal {
		mean += v
	}
	mean /= float64(n)
	for i, v := range signal {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	spec := fft.FFTReal(x)
	half := n/2 + 1
	freqs = make([]float64, half)
	power = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		a := cmplx.Abs(spec[k])
		power[k] = a * a
	}
	return freqs, power
}

// DominantFrequency returns the strongest non-DC frequency in Hz and its power.
func DominantFrequency(signal []float64, dt float64) (freq, power float64) {
	freqs, ps := Spectrum(signal, dt)
	for k := 1; k < len(ps); k++ {
		if ps[k] > power {
			freq, power = freqs[k], ps[k]
		}
	}
	return freq, power
}
