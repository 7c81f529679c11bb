// Package analysis characterises recorded drive runs.
//
//   - [Spectrum], [DominantFrequency]: power spectrum of a telemetry series,
//     used to spot heading or speed oscillation from over-aggressive gains
//   - [StepResponse]: rise time, settling time, overshoot and steady-state
//     error of a speed step
//
// # Spotting oscillation
//
//	freq, _ := analysis.DominantFrequency(heading, dt)
//	if freq > 2 {
//	    // heading loop is ringing, back off Kp or Kd
//	}
package analysis
