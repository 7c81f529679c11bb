// Package sim runs a drive controller against a simulated plant at a fixed
// step, recording plant states and controller telemetry and feeding both to
// metrics and observers.
package sim
