// Package control provides the feedback primitive shared by every loop of
// the drive controller.
//
//   - [PID]: proportional-integral-derivative controller with a clamped
//     integrator, output saturation, conditional-integration anti-windup and
//     derivative on measurement
//
// # Usage
//
//	pid := control.NewPID(2.0, 0.5, 0.1, -1000, 1000) // Kp, Ki, Kd, min, max
//	pid.SetIntegralLimit(300)
//	u := pid.Compute(setpoint, measured, 0.01)
//
// [PID] exposes GetParams/SetParam so gains can be tuned live from the
// console while a loop is running.
package control
