// Package drive implements the straight-line differential drive controller.
//
// Each tick the controller samples wheel speed and heading, runs one speed
// PID per wheel toward the target and a heading PID toward zero, then mixes
//
//	left  = speedLeft  - heading
//	right = speedRight + heading
//
// and clamps both to the actuator range. With positive gains a positive
// (counter-clockwise) heading speeds up the left wheel and slows the right
// one, which turns the robot back clockwise.
//
// The controller moves between three modes:
//
//	Stopped ──SetSpeed(v≠0)──▶ Running ──SetSpeed(0) / Stop──▶ Stopped
//	   │                                                         ▲
//	   └────────────── Calibrate ──▶ Calibrating ────────────────┘
//
// Leaving Stopped zeroes the heading reference and the heading loop so
// every run starts straight ahead.
package drive
