// Package models provides the simulated plant the drive controller is
// exercised against: a first-order differential-drive robot and simulated
// encoder, gyro and motor driver collaborators around it.
package models
