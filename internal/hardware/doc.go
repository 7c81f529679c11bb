// Package hardware drives the robot's motors and reads its wheel encoders
// through Raspberry Pi GPIO.
//
// Motor wiring per wheel is IN1, IN2 and a hardware PWM pin:
//
//	forward  IN1=H IN2=L duty=|cmd|
//	reverse  IN1=L IN2=H duty=|cmd|
//	brake    IN1=L IN2=L duty=0
//	coast    IN1=H IN2=H duty=0
package hardware
