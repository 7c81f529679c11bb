// Package imu provides yaw-rate sources backed by real gyros.
//
// [MPU6050] talks to the chip directly over an I2C bus. [SerialGyro] reads
// the ASCII frame stream a microcontroller emits over a UART:
//
//	$AX,AY,AZ,TEMP,GX,GY,GZ\r\n
//
// Both satisfy sensing.YawRateSource.
package imu
