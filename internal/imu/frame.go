package imu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrBadFrame = errors.New("imu: malformed frame")
	ErrNoDevice = errors.New("imu: device not found")
	ErrNoFrame  = errors.New("imu: no frame received")
)

const frameFields = 7

// Frame is one sample from the UART stream: $AX,AY,AZ,TEMP,GX,GY,GZ
// Accelerations are in g, temperature in °C, rates in °/s.
type Frame struct {
	AX, AY, AZ float64
	Temp       float64
	GX, GY, GZ float64
}

// ParseFrame decodes a single line. Trailing CR/LF are ignored.
func ParseFrame(line string) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "$") {
		return Frame{}, fmt.Errorf("%w: missing '$' in %q", ErrBadFrame, line)
	}

	parts := strings.Split(line[1:], ",")
	if len(parts) != frameFields {
		return Frame{}, fmt.Errorf("%w: want %d fields, got %d", ErrBadFrame, frameFields, len(parts))
	}

	var v [frameFields]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: field %d: %v", ErrBadFrame, i, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Frame{}, fmt.Errorf("%w: field %d is %v", ErrBadFrame, i, f)
		}
		v[i] = f
	}

	return Frame{
		AX: v[0], AY: v[1], AZ: v[2],
		Temp: v[3],
		GX:   v[4], GY: v[5], GZ: v[6],
	}, nil
}

func (f Frame) String() string {
	return fmt.Sprintf("$%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f", f.AX, f.AY, f.AZ, f.Temp, f.GX, f.GY, f.GZ)
}
