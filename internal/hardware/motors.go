package hardware

import (
	"errors"

	"github.com/stianeikeland/go-rpio/v4"
)

var ErrClosed = errors.New("hardware: rig closed")

// pwmCycle is the PWM period in clock ticks. The PWM clock runs at
// frequency*pwmCycle, which must stay below 19.2 MHz.
const pwmCycle = 100

type digitalOut interface {
	High()
	Low()
}

type dutyOut interface {
	DutyCycle(dutyLen, cycleLen uint32)
}

// channel is one H-bridge half: two direction inputs and a PWM enable.
type channel struct {
	in1, in2 digitalOut
	pwm      dutyOut
}

func (c channel) set(cmd, limit int) {
	switch {
	case cmd > 0:
		c.in1.High()
		c.in2.Low()
	case cmd < 0:
		c.in1.Low()
		c.in2.High()
		cmd = -cmd
	default:
		c.brake()
		return
	}
	if cmd > limit {
		cmd = limit
	}
	c.pwm.DutyCycle(uint32(cmd*pwmCycle/limit), pwmCycle)
}

func (c channel) brake() {
	c.in1.Low()
	c.in2.Low()
	c.pwm.DutyCycle(0, pwmCycle)
}

func (c channel) coast() {
	c.in1.High()
	c.in2.High()
	c.pwm.DutyCycle(0, pwmCycle)
}

// Motors drives two DC motors through a dual H-bridge. Commands are
// signed within ±Range.
type Motors struct {
	Range int

	left, right channel
	closed      bool
}

func newMotors(left, right channel, limit int) *Motors {
	return &Motors{Range: limit, left: left, right: right}
}

func rpioChannel(in1, in2, pwm, freq int) channel {
	a, b, p := rpio.Pin(in1), rpio.Pin(in2), rpio.Pin(pwm)
	a.Output()
	b.Output()
	p.Mode(rpio.Pwm)
	p.Freq(freq * pwmCycle)
	return channel{in1: a, in2: b, pwm: p}
}

func (m *Motors) SetBoth(left, right int) error {
	if m.closed {
		return ErrClosed
	}
	m.left.set(left, m.Range)
	m.right.set(right, m.Range)
	return nil
}

// Stop brakes both motors.
func (m *Motors) Stop() error {
	if m.closed {
		return ErrClosed
	}
	m.left.brake()
	m.right.brake()
	return nil
}

// Coast releases both motors.
func (m *Motors) Coast() error {
	if m.closed {
		return ErrClosed
	}
	m.left.coast()
	m.right.coast()
	return nil
}
