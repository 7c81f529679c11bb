package hardware

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stianeikeland/go-rpio/v4"
)

type fakeOut struct{ high bool }

func (p *fakeOut) High() { p.high = true }
func (p *fakeOut) Low()  { p.high = false }

type fakePWM struct{ duty, cycle uint32 }

func (p *fakePWM) DutyCycle(d, c uint32) { p.duty, p.cycle = d, c }

type fakeIn struct{ level atomic.Bool }

func (p *fakeIn) Read() rpio.State {
	if p.level.Load() {
		return rpio.High
	}
	return rpio.Low
}

type wheelPins struct {
	in1, in2 *fakeOut
	pwm      *fakePWM
}

func newWheelPins() (wheelPins, channel) {
	w := wheelPins{in1: &fakeOut{}, in2: &fakeOut{}, pwm: &fakePWM{}}
	return w, channel{in1: w.in1, in2: w.in2, pwm: w.pwm}
}

func TestMotorDirections(t *testing.T) {
	lp, lc := newWheelPins()
	rp, rc := newWheelPins()
	m := newMotors(lc, rc, 1000)

	if err := m.SetBoth(500, -250); err != nil {
		t.Fatal(err)
	}
	if !lp.in1.high || lp.in2.high || lp.pwm.duty != 50 || lp.pwm.cycle != pwmCycle {
		t.Errorf("left forward: %+v %+v %+v", lp.in1, lp.in2, lp.pwm)
	}
	if rp.in1.high || !rp.in2.high || rp.pwm.duty != 25 {
		t.Errorf("right reverse: %+v %+v %+v", rp.in1, rp.in2, rp.pwm)
	}

	m.SetBoth(5000, 0)
	if lp.pwm.duty != pwmCycle {
		t.Errorf("over-range command should saturate, got duty %d", lp.pwm.duty)
	}
	if rp.in1.high || rp.in2.high || rp.pwm.duty != 0 {
		t.Error("zero command should brake")
	}
}

func TestMotorDutyFollowsRange(t *testing.T) {
	tests := []struct {
		name  string
		limit float64
		cmd   int
		duty  uint32
	}{
		{"narrow range at full command", 500, 500, 100},
		{"narrow range at half command", 500, 250, 50},
		{"wide range at half command", 2000, 1000, 50},
		{"wide range at full command", 2000, 2000, 100},
		{"unset limit falls back to default", 0, 500, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lp, lc := newWheelPins()
			_, rc := newWheelPins()
			m := newMotors(lc, rc, motorRange(tt.limit))

			if err := m.SetBoth(tt.cmd, 0); err != nil {
				t.Fatal(err)
			}
			if lp.pwm.duty != tt.duty {
				t.Errorf("expected duty %d, got %d", tt.duty, lp.pwm.duty)
			}
		})
	}
}

func TestMotorBrakeAndCoast(t *testing.T) {
	lp, lc := newWheelPins()
	rp, rc := newWheelPins()
	m := newMotors(lc, rc, 1000)

	m.SetBoth(800, 800)
	m.Coast()
	for _, p := range []wheelPins{lp, rp} {
		if !p.in1.high || !p.in2.high || p.pwm.duty != 0 {
			t.Errorf("coast: %+v %+v %+v", p.in1, p.in2, p.pwm)
		}
	}

	m.Stop()
	for _, p := range []wheelPins{lp, rp} {
		if p.in1.high || p.in2.high || p.pwm.duty != 0 {
			t.Errorf("brake: %+v %+v %+v", p.in1, p.in2, p.pwm)
		}
	}
}

func TestQuadratureStep(t *testing.T) {
	// A leads B: 00 -> 10 -> 11 -> 01 -> 00
	forward := [][2]bool{{false, false}, {true, false}, {true, true}, {false, true}, {false, false}}

	tests := []struct {
		name string
		seq  [][2]bool
		want int
	}{
		{"forward", forward, 4},
		{"reverse", reverse(forward), -4},
		{"still", [][2]bool{{true, false}, {true, false}, {true, false}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			last := tt.seq[0]
			for _, s := range tt.seq[1:] {
				total += Step(s[0], s[1], last[0], last[1])
				last = s
			}
			if total != tt.want {
				t.Errorf("got %d, want %d", total, tt.want)
			}
		})
	}
}

func reverse(seq [][2]bool) [][2]bool {
	out := make([][2]bool, len(seq))
	for i, s := range seq {
		out[len(seq)-1-i] = s
	}
	return out
}

func TestEncoderPoller(t *testing.T) {
	la, lb := &fakeIn{}, &fakeIn{}
	ra, rb := &fakeIn{}, &fakeIn{}
	e := newEncoders(&quadrature{a: la, b: lb}, &quadrature{a: ra, b: rb}, 100*time.Microsecond)

	e.Start(context.Background())
	la.level.Store(true)
	time.Sleep(20 * time.Millisecond)
	e.Stop()

	if e.CountLeft() != 1 {
		t.Errorf("expected left count 1, got %d", e.CountLeft())
	}
	if e.CountRight() != 0 {
		t.Errorf("expected right count 0, got %d", e.CountRight())
	}

	e.Reset()
	if e.CountLeft() != 0 {
		t.Error("reset should zero counts")
	}
}

func TestRigClose(t *testing.T) {
	lp, lc := newWheelPins()
	_, rc := newWheelPins()
	m := newMotors(lc, rc, 1000)
	e := newEncoders(&quadrature{a: &fakeIn{}, b: &fakeIn{}}, &quadrature{a: &fakeIn{}, b: &fakeIn{}}, time.Millisecond)
	e.Start(context.Background())

	memErr := errors.New("munmap failed")
	r := newRig(m, e, func() error { return memErr }, zerolog.Nop())

	m.SetBoth(300, 300)
	if err := r.Close(); !errors.Is(err, memErr) {
		t.Errorf("expected close error to carry %v, got %v", memErr, err)
	}
	if lp.pwm.duty != 0 || lp.in1.high {
		t.Error("close should brake the motors")
	}
	if err := m.SetBoth(100, 100); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}
