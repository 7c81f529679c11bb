package hardware

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

type digitalIn interface {
	Read() rpio.State
}

// Step decodes one sample of a quadrature pair. It returns 0 when neither
// line changed, +1 when A differs from the previous B and -1 otherwise.
func Step(a, b, lastA, lastB bool) int {
	if a == lastA && b == lastB {
		return 0
	}
	if a != lastB {
		return 1
	}
	return -1
}

type quadrature struct {
	a, b         digitalIn
	lastA, lastB bool
	count        atomic.Int64
}

func (q *quadrature) prime() {
	q.lastA = q.a.Read() == rpio.High
	q.lastB = q.b.Read() == rpio.High
}

func (q *quadrature) poll() {
	a := q.a.Read() == rpio.High
	b := q.b.Read() == rpio.High
	if d := Step(a, b, q.lastA, q.lastB); d != 0 {
		q.count.Add(int64(d))
		q.lastA, q.lastB = a, b
	}
}

// Encoders counts two quadrature encoders by polling their lines on a
// fixed period. Counts are safe to read from any goroutine.
type Encoders struct {
	Period time.Duration

	left, right *quadrature
	wg          sync.WaitGroup
	cancel      context.CancelFunc
}

func newEncoders(left, right *quadrature, period time.Duration) *Encoders {
	left.prime()
	right.prime()
	return &Encoders{Period: period, left: left, right: right}
}

func rpioQuadrature(pinA, pinB int) *quadrature {
	a, b := rpio.Pin(pinA), rpio.Pin(pinB)
	a.Input()
	a.PullUp()
	b.Input()
	b.PullUp()
	return &quadrature{a: a, b: b}
}

// Start launches the poller; it runs until ctx is done or Stop is called.
func (e *Encoders) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.Period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.left.poll()
				e.right.poll()
			}
		}
	}()
}

// Stop halts the poller and waits for it to exit.
func (e *Encoders) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Encoders) CountLeft() int64  { return e.left.count.Load() }
func (e *Encoders) CountRight() int64 { return e.right.count.Load() }

func (e *Encoders) Reset() {
	e.left.count.Store(0)
	e.right.count.Store(0)
}
