package drive_test

import "time"

// tickCounter advances each wheel by a fixed number of counts on every read,
// which the sampler does exactly once per tick.
type tickCounter struct {
	stepLeft, stepRight int64
	left, right         int64
	reads               int
}

func (c *tickCounter) CountLeft() int64 {
	c.reads++
	c.left += c.stepLeft
	return c.left
}

func (c *tickCounter) CountRight() int64 {
	c.right += c.stepRight
	return c.right
}

func (c *tickCounter) Reset() { c.left, c.right = 0, 0 }

// scriptedGyro returns the queued rates in order, then falls back to rate.
type scriptedGyro struct {
	script  []float64
	rate    float64
	initErr error
}

func (g *scriptedGyro) Init() error { return g.initErr }

func (g *scriptedGyro) YawRate() float64 {
	if len(g.script) > 0 {
		r := g.script[0]
		g.script = g.script[1:]
		return r
	}
	return g.rate
}

type motorLog struct {
	left, right int
	sets        int
	stops       int
	coasts      int
}

func (m *motorLog) SetBoth(left, right int) error {
	m.left, m.right = left, right
	m.sets++
	return nil
}

func (m *motorLog) Stop() error {
	m.left, m.right = 0, 0
	m.stops++
	return nil
}

func (m *motorLog) Coast() error {
	m.coasts++
	return nil
}

func noSleep(time.Duration) {}
