package drive

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/san-kum/drivectl/internal/actuation"
	"github.com/san-kum/drivectl/internal/control"
	"github.com/san-kum/drivectl/internal/sensing"
)

// ErrHeadingUnavailable is returned by SetSpeed under HeadingRequired when
// the yaw-rate source failed to initialise.
var ErrHeadingUnavailable = errors.New("drive: heading source unavailable")

type Mode int

const (
	Stopped Mode = iota
	Running
	Calibrating
)

func (m Mode) String() string {
	switch m {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Calibrating:
		return "calibrating"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Telemetry is a snapshot of one control tick.
type Telemetry struct {
	Time              float64
	Mode              Mode
	Target            float64
	Wheels            sensing.WheelSample
	Heading           float64
	SpeedOutLeft      float64
	SpeedOutRight     float64
	HeadingCorrection float64
	Command           actuation.DriveCommand
	HeadingActive     bool
	Saturated         bool
}

type Observer interface {
	OnTick(Telemetry)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Telemetry)

func (f ObserverFunc) OnTick(t Telemetry) { f(t) }

type Option func(*Controller)

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// Controller holds a straight line at a commanded speed with two wheel
// speed loops and one heading loop. All methods must be called from the
// same goroutine.
type Controller struct {
	cfg     Config
	sensors *sensing.Adapter
	motors  *actuation.Adapter
	log     zerolog.Logger

	observers []Observer

	mode   Mode
	target float64

	speedLeft  *control.PID
	speedRight *control.PID
	heading    *control.PID

	headingHealthy bool
	elapsed        float64
	last           Telemetry
}

func New(sensors *sensing.Adapter, motors *actuation.Adapter, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:            cfg,
		sensors:        sensors,
		motors:         motors,
		log:            zerolog.Nop(),
		headingHealthy: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.configure()
	return c
}

func (c *Controller) configure() {
	lim := c.cfg.OutputLimit
	c.speedLeft = control.NewPID(c.cfg.SpeedGains.Kp, c.cfg.SpeedGains.Ki, c.cfg.SpeedGains.Kd, -lim, lim)
	c.speedRight = control.NewPID(c.cfg.SpeedGains.Kp, c.cfg.SpeedGains.Ki, c.cfg.SpeedGains.Kd, -lim, lim)
	c.speedLeft.SetIntegralLimit(c.cfg.SpeedIntegralLimit)
	c.speedRight.SetIntegralLimit(c.cfg.SpeedIntegralLimit)

	hlim := c.cfg.HeadingOutputLimit
	c.heading = control.NewPID(c.cfg.HeadingGains.Kp, c.cfg.HeadingGains.Ki, c.cfg.HeadingGains.Kd, -hlim, hlim)
	c.heading.SetIntegralLimit(c.cfg.HeadingIntegralLimit)

	c.mode = Stopped
	c.target = 0
}

// Init brings up the yaw-rate source and resets the loops. A source failure
// is returned but leaves the controller usable according to its
// HeadingPolicy.
func (c *Controller) Init() error {
	c.configure()

	if err := c.sensors.Init(); err != nil {
		c.headingHealthy = false
		c.log.Warn().Err(err).Stringer("policy", c.cfg.HeadingPolicy).Msg("yaw source init failed")
		return fmt.Errorf("drive: init yaw source: %w", err)
	}
	c.headingHealthy = true
	return nil
}

// Calibrate brakes, measures gyro bias and clears all loop state. It blocks
// for the whole sampling window and returns the measured bias.
func (c *Controller) Calibrate() float64 {
	c.setMode(Calibrating)
	c.motors.Brake()

	bias := c.sensors.Calibrate()
	c.sensors.Reset()
	c.resetLoops()

	c.log.Info().Float64("bias", bias).Msg("gyro calibrated")
	c.setMode(Stopped)
	return bias
}

// SetSpeed sets the target speed. Leaving Stopped resets the heading
// reference and the heading loop; a zero speed stops.
func (c *Controller) SetSpeed(v float64) error {
	if v == 0 {
		c.target = 0
		c.setMode(Stopped)
		return nil
	}

	if c.mode == Stopped {
		if !c.headingHealthy && c.cfg.HeadingPolicy == HeadingRequired {
			return ErrHeadingUnavailable
		}
		c.sensors.ResetHeading()
		c.heading.Reset()
		c.target = v
		c.setMode(Running)
		return nil
	}

	c.target = v
	return nil
}

// Update runs one control tick of dt seconds. While Stopped it only holds
// the brake. A non-positive dt in Running is skipped entirely.
func (c *Controller) Update(dt float64) {
	switch c.mode {
	case Stopped:
		c.motors.Brake()
		if dt > 0 {
			c.elapsed += dt
		}
		c.last.Time = c.elapsed
		c.last.Mode = Stopped
		c.last.Target = c.target
		c.last.SpeedOutLeft = 0
		c.last.SpeedOutRight = 0
		c.last.HeadingCorrection = 0
		c.last.Command = actuation.DriveCommand{}
		c.last.Saturated = false
		c.notify()
		return
	case Running:
	default:
		return
	}
	if dt <= 0 {
		return
	}
	c.elapsed += dt

	wheels, heading := c.sensors.Sample(dt)

	outL := c.speedLeft.Compute(c.target, wheels.Left, dt)
	outR := c.speedRight.Compute(c.target, wheels.Right, dt)

	active := c.headingActive()
	corr := 0.0
	if active {
		corr = c.heading.Compute(0, heading.Degrees, dt)
	}

	lim := int(c.cfg.OutputLimit)
	left := actuation.Clamp(outL-corr, lim)
	right := actuation.Clamp(outR+corr, lim)
	cmd := c.motors.Apply(actuation.DriveCommand{Left: left, Right: right})

	c.last = Telemetry{
		Time:              c.elapsed,
		Mode:              Running,
		Target:            c.target,
		Wheels:            wheels,
		Heading:           heading.Degrees,
		SpeedOutLeft:      outL,
		SpeedOutRight:     outR,
		HeadingCorrection: corr,
		Command:           cmd,
		HeadingActive:     active,
		Saturated:         abs(cmd.Left) >= lim || abs(cmd.Right) >= lim,
	}
	c.notify()
}

// Stop brakes immediately and clears all loop state.
func (c *Controller) Stop() {
	c.setMode(Stopped)
	c.target = 0
	c.motors.Brake()
	c.resetLoops()
	c.last.Command = actuation.DriveCommand{}
}

func (c *Controller) SetSpeedGains(kp, ki, kd float64) {
	c.cfg.SpeedGains = Gains{Kp: kp, Ki: ki, Kd: kd}
	c.speedLeft.SetGains(kp, ki, kd)
	c.speedRight.SetGains(kp, ki, kd)
}

func (c *Controller) SetHeadingGains(kp, ki, kd float64) {
	c.cfg.HeadingGains = Gains{Kp: kp, Ki: ki, Kd: kd}
	c.heading.SetGains(kp, ki, kd)
}

func (c *Controller) State() Mode          { return c.mode }
func (c *Controller) TargetSpeed() float64 { return c.target }
func (c *Controller) Config() Config       { return c.cfg }

// CurrentSpeed is the mean of the last sampled wheel speeds.
func (c *Controller) CurrentSpeed() float64 { return c.last.Wheels.Mean() }

// HeadingError is the last sampled heading; the heading setpoint is zero.
func (c *Controller) HeadingError() float64 { return c.last.Heading }

func (c *Controller) Command() actuation.DriveCommand { return c.last.Command }
func (c *Controller) Telemetry() Telemetry            { return c.last }
func (c *Controller) HeadingHealthy() bool            { return c.headingHealthy }

// Loops exposes the three PIDs for live tuning.
func (c *Controller) Loops() (left, right, heading *control.PID) {
	return c.speedLeft, c.speedRight, c.heading
}

func (c *Controller) headingActive() bool {
	return c.headingHealthy || c.cfg.HeadingPolicy == HeadingIgnore
}

func (c *Controller) resetLoops() {
	c.speedLeft.Reset()
	c.speedRight.Reset()
	c.heading.Reset()
}

func (c *Controller) setMode(m Mode) {
	if c.mode == m {
		return
	}
	c.log.Debug().Stringer("from", c.mode).Stringer("to", m).Msg("mode")
	c.mode = m
}

func (c *Controller) notify() {
	for _, o := range c.observers {
		o.OnTick(c.last)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
