// Package actuation applies signed per-wheel commands to a motor driver.
package actuation

import (
	"math"

	"github.com/rs/zerolog"
)

// DefaultRange is the symmetric command bound of the motor driver.
const DefaultRange = 1000

// Actuator is a two-channel motor driver. Commands are signed, within the
// driver's range; Stop brakes both wheels and Coast lets them spin freely.
type Actuator interface {
	SetBoth(left, right int) error
	Stop() error
	Coast() error
}

// DriveCommand is a signed per-wheel command. Zero means brake.
type DriveCommand struct {
	Left  int
	Right int
}

// Adapter clamps commands and forwards them to an Actuator. Driver errors
// are logged and counted but never returned to the control loop.
type Adapter struct {
	Range int

	act    Actuator
	log    zerolog.Logger
	last   DriveCommand
	faults int
}

func NewAdapter(act Actuator, log zerolog.Logger) *Adapter {
	return &Adapter{
		Range: DefaultRange,
		act:   act,
		log:   log,
	}
}

// Apply clamps cmd to the adapter range, sends it and returns what was sent.
func (a *Adapter) Apply(cmd DriveCommand) DriveCommand {
	cmd.Left = clampInt(cmd.Left, a.Range)
	cmd.Right = clampInt(cmd.Right, a.Range)

	if err := a.act.SetBoth(cmd.Left, cmd.Right); err != nil {
		a.fault("set", err)
	}
	a.last = cmd
	return cmd
}

// Brake stops both wheels and records a zero command.
func (a *Adapter) Brake() {
	if err := a.act.Stop(); err != nil {
		a.fault("brake", err)
	}
	a.last = DriveCommand{}
}

func (a *Adapter) Coast() {
	if err := a.act.Coast(); err != nil {
		a.fault("coast", err)
	}
	a.last = DriveCommand{}
}

// Last returns the most recent command sent.
func (a *Adapter) Last() DriveCommand { return a.last }

// Faults returns how many driver calls have failed.
func (a *Adapter) Faults() int { return a.faults }

func (a *Adapter) fault(op string, err error) {
	a.faults++
	a.log.Warn().Err(err).Str("op", op).Int("faults", a.faults).Msg("actuator fault")
}

// Clamp rounds v toward zero and bounds it to [-limit, limit].
func Clamp(v float64, limit int) int {
	if math.IsNaN(v) {
		return 0
	}
	lim := float64(limit)
	if v > lim {
		return limit
	}
	if v < -lim {
		return -limit
	}
	return int(v)
}

func clampInt(v, limit int) int {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
