package hardware

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/multierr"

	"github.com/san-kum/drivectl/internal/actuation"
	"github.com/san-kum/drivectl/internal/config"
)

// Rig owns the GPIO side of the robot.
type Rig struct {
	Motors   *Motors
	Encoders *Encoders

	log      zerolog.Logger
	closeMem func() error
}

// Open maps GPIO memory, configures the motor and encoder pins and
// starts the encoder poller. Motor commands of ±outputLimit map to full
// duty.
func Open(ctx context.Context, cfg config.HardwareConfig, outputLimit float64, log zerolog.Logger) (*Rig, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("hardware: open gpio: %w", err)
	}

	motors := newMotors(
		rpioChannel(cfg.LeftIn1, cfg.LeftIn2, cfg.LeftPWM, cfg.PWMFrequency),
		rpioChannel(cfg.RightIn1, cfg.RightIn2, cfg.RightPWM, cfg.PWMFrequency),
		motorRange(outputLimit),
	)
	encoders := newEncoders(
		rpioQuadrature(cfg.LeftEncA, cfg.LeftEncB),
		rpioQuadrature(cfg.RightEncA, cfg.RightEncB),
		cfg.PollPeriod,
	)

	r := newRig(motors, encoders, rpio.Close, log)
	r.Encoders.Start(ctx)
	log.Info().
		Int("pwm_hz", cfg.PWMFrequency).
		Int("range", motors.Range).
		Dur("poll", cfg.PollPeriod).
		Msg("gpio ready")
	return r, nil
}

func motorRange(limit float64) int {
	if limit < 1 {
		return actuation.DefaultRange
	}
	return int(limit)
}

func newRig(m *Motors, e *Encoders, closeMem func() error, log zerolog.Logger) *Rig {
	return &Rig{Motors: m, Encoders: e, log: log, closeMem: closeMem}
}

// Close brakes the motors, stops the poller and releases GPIO memory.
func (r *Rig) Close() error {
	err := r.Motors.Stop()
	r.Motors.closed = true
	r.Encoders.Stop()
	err = multierr.Append(err, r.closeMem())
	if err != nil {
		r.log.Warn().Err(err).Msg("gpio shutdown")
	}
	return err
}
