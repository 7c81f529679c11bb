package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/san-kum/drivectl/internal/actuation"
	"github.com/san-kum/drivectl/internal/config"
	"github.com/san-kum/drivectl/internal/drive"
	"github.com/san-kum/drivectl/internal/hardware"
	"github.com/san-kum/drivectl/internal/imu"
	"github.com/san-kum/drivectl/internal/sensing"
)

// statusEvery is how many control ticks pass between status log lines.
const statusEvery = 50

// signalContext is cancelled on SIGINT/SIGTERM and, when runFor is set,
// after that many seconds.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if runFor <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(runFor*float64(time.Second)))
	return ctx, func() {
		cancel()
		stop()
	}
}

// openGyro builds the configured yaw-rate source. The returned closer
// releases the bus or port; the source itself is initialised later by
// the controller.
func openGyro(hw config.HardwareConfig) (sensing.YawRateSource, io.Closer, error) {
	switch hw.Gyro {
	case "i2c":
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("periph init: %w", err)
		}
		bus, err := i2creg.Open(hw.I2CBus)
		if err != nil {
			return nil, nil, fmt.Errorf("open i2c bus %q: %w", hw.I2CBus, err)
		}
		return imu.NewMPU6050(bus, log), bus, nil
	case "serial":
		g := imu.NewSerialGyro(hw.SerialPort, hw.Baud, log)
		return g, g, nil
	default:
		return nil, nil, fmt.Errorf("unknown gyro %q", hw.Gyro)
	}
}

func driveRobot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rig, err := hardware.Open(ctx, cfg.Hardware, cfg.Controller.OutputLimit, log)
	if err != nil {
		return err
	}
	defer rig.Close()

	gyro, gyroCloser, err := openGyro(cfg.Hardware)
	if err != nil {
		return err
	}
	defer gyroCloser.Close()

	sensors := sensing.NewAdapter(rig.Encoders, gyro, cfg.CalibrationConfig())
	motors := actuation.NewAdapter(rig.Motors, log)
	motors.Range = int(cfg.Controller.OutputLimit)

	ctrl := drive.New(sensors, motors, cfg.DriveConfig(), drive.WithLogger(log))
	if err := ctrl.Init(); err != nil {
		log.Warn().Err(err).Msg("continuing without heading hold")
	}
	if !noCalibrate {
		log.Info().Msg("calibrating gyro, keep the robot still")
		ctrl.Calibrate()
	}
	if err := ctrl.SetSpeed(driveSpeed); err != nil {
		return err
	}

	period := cfg.Hardware.LoopPeriod()
	log.Info().
		Float64("speed", driveSpeed).
		Dur("period", period).
		Stringer("policy", cfg.DriveConfig().HeadingPolicy).
		Msg("driving")

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			ctrl.Stop()
			tel := ctrl.Telemetry()
			log.Info().
				Float64("elapsed", tel.Time).
				Int("faults", motors.Faults()).
				Msg("stopped")
			return nil
		case now := <-ticker.C:
			ctrl.Update(now.Sub(last).Seconds())
			last = now
			ticks++
			if ticks%statusEvery == 0 {
				tel := ctrl.Telemetry()
				log.Debug().
					Float64("left", tel.Wheels.Left).
					Float64("right", tel.Wheels.Right).
					Float64("heading", tel.Heading).
					Int("cmd_left", tel.Command.Left).
					Int("cmd_right", tel.Command.Right).
					Bool("saturated", tel.Saturated).
					Msg("tick")
			}
		}
	}
}

func streamIMU(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	g := imu.NewSerialGyro(cfg.Hardware.SerialPort, cfg.Hardware.Baud, log)
	if err := g.Init(); err != nil {
		return err
	}
	defer g.Close()

	est := sensing.NewHeadingEstimator(g)
	if !noCalibrate {
		bias := est.Calibrate(cfg.CalibrationConfig())
		log.Info().Float64("bias", bias).Msg("gyro calibrated")
	}

	ticker := time.NewTicker(imu.FramePeriod)
	defer ticker.Stop()

	fmt.Printf("%-8s %-52s %9s %9s\n", "t", "frame", "gz avg", "heading")
	start := time.Now()
	last := start
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n%d frames\n", g.Frames())
			return nil
		case now := <-ticker.C:
			h := est.Update(now.Sub(last).Seconds())
			last = now
			fmt.Printf("%-8.2f %-52s %9.3f %8.2f°\n",
				now.Sub(start).Seconds(), g.Latest(), g.SmoothedYawRate(), h.Degrees)
		}
	}
}
