package drive_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/drivectl/internal/actuation"
	"github.com/san-kum/drivectl/internal/drive"
	"github.com/san-kum/drivectl/internal/sensing"
)

const dt = 0.01

type rig struct {
	counter *tickCounter
	gyro    *scriptedGyro
	motors  *motorLog
	ctrl    *drive.Controller
}

func newRig(cfg drive.Config, opts ...drive.Option) *rig {
	r := &rig{
		counter: &tickCounter{},
		gyro:    &scriptedGyro{},
		motors:  &motorLog{},
	}
	sensors := sensing.NewAdapter(r.counter, r.gyro, sensing.CalibrationConfig{Sleep: noSleep})
	act := actuation.NewAdapter(r.motors, zerolog.Nop())
	r.ctrl = drive.New(sensors, act, cfg, opts...)
	return r
}

func (r *rig) run(ticks int) {
	for i := 0; i < ticks; i++ {
		r.ctrl.Update(dt)
	}
}

var _ = Describe("Controller", func() {
	var r *rig

	BeforeEach(func() {
		r = newRig(drive.DefaultConfig())
		Expect(r.ctrl.Init()).To(Succeed())
	})

	Describe("state machine", func() {
		It("starts stopped with zero target", func() {
			Expect(r.ctrl.State()).To(Equal(drive.Stopped))
			Expect(r.ctrl.TargetSpeed()).To(BeZero())
		})

		It("stops on a zero setpoint from any mode", func() {
			Expect(r.ctrl.SetSpeed(0)).To(Succeed())
			Expect(r.ctrl.State()).To(Equal(drive.Stopped))

			Expect(r.ctrl.SetSpeed(200)).To(Succeed())
			Expect(r.ctrl.State()).To(Equal(drive.Running))
			Expect(r.ctrl.SetSpeed(0)).To(Succeed())
			Expect(r.ctrl.State()).To(Equal(drive.Stopped))
			Expect(r.ctrl.TargetSpeed()).To(BeZero())
		})

		It("resets heading and the heading loop when leaving Stopped", func() {
			r.gyro.rate = 30
			Expect(r.ctrl.SetSpeed(300)).To(Succeed())
			r.run(20)

			_, _, heading := r.ctrl.Loops()
			Expect(r.ctrl.HeadingError()).NotTo(BeZero())
			Expect(heading.Integral()).NotTo(BeZero())

			Expect(r.ctrl.SetSpeed(0)).To(Succeed())
			r.gyro.rate = 0
			Expect(r.ctrl.SetSpeed(300)).To(Succeed())

			Expect(r.ctrl.State()).To(Equal(drive.Running))
			Expect(heading.Integral()).To(BeZero())
			Expect(heading.PrevMeasurement()).To(BeZero())

			r.run(1)
			Expect(r.ctrl.HeadingError()).To(BeZero())
		})

		It("keeps the heading reference when the speed changes while running", func() {
			r.gyro.script = []float64{500}
			Expect(r.ctrl.SetSpeed(300)).To(Succeed())
			r.run(1)
			Expect(r.ctrl.HeadingError()).To(BeNumerically("~", 5, 1e-9))

			Expect(r.ctrl.SetSpeed(400)).To(Succeed())
			r.run(1)
			Expect(r.ctrl.HeadingError()).To(BeNumerically("~", 5, 1e-9))
			Expect(r.ctrl.TargetSpeed()).To(Equal(400.0))
		})

		It("holds the brake and skips the loops while stopped", func() {
			r.run(10)

			left, right, heading := r.ctrl.Loops()
			Expect(r.motors.stops).To(Equal(10))
			Expect(r.motors.sets).To(BeZero())
			Expect(r.counter.reads).To(BeZero())
			Expect(left.PrevMeasurement()).To(BeZero())
			Expect(right.Integral()).To(BeZero())
			Expect(heading.Integral()).To(BeZero())
			Expect(r.ctrl.Command()).To(Equal(actuation.DriveCommand{}))
		})

		It("skips ticks with a non-positive dt while running", func() {
			Expect(r.ctrl.SetSpeed(300)).To(Succeed())
			stops := r.motors.stops
			r.ctrl.Update(0)
			r.ctrl.Update(-0.01)
			Expect(r.counter.reads).To(BeZero())
			Expect(r.motors.sets).To(BeZero())
			Expect(r.motors.stops).To(Equal(stops), "a skipped tick leaves the last command in place")
			Expect(r.ctrl.State()).To(Equal(drive.Running))
		})

		It("brakes and clears loops on Stop", func() {
			r.counter.stepLeft, r.counter.stepRight = 2, 2
			Expect(r.ctrl.SetSpeed(500)).To(Succeed())
			r.run(50)

			r.ctrl.Stop()
			left, right, heading := r.ctrl.Loops()
			Expect(r.ctrl.State()).To(Equal(drive.Stopped))
			Expect(r.ctrl.TargetSpeed()).To(BeZero())
			Expect(r.motors.stops).To(BeNumerically(">=", 1))
			Expect(left.Integral()).To(BeZero())
			Expect(right.Integral()).To(BeZero())
			Expect(heading.Integral()).To(BeZero())
		})

		It("applies new gains to both wheel loops", func() {
			r.ctrl.SetSpeedGains(1, 2, 3)
			r.ctrl.SetHeadingGains(4, 5, 6)
			left, right, heading := r.ctrl.Loops()
			Expect(left.Kp).To(Equal(1.0))
			Expect(right.Kd).To(Equal(3.0))
			Expect(heading.Ki).To(Equal(5.0))
		})
	})

	Describe("straight run at a matched speed", func() {
		It("settles to equal wheel commands", func() {
			r.counter.stepLeft, r.counter.stepRight = 5, 5
			Expect(r.ctrl.SetSpeed(500)).To(Succeed())
			r.run(100)

			cmd := r.ctrl.Command()
			Expect(cmd.Left).To(Equal(cmd.Right))
			Expect(cmd.Left).To(BeNumerically(">=", 0))
			Expect(cmd.Left).To(BeNumerically("<=", 1000))
			Expect(r.ctrl.CurrentSpeed()).To(BeNumerically("~", 500, 1e-6))
			Expect(r.motors.left).To(Equal(cmd.Left))
		})

		It("never leaves the actuator range", func() {
			Expect(r.ctrl.SetSpeed(5000)).To(Succeed())
			for i := 0; i < 200; i++ {
				r.ctrl.Update(dt)
				cmd := r.ctrl.Command()
				Expect(cmd.Left).To(BeNumerically("<=", 1000))
				Expect(cmd.Right).To(BeNumerically(">=", -1000))
			}
		})
	})

	Describe("heading correction", func() {
		var baseline actuation.DriveCommand

		BeforeEach(func() {
			base := newRig(drive.DefaultConfig())
			Expect(base.ctrl.Init()).To(Succeed())
			base.counter.stepLeft, base.counter.stepRight = 5, 5
			Expect(base.ctrl.SetSpeed(500)).To(Succeed())
			base.run(100)
			baseline = base.ctrl.Command()
		})

		It("speeds up the left wheel and slows the right one for a positive heading", func() {
			// one fast sample lands the heading at +10 degrees, then it holds
			r.gyro.script = []float64{1000}
			r.counter.stepLeft, r.counter.stepRight = 5, 5
			Expect(r.ctrl.SetSpeed(500)).To(Succeed())
			r.run(100)

			Expect(r.ctrl.HeadingError()).To(BeNumerically("~", 10, 1e-9))
			cmd := r.ctrl.Command()
			Expect(cmd.Left).To(BeNumerically(">", baseline.Left))
			Expect(cmd.Right).To(BeNumerically("<", baseline.Right))
			Expect(cmd.Left).To(Equal(-cmd.Right))
			Expect(r.ctrl.Telemetry().HeadingCorrection).To(BeNumerically("<", 0))
		})
	})

	Describe("calibration", func() {
		It("removes a constant gyro bias", func() {
			r.gyro.rate = 2.0
			bias := r.ctrl.Calibrate()
			Expect(bias).To(BeNumerically("~", 2.0, 1e-9))
			Expect(r.ctrl.State()).To(Equal(drive.Stopped))

			r.counter.stepLeft, r.counter.stepRight = 5, 5
			Expect(r.ctrl.SetSpeed(500)).To(Succeed())
			r.run(100)
			Expect(r.ctrl.HeadingError()).To(BeNumerically("~", 0, 1e-9))
		})

		It("brakes and resets loops", func() {
			r.counter.stepLeft, r.counter.stepRight = 3, 3
			Expect(r.ctrl.SetSpeed(500)).To(Succeed())
			r.run(30)

			stops := r.motors.stops
			r.ctrl.Calibrate()
			left, _, _ := r.ctrl.Loops()
			Expect(r.motors.stops).To(Equal(stops + 1))
			Expect(left.Integral()).To(BeZero())
			Expect(r.counter.left).To(BeZero())
		})
	})

	Describe("heading policy", func() {
		failing := func(policy drive.HeadingPolicy) *rig {
			cfg := drive.DefaultConfig()
			cfg.HeadingPolicy = policy
			f := newRig(cfg)
			f.gyro.initErr = errors.New("no device")
			f.gyro.script = []float64{1000}
			f.counter.stepLeft, f.counter.stepRight = 5, 5
			Expect(f.ctrl.Init()).To(MatchError(ContainSubstring("no device")))
			Expect(f.ctrl.State()).To(Equal(drive.Stopped))
			return f
		}

		It("drops heading correction when speed-only", func() {
			f := failing(drive.HeadingSpeedOnly)
			Expect(f.ctrl.SetSpeed(500)).To(Succeed())
			f.run(50)
			Expect(f.ctrl.Telemetry().HeadingActive).To(BeFalse())
			Expect(f.ctrl.Telemetry().HeadingCorrection).To(BeZero())
			Expect(f.ctrl.Command().Left).To(Equal(f.ctrl.Command().Right))
		})

		It("keeps correcting when ignoring the failure", func() {
			f := failing(drive.HeadingIgnore)
			Expect(f.ctrl.SetSpeed(500)).To(Succeed())
			f.run(50)
			Expect(f.ctrl.Telemetry().HeadingActive).To(BeTrue())
			Expect(f.ctrl.Telemetry().HeadingCorrection).NotTo(BeZero())
		})

		It("refuses to run when heading is required", func() {
			f := failing(drive.HeadingRequired)
			Expect(f.ctrl.SetSpeed(500)).To(MatchError(drive.ErrHeadingUnavailable))
			Expect(f.ctrl.State()).To(Equal(drive.Stopped))
			Expect(f.ctrl.TargetSpeed()).To(BeZero())
		})

		It("round-trips policy names", func() {
			for _, p := range []drive.HeadingPolicy{drive.HeadingSpeedOnly, drive.HeadingIgnore, drive.HeadingRequired} {
				parsed, err := drive.ParseHeadingPolicy(p.String())
				Expect(err).NotTo(HaveOccurred())
				Expect(parsed).To(Equal(p))
			}
			_, err := drive.ParseHeadingPolicy("sometimes")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("observers", func() {
		It("receives one snapshot per tick", func() {
			var ticks []drive.Telemetry
			o := newRig(drive.DefaultConfig(), drive.WithObserver(drive.ObserverFunc(func(t drive.Telemetry) {
				ticks = append(ticks, t)
			})))
			Expect(o.ctrl.Init()).To(Succeed())
			o.run(3)
			Expect(o.ctrl.SetSpeed(100)).To(Succeed())
			o.run(2)

			Expect(ticks).To(HaveLen(5))
			Expect(ticks[0].Mode).To(Equal(drive.Stopped))
			Expect(ticks[4].Mode).To(Equal(drive.Running))
			Expect(ticks[4].Time).To(BeNumerically("~", 0.05, 1e-9))
		})
	})
})
