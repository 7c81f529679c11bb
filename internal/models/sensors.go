package models

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/san-kum/drivectl/internal/actuation"
	"github.com/san-kum/drivectl/internal/sim"
)

var ErrGyroOffline = errors.New("models: simulated gyro offline")

// SimEncoder exposes plant wheel travel as cumulative counts. The plant
// writes raw counts; Reset rebases them to zero.
type SimEncoder struct {
	rawL, rawR   atomic.Int64
	baseL, baseR atomic.Int64
}

func (e *SimEncoder) CountLeft() int64  { return e.rawL.Load() - e.baseL.Load() }
func (e *SimEncoder) CountRight() int64 { return e.rawR.Load() - e.baseR.Load() }

func (e *SimEncoder) Reset() {
	e.baseL.Store(e.rawL.Load())
	e.baseR.Store(e.rawR.Load())
}

func (e *SimEncoder) set(left, right int64) {
	e.rawL.Store(left)
	e.rawR.Store(right)
}

type GyroParams struct {
	Bias     float64 `yaml:"bias"`  // deg/s
	Noise    float64 `yaml:"noise"` // deg/s, standard deviation
	FailInit bool    `yaml:"fail_init"`
}

// SimGyro reports the plant yaw rate plus a constant bias and Gaussian noise.
type SimGyro struct {
	GyroParams

	mu   sync.Mutex
	rng  *rand.Rand
	rate float64
}

func NewSimGyro(p GyroParams, seed int64) *SimGyro {
	return &SimGyro{GyroParams: p, rng: rand.New(rand.NewSource(seed))}
}

func (g *SimGyro) Init() error {
	if g.FailInit {
		return ErrGyroOffline
	}
	return nil
}

func (g *SimGyro) YawRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.rate + g.Bias
	if g.Noise > 0 {
		r += g.rng.NormFloat64() * g.Noise
	}
	return r
}

func (g *SimGyro) setRate(r float64) {
	g.mu.Lock()
	g.rate = r
	g.mu.Unlock()
}

// SimMotors records the last command and turns it into a plant control vector.
type SimMotors struct {
	Range int

	left, right int
	damp        float64
	sets        int
}

func NewSimMotors() *SimMotors {
	return &SimMotors{Range: actuation.DefaultRange, damp: DampBrake}
}

func (m *SimMotors) SetBoth(left, right int) error {
	m.left, m.right = left, right
	m.damp = DampDrive
	m.sets++
	return nil
}

func (m *SimMotors) Stop() error {
	m.left, m.right = 0, 0
	m.damp = DampBrake
	return nil
}

func (m *SimMotors) Coast() error {
	m.left, m.right = 0, 0
	m.damp = DampCoast
	return nil
}

func (m *SimMotors) Command() (left, right int) { return m.left, m.right }
func (m *SimMotors) Braking() bool              { return m.damp == DampBrake }

func (m *SimMotors) Control() sim.Control {
	r := float64(m.Range)
	return sim.Control{float64(m.left) / r, float64(m.right) / r, m.damp}
}

// quantize floors plant travel to whole encoder counts.
func quantize(pos float64) int64 {
	return int64(math.Floor(pos))
}
