package imu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const (
	DefaultBaud         = 9600
	DefaultFrameTimeout = 2 * time.Second
	FramePeriod         = 50 * time.Millisecond // firmware output rate
	smoothingWindow     = 20
)

// FrameReader pulls frames off a line-oriented stream, skipping lines
// that fail to parse.
type FrameReader struct {
	r   *bufio.Reader
	bad int
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// Next returns the next valid frame. It returns io.EOF once the stream
// is exhausted.
func (fr *FrameReader) Next() (Frame, error) {
	for {
		line, err := fr.r.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			f, perr := ParseFrame(line)
			if perr == nil {
				return f, nil
			}
			fr.bad++
		}
		if err != nil {
			return Frame{}, err
		}
	}
}

// Bad returns how many lines were rejected.
func (fr *FrameReader) Bad() int { return fr.bad }

// SerialGyro reads the MCU frame stream from a UART and exposes the most
// recent GZ value as a yaw-rate source.
type SerialGyro struct {
	Port         string
	Baud         int
	FrameTimeout time.Duration

	log  zerolog.Logger
	open func(port string, mode *serial.Mode) (io.ReadCloser, error)

	rate   atomic.Uint64
	frames atomic.Int64
	closed atomic.Bool

	mu     sync.Mutex
	last   Frame
	avg    *movingaverage.MovingAverage
	stream io.ReadCloser
	done   chan struct{}
}

func NewSerialGyro(port string, baud int, log zerolog.Logger) *SerialGyro {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &SerialGyro{
		Port:         port,
		Baud:         baud,
		FrameTimeout: DefaultFrameTimeout,
		log:          log,
		open:         openPort,
		avg:          movingaverage.New(smoothingWindow),
	}
}

func openPort(port string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(port, mode)
}

// Init opens the port, starts the reader and waits for the first valid
// frame.
func (g *SerialGyro) Init() error {
	stream, err := g.open(g.Port, &serial.Mode{
		BaudRate: g.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("imu: open %s: %w", g.Port, err)
	}
	return g.start(stream)
}

func (g *SerialGyro) start(stream io.ReadCloser) error {
	g.stream = stream
	g.done = make(chan struct{})
	first := make(chan struct{})
	go g.readLoop(first)

	timer := time.NewTimer(g.FrameTimeout)
	defer timer.Stop()
	select {
	case <-first:
	case <-g.done:
	case <-timer.C:
	}

	if g.frames.Load() == 0 {
		g.Close()
		return fmt.Errorf("%w on %s within %s", ErrNoFrame, g.Port, g.FrameTimeout)
	}
	return nil
}

func (g *SerialGyro) readLoop(first chan struct{}) {
	defer close(g.done)

	var once sync.Once
	fr := NewFrameReader(g.stream)
	for {
		f, err := fr.Next()
		if err != nil {
			if !g.closed.Load() && !errors.Is(err, io.EOF) {
				g.log.Warn().Err(err).Str("port", g.Port).Msg("serial read failed")
			}
			g.log.Debug().Int("rejected", fr.Bad()).Int64("frames", g.frames.Load()).Msg("serial reader stopped")
			return
		}
		g.store(f)
		once.Do(func() { close(first) })
	}
}

func (g *SerialGyro) store(f Frame) {
	g.rate.Store(math.Float64bits(f.GZ))
	g.frames.Add(1)

	g.mu.Lock()
	g.last = f
	g.avg.Add(f.GZ)
	g.mu.Unlock()
}

func (g *SerialGyro) YawRate() float64 {
	return math.Float64frombits(g.rate.Load())
}

// Latest returns the most recent frame.
func (g *SerialGyro) Latest() Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// SmoothedYawRate is a moving average of recent GZ values, for display.
func (g *SerialGyro) SmoothedYawRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.frames.Load() == 0 {
		return 0
	}
	return g.avg.Avg()
}

func (g *SerialGyro) Frames() int64 {
	return g.frames.Load()
}

// Close stops the reader and closes the port. It is safe to call more
// than once.
func (g *SerialGyro) Close() error {
	if g.stream == nil || !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := g.stream.Close()
	<-g.done
	return err
}
