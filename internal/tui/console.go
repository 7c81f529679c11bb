package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/drivectl/internal/drive"
	"github.com/san-kum/drivectl/internal/experiment"
	"github.com/san-kum/drivectl/internal/models"
	"github.com/san-kum/drivectl/internal/sim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const (
	frame        = 50 * time.Millisecond
	speedStep    = 50.0
	historyLen   = 120
	smoothWindow = 10
	gainFactor   = 1.1
)

var gainNames = []string{"speed.Kp", "speed.Ki", "speed.Kd", "heading.Kp", "heading.Ki", "heading.Kd"}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frame, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type console struct {
	sim   *sim.Simulator
	ctrl  *drive.Controller
	bench *models.Bench
	dt    float64

	t       float64
	rate    float64
	paused  bool
	status  string
	cursor  int
	avg     *movingaverage.MovingAverage
	speed   []float64
	target  []float64
	heading []float64

	width int
}

// NewConsole wraps a set-up experiment in an interactive bubbletea model.
func NewConsole(exp *experiment.Experiment) tea.Model {
	return console{
		sim:    exp.Simulator(),
		ctrl:   exp.Controller(),
		bench:  exp.Bench(),
		dt:     exp.Config().Sim.Dt,
		rate:   1.0,
		status: "stopped",
		avg:    movingaverage.New(smoothWindow),
		width:  80,
	}
}

// Run blocks until the user quits the console.
func Run(exp *experiment.Experiment) error {
	p := tea.NewProgram(NewConsole(exp), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m console) Init() tea.Cmd { return tick() }

func (m console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if !m.paused {
			m = m.advance(frame.Seconds() * m.rate)
		}
		return m, tick()
	}
	return m, nil
}

// advance runs whole control periods covering span seconds of bench time.
func (m console) advance(span float64) console {
	steps := int(math.Round(span / m.dt))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		m.sim.Step(m.t, m.dt)
		m.t += m.dt
		x := m.bench.State()
		m.avg.Add((x[models.StateVL] + x[models.StateVR]) / 2)
	}

	tel := m.ctrl.Telemetry()
	m.speed = push(m.speed, m.avg.Avg())
	m.target = push(m.target, tel.Target)
	m.heading = push(m.heading, tel.Heading)
	return m
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyLen {
		h = h[len(h)-historyLen:]
	}
	return h
}

func (m console) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.ctrl.Stop()
		return m, tea.Quit
	case "up", "k":
		m.setTarget(m.ctrl.TargetSpeed() + speedStep)
	case "down", "j":
		m.setTarget(m.ctrl.TargetSpeed() - speedStep)
	case " ":
		m.ctrl.Stop()
		m.status = "stopped"
	case "c":
		if m.ctrl.State() != drive.Stopped || !m.atRest() {
			m.status = "stop and let the robot settle before calibrating"
			break
		}
		bias := m.ctrl.Calibrate()
		m.status = fmt.Sprintf("calibrated, bias %.3f °/s", bias)
	case "r":
		m.ctrl.Stop()
		m.bench.Reset()
		m.ctrl.Calibrate()
		m.t = 0
		m.speed, m.target, m.heading = nil, nil, nil
		m.avg = movingaverage.New(smoothWindow)
		m.status = "reset"
	case "p":
		m.paused = !m.paused
	case "+", "=":
		m.rate = math.Min(m.rate*2, 16)
	case "-", "_":
		m.rate = math.Max(m.rate/2, 0.25)
	case "tab":
		m.cursor = (m.cursor + 1) % len(gainNames)
	case "]":
		m.scaleGain(gainFactor)
	case "[":
		m.scaleGain(1 / gainFactor)
	}
	return m, nil
}

func (m console) atRest() bool {
	x := m.bench.State()
	return math.Abs(x[models.StateVL]) < 1 && math.Abs(x[models.StateVR]) < 1
}

func (m *console) setTarget(v float64) {
	if math.Abs(v) < 1e-9 {
		v = 0
	}
	if err := m.ctrl.SetSpeed(v); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("target %.0f", v)
}

// scaleGain multiplies the selected gain; a zero gain is nudged off zero.
func (m *console) scaleGain(f float64) {
	cfg := m.ctrl.Config()
	g := &cfg.SpeedGains
	if m.cursor >= 3 {
		g = &cfg.HeadingGains
	}
	p := [...]*float64{&g.Kp, &g.Ki, &g.Kd}[m.cursor%3]
	switch {
	case *p == 0 && f > 1:
		*p = 0.01
	default:
		*p *= f
	}

	if m.cursor < 3 {
		m.ctrl.SetSpeedGains(g.Kp, g.Ki, g.Kd)
	} else {
		m.ctrl.SetHeadingGains(g.Kp, g.Ki, g.Kd)
	}
	m.status = fmt.Sprintf("%s = %.3f", gainNames[m.cursor], *p)
}

func (m console) View() string {
	var b strings.Builder
	tel := m.ctrl.Telemetry()

	icon, mode := dim.Render("○"), dim.Render(tel.Mode.String())
	switch tel.Mode {
	case drive.Running:
		icon, mode = green.Render("●"), green.Render("running")
	case drive.Calibrating:
		icon, mode = yellow.Render("◐"), yellow.Render("calibrating")
	}
	if m.paused {
		mode += " " + yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s  %s\n", icon, cyan.Render("drivectl"), mode,
		dim.Render(fmt.Sprintf("t=%.1fs  x%.2f", m.t, m.rate))))
	b.WriteString(dimmer.Render("   "+strings.Repeat("─", 60)) + "\n")

	gyro := green.Render("gyro ok")
	if !m.ctrl.HeadingHealthy() {
		gyro = red.Render("gyro offline")
	}
	b.WriteString(fmt.Sprintf("   %s %s   %s %s   %s %s   %s\n",
		dim.Render("target"), white.Render(fmt.Sprintf("%6.0f", tel.Target)),
		dim.Render("speed"), white.Render(fmt.Sprintf("%6.0f", m.smoothed())),
		dim.Render("heading"), white.Render(fmt.Sprintf("%6.2f°", tel.Heading)),
		gyro))
	sat := ""
	if tel.Saturated {
		sat = "  " + red.Render("saturated")
	}
	b.WriteString(fmt.Sprintf("   %s %s   %s %s   %s %s%s\n\n",
		dim.Render("left"), white.Render(fmt.Sprintf("%6.0f", tel.Wheels.Left)),
		dim.Render("right"), white.Render(fmt.Sprintf("%6.0f", tel.Wheels.Right)),
		dim.Render("cmd"), magenta.Render(fmt.Sprintf("%5d %5d", tel.Command.Left, tel.Command.Right)),
		sat))

	if len(m.speed) > 1 {
		w := m.width - 16
		if w < 30 {
			w = 30
		}
		graph := asciigraph.PlotMany([][]float64{m.target, m.speed},
			asciigraph.Height(10),
			asciigraph.Width(w),
			asciigraph.SeriesColors(asciigraph.DarkGray, asciigraph.Aqua),
			asciigraph.Caption("wheel speed (counts/s)"))
		b.WriteString(indent(graph, "   ") + "\n\n")
		b.WriteString(fmt.Sprintf("   %s %s\n\n", dim.Render("heading"), cyan.Render(sparkline(m.heading, 48))))
	}

	b.WriteString(m.viewGains())
	b.WriteString("\n   " + dim.Render(m.status) + "\n")
	b.WriteString("\n" + dim.Render("   ↑↓ speed  space stop  c calibrate  r reset  p pause  ±rate  tab/[ ] gains  q quit") + "\n")
	return b.String()
}

func (m console) smoothed() float64 {
	if len(m.speed) == 0 {
		return 0
	}
	return m.speed[len(m.speed)-1]
}

func (m console) viewGains() string {
	cfg := m.ctrl.Config()
	vals := []float64{
		cfg.SpeedGains.Kp, cfg.SpeedGains.Ki, cfg.SpeedGains.Kd,
		cfg.HeadingGains.Kp, cfg.HeadingGains.Ki, cfg.HeadingGains.Kd,
	}
	var b strings.Builder
	b.WriteString("  ")
	for i, name := range gainNames {
		cell := fmt.Sprintf("%s=%.3f", name, vals[i])
		if i == m.cursor {
			b.WriteString(" " + cyan.Render("▸"+cell))
		} else {
			b.WriteString("  " + dim.Render(cell))
		}
		if i == 2 {
			b.WriteString("\n  ")
		}
	}
	return b.String() + "\n"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var sb strings.Builder
	for _, v := range data {
		idx := int((v - lo) / span * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
