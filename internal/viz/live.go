package viz

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pendubalance/internal/control"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/sim"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 300
	trailLength     = 120
	nudgeStep       = 1.0
)

// FrameMsg carries one loop frame into the bubbletea program.
type FrameMsg sim.Frame

// DoneMsg reports that the loop returned.
type DoneMsg struct {
	Result *sim.Result
	Err    error
}

// Model renders the frames produced by a running loop. It never touches the
// loop itself; pausing and stopping go through the shared Presenter.
type Model struct {
	presenter     *Presenter
	energy        dynamo.Hamiltonian
	manual        *control.Manual
	title         string
	canvas        *Canvas
	proj          Projection
	frame         sim.Frame
	frames        int
	trail         []dynamo.Point
	torqueHistory []float64
	costHistory   []float64
	energyHistory []float64
	done          *DoneMsg
	theme         int
	styles        styles
	showHelp      bool
}

// NewModel builds the view for a pendulum of the given reach (L1+L2).
// energy may be nil. A non-nil manual controller enables the arrow keys.
func NewModel(p *Presenter, title string, reach float64, energy dynamo.Hamiltonian, manual *control.Manual) Model {
	canvas := NewCanvas(width, height)
	return Model{
		presenter:     p,
		energy:        energy,
		manual:        manual,
		title:         title,
		canvas:        canvas,
		proj:          FitPendulum(canvas, reach),
		trail:         make([]dynamo.Point, 0, trailLength),
		torqueHistory: make([]float64, 0, historyCapacity),
		costHistory:   make([]float64, 0, historyCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
		styles:        newStyles(Themes[0]),
	}
}

// WithTheme starts the view in the named theme. Unknown names keep the
// current one.
func (m Model) WithTheme(name string) Model {
	for i, t := range Themes {
		if t.Name == name {
			m.theme = i
			m.styles = newStyles(t)
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles input events and incoming frames.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.presenter.Stop()
			return m, tea.Quit
		case " ":
			m.presenter.TogglePause()
		case "left", "h":
			if m.manual != nil {
				m.manual.Nudge(-nudgeStep)
			}
		case "right", "l":
			if m.manual != nil {
				m.manual.Nudge(nudgeStep)
			}
		case "0":
			if m.manual != nil {
				m.manual.SetTorque(0)
			}
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		case "?":
			m.showHelp = !m.showHelp
		}
	case FrameMsg:
		m.observe(sim.Frame(msg))
	case DoneMsg:
		m.done = &msg
	}
	return m, nil
}

func (m *Model) observe(f sim.Frame) {
	m.frame = f
	m.frames++

	m.trail = push(m.trail, f.Lower, trailLength)
	m.torqueHistory = push(m.torqueHistory, f.Decision.Applied, historyCapacity)
	if f.ControlTick {
		m.costHistory = push(m.costHistory, f.Decision.Cost, historyCapacity)
	}
	if m.energy != nil {
		m.energyHistory = push(m.energyHistory, m.energy.Energy(f.State), historyCapacity)
	}
}

func push[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		s = s[1:]
	}
	return s
}

func (m Model) status() string {
	switch {
	case m.done != nil && m.done.Err != nil:
		return m.styles.failed.Render("ERROR: " + m.done.Err.Error())
	case m.done != nil:
		return m.styles.paused.Render("DONE")
	case m.presenter.Paused():
		return m.styles.paused.Render("PAUSED")
	default:
		return m.styles.running.Render("RUNNING")
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.canvas.Clear()
	DrawPendulum(m.canvas, m.proj, m.frame.Upper, m.frame.Lower, m.trail)
	canvasView := m.styles.canvas.Render(m.canvas.String())

	f := m.frame
	var s strings.Builder
	s.WriteString(m.styles.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	row := func(label, value string) {
		s.WriteString(m.styles.label.Render(label) + m.styles.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", f.Time))
	row("Frames", fmt.Sprintf("%d", m.frames))
	row("θ1", fmt.Sprintf("%.3f rad (%.1f°)", f.State.Theta1, f.State.Theta1*180/math.Pi))
	row("θ2", fmt.Sprintf("%.3f rad (%.1f°)", f.State.Theta2, f.State.Theta2*180/math.Pi))
	row("Torque", fmt.Sprintf("%.2f N·m", f.Decision.Torque))
	row("Applied", fmt.Sprintf("%.2f N·m", f.Decision.Applied))
	row("Cost", fmt.Sprintf("%.1f", f.Decision.Cost))
	if f.Decision.Evaluations > 0 {
		row("Rollouts", fmt.Sprintf("%d", f.Decision.Evaluations))
	}
	if len(m.energyHistory) > 0 {
		row("Energy", fmt.Sprintf("%.3f J", m.energyHistory[len(m.energyHistory)-1]))
	}
	if m.done != nil && m.done.Result != nil {
		row("Wall", m.done.Result.Wall.Round(time.Millisecond).String())
	}

	if len(m.torqueHistory) > 1 {
		chart := asciigraph.Plot(m.torqueHistory, asciigraph.Height(5), asciigraph.Width(36), asciigraph.Caption("Applied torque"))
		s.WriteString(m.styles.graph.Render(chart) + "\n")
	}
	if len(m.costHistory) > 1 {
		chart := asciigraph.Plot(m.costHistory, asciigraph.Height(4), asciigraph.Width(36), asciigraph.Caption("Predicted cost"))
		s.WriteString(m.styles.graph.Render(chart) + "\n")
	}

	help := "SP:Pause T:Theme ?:Help Q:Quit"
	if m.manual != nil {
		help += "\n←/→:Torque 0:Zero"
	}
	s.WriteString(m.styles.help.Render("─────────────────────\n" + help))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.styles.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  Q        - Quit                     ║
║  T        - Cycle themes             ║
║  Left/H   - Manual torque -1 N·m     ║
║  Right/L  - Manual torque +1 N·m     ║
║  0        - Manual torque to zero    ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// Sender is the part of *tea.Program the presenter needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Presenter forwards loop frames to a bubbletea program. Frames are
// throttled to the display rate and paced against the wall clock so the
// pendulum moves in real time, or faster with a speed above 1.
type Presenter struct {
	out      Sender
	interval time.Duration
	speed    float64
	stopped  atomic.Bool
	paused   atomic.Bool
	start    time.Time
	lastSent time.Time
	sleep    func(time.Duration)
}

// NewPresenter sends at most fps frames per second. speed <= 0 disables
// real-time pacing.
func NewPresenter(out Sender, fps int, speed float64) *Presenter {
	if fps <= 0 {
		fps = 60
	}
	return &Presenter{
		out:      out,
		interval: time.Second / time.Duration(fps),
		speed:    speed,
		sleep:    time.Sleep,
	}
}

func (p *Presenter) Running() bool { return !p.stopped.Load() }

func (p *Presenter) Stop()        { p.stopped.Store(true) }
func (p *Presenter) Paused() bool { return p.paused.Load() }

func (p *Presenter) TogglePause() {
	for {
		old := p.paused.Load()
		if p.paused.CompareAndSwap(old, !old) {
			return
		}
	}
}

// Present runs on the loop goroutine. While paused it blocks, which
// suspends the loop without losing its state.
func (p *Presenter) Present(f sim.Frame) {
	now := time.Now()
	if p.start.IsZero() {
		p.start = now
	}

	for p.paused.Load() && !p.stopped.Load() {
		p.sleep(p.interval)
		p.start = p.start.Add(p.interval)
	}

	if p.speed > 0 {
		due := p.start.Add(time.Duration(f.Time / p.speed * float64(time.Second)))
		if wait := time.Until(due); wait > 0 {
			p.sleep(wait)
		}
	}

	if now.Sub(p.lastSent) < p.interval {
		return
	}
	p.lastSent = now
	p.out.Send(FrameMsg(f))
}
