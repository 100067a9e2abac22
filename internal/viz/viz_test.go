package viz

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pendubalance/internal/control"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/physics"
	"github.com/san-kum/pendubalance/internal/sim"
)

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func hangingFrame(step int) sim.Frame {
	dp := physics.NewDoublePendulum(physics.DefaultParams())
	x := dynamo.Hanging()
	return sim.Frame{
		Step:     step,
		Time:     float64(step) * 0.01,
		State:    x,
		Upper:    dp.UpperJoint(x),
		Lower:    dp.LowerJoint(x),
		Decision: dynamo.Decision{Torque: 20, Applied: 10, Cost: 400, Evaluations: 205},
	}
}

func TestCanvasSetAndLine(t *testing.T) {
	c := NewCanvas(4, 2)
	assert.Equal(t, 8, c.DotsWide())
	assert.Equal(t, 8, c.DotsHigh())

	c.Set(0, 0)
	c.Set(100, 100)
	c.Set(-1, 3)
	assert.True(t, c.IsSet(0, 0))
	assert.Equal(t, rune(0x2801), c.Grid[0][0])

	c.Clear()
	c.DrawLine(0, 0, 7, 7)
	for i := 0; i < 8; i++ {
		assert.True(t, c.IsSet(i, i), "diagonal dot %d", i)
	}
	assert.Len(t, strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n"), 2)
}

func TestDrawPendulumHanging(t *testing.T) {
	c := NewCanvas(width, height)
	p := FitPendulum(c, 1.0)
	f := hangingFrame(0)

	DrawPendulum(c, p, f.Upper, f.Lower, nil)

	px, py := p.Dot(dynamo.Point{})
	lx, ly := p.Dot(f.Lower)
	assert.Equal(t, px, lx, "hanging pendulum is vertical")
	assert.Greater(t, ly, py, "lower joint is drawn below the pivot")
	assert.True(t, c.IsSet(px, py))
	assert.True(t, c.IsSet(lx, ly))
	assert.True(t, c.IsSet(px, (py+ly)/2))
}

func TestModelObservesFrames(t *testing.T) {
	p := NewPresenter(&recorder{}, 60, 0)
	dp := physics.NewDoublePendulum(physics.DefaultParams())
	var m tea.Model = NewModel(p, "mpc", 1.0, dp, nil)

	for i := 1; i <= 3; i++ {
		m, _ = m.Update(FrameMsg(hangingFrame(i)))
	}

	vm := m.(Model)
	assert.Equal(t, 3, vm.frames)
	assert.Equal(t, []float64{10, 10, 10}, vm.torqueHistory)
	assert.Len(t, vm.energyHistory, 3)

	view := vm.View()
	assert.Contains(t, view, "MPC")
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, "20.00 N·m")
	assert.Contains(t, view, "Applied torque")
}

func TestModelCostHistoryFollowsControlTicks(t *testing.T) {
	p := NewPresenter(&recorder{}, 60, 0)
	var m tea.Model = NewModel(p, "mpc", 1.0, nil, nil)

	for i := 0; i < 6; i++ {
		f := hangingFrame(i)
		f.ControlTick = i%3 == 0
		if !f.ControlTick {
			f.Decision.Cost = 0
		}
		m, _ = m.Update(FrameMsg(f))
	}

	vm := m.(Model)
	assert.Equal(t, []float64{400, 400}, vm.costHistory)
	assert.Len(t, vm.torqueHistory, 6)
}

func TestModelQuitStopsPresenter(t *testing.T) {
	p := NewPresenter(&recorder{}, 60, 0)
	m := NewModel(p, "mpc", 1.0, nil, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.False(t, p.Running())
}

func TestModelPauseToggle(t *testing.T) {
	p := NewPresenter(&recorder{}, 60, 0)
	m := NewModel(p, "mpc", 1.0, nil, nil)

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	assert.True(t, p.Paused())
	assert.Contains(t, m.View(), "PAUSED")

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	assert.False(t, p.Paused())
}

func TestModelManualKeys(t *testing.T) {
	manual := control.NewManual(10)
	m := NewModel(NewPresenter(&recorder{}, 60, 0), "manual", 1.0, nil, manual)

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1.0, manual.Torque())

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("0")})
	assert.Equal(t, 0.0, manual.Torque())
}

func TestModelDone(t *testing.T) {
	m := NewModel(NewPresenter(&recorder{}, 60, 0), "mpc", 1.0, nil, nil)
	next, _ := m.Update(DoneMsg{Err: dynamo.ErrUnstable})
	assert.Contains(t, next.View(), "ERROR")
}

func TestPresenterThrottles(t *testing.T) {
	rec := &recorder{}
	p := NewPresenter(rec, 1, 0)

	for i := 1; i <= 50; i++ {
		p.Present(hangingFrame(i))
	}
	assert.Equal(t, 1, rec.len())
}

func TestPresenterPaces(t *testing.T) {
	var slept time.Duration
	p := NewPresenter(&recorder{}, 1000, 1)
	p.sleep = func(d time.Duration) { slept += d }

	p.Present(hangingFrame(0))
	p.Present(hangingFrame(50))

	assert.InDelta(t, float64(500*time.Millisecond), float64(slept), float64(50*time.Millisecond))
}

func TestPresenterStopsWhilePaused(t *testing.T) {
	p := NewPresenter(&recorder{}, 1000, 0)
	p.TogglePause()

	done := make(chan struct{})
	go func() {
		p.Present(hangingFrame(1))
		close(done)
	}()

	p.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Present kept blocking after Stop")
	}
	assert.False(t, p.Running())
}

func TestThemes(t *testing.T) {
	assert.Equal(t, []string{"cyberpunk", "retro", "ocean"}, ThemeNames())
	assert.Equal(t, "retro", GetTheme("retro").Name)
	assert.Equal(t, "cyberpunk", GetTheme("nope").Name)
}

func TestModelWithTheme(t *testing.T) {
	m := NewModel(NewPresenter(&recorder{}, 60, 0), "mpc", 1.0, nil, nil)
	assert.Equal(t, 2, m.WithTheme("ocean").theme)
	assert.Equal(t, 0, m.WithTheme("sepia").theme)
}
