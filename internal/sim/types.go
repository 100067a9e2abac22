package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// controlTolerance absorbs floating-point drift when the accumulated time
// since the last decision is compared with the control interval, and when
// simulated time is compared with the duration.
const controlTolerance = 1e-9

// Frame is the read-only snapshot handed to presenters after every physics
// tick.
type Frame struct {
	Step        int
	Time        float64
	Prev        dynamo.State // state read at the start of the tick
	State       dynamo.State // state after the tick
	Upper       dynamo.Point
	Lower       dynamo.Point
	Decision    dynamo.Decision // held decision; Cost is zero unless ControlTick
	ControlTick bool            // Decision was computed on this tick
}

// Presenter consumes frames and decides whether the loop keeps running.
// Present is called on the loop goroutine; implementations that hand frames
// to another goroutine must copy what they need.
type Presenter interface {
	Running() bool
	Present(f Frame)
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Config struct {
	Dt              float64       `yaml:"dt" json:"dt"`
	ControlInterval float64       `yaml:"control_interval" json:"control_interval"`
	Duration        float64       `yaml:"duration" json:"duration"`
	ControlBudget   time.Duration `yaml:"control_budget" json:"control_budget"` // 0 disables the per-tick deadline
}

func DefaultConfig() Config {
	return Config{
		Dt:              0.01,
		ControlInterval: 0.01,
		Duration:        60,
	}
}

func (c Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %f: %w", c.Dt, dynamo.ErrParameterBounds)
	}
	if c.ControlInterval < c.Dt-controlTolerance {
		return fmt.Errorf("control interval %f is shorter than dt %f: %w", c.ControlInterval, c.Dt, dynamo.ErrParameterBounds)
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("duration must be positive or +Inf, got %f: %w", c.Duration, dynamo.ErrParameterBounds)
	}
	if c.ControlBudget < 0 {
		return fmt.Errorf("control budget must not be negative, got %s: %w", c.ControlBudget, dynamo.ErrParameterBounds)
	}
	return nil
}

// Result records one run. States and Times include the initial state; the
// per-step slices (Torques, Applied, Costs) are one shorter.
type Result struct {
	States       []dynamo.State
	Times        []float64
	Torques      []float64
	Applied      []float64
	Costs        []float64
	Steps        int
	ControlTicks int
	Overruns     int
	Metrics      map[string]float64
	Wall         time.Duration
}

// Final is the last recorded state.
func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return dynamo.State{}
	}
	return r.States[len(r.States)-1]
}

// SimTime is the simulated time reached.
func (r *Result) SimTime() float64 {
	if len(r.Times) == 0 {
		return 0
	}
	return r.Times[len(r.Times)-1]
}

// Headless always runs and discards frames.
type Headless struct{}

func (Headless) Running() bool   { return true }
func (Headless) Present(f Frame) {}

// FuncPresenter adapts a callback. The loop stops when fn returns false.
type FuncPresenter struct {
	fn      func(Frame) bool
	stopped bool
}

func NewFuncPresenter(fn func(Frame) bool) *FuncPresenter {
	return &FuncPresenter{fn: fn}
}

func (p *FuncPresenter) Running() bool { return !p.stopped }

func (p *FuncPresenter) Present(f Frame) {
	if !p.fn(f) {
		p.stopped = true
	}
}

// Multi fans frames out to several presenters and runs while all of them do.
type Multi []Presenter

func (m Multi) Running() bool {
	for _, p := range m {
		if !p.Running() {
			return false
		}
	}
	return true
}

func (m Multi) Present(f Frame) {
	for _, p := range m {
		p.Present(f)
	}
}
