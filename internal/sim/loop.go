package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/physics"
)

// Loop drives the model at a fixed physics rate and the controller at a
// coarser control rate, holding the last torque between control ticks.
type Loop struct {
	model      *physics.Model
	controller dynamo.Controller
	presenter  Presenter
	metrics    []Metric
	logger     *zap.Logger
}

func NewLoop(model *physics.Model, controller dynamo.Controller) *Loop {
	return &Loop{
		model:      model,
		controller: controller,
		presenter:  Headless{},
		metrics:    make([]Metric, 0),
		logger:     zap.NewNop(),
	}
}

func (l *Loop) AddMetric(m Metric) { l.metrics = append(l.metrics, m) }

func (l *Loop) SetPresenter(p Presenter) {
	if p == nil {
		p = Headless{}
	}
	l.presenter = p
}

func (l *Loop) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l.logger = logger
}

func (l *Loop) Model() *physics.Model         { return l.model }
func (l *Loop) Controller() dynamo.Controller { return l.controller }

// maxPrealloc bounds the slices sized up front from Duration/Dt; longer runs
// grow by appending.
const maxPrealloc = 1 << 16

// Run iterates until simulated time passes cfg.Duration, the presenter stops
// running, or ctx is cancelled. An infinite Duration runs until the presenter
// stops or ctx is cancelled. On cancellation the partial result is returned
// together with ctx.Err().
func (l *Loop) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	capacity := maxPrealloc
	if steps := cfg.Duration / cfg.Dt; steps < maxPrealloc {
		capacity = int(steps) + 2
	}
	res := &Result{
		States:  make([]dynamo.State, 0, capacity),
		Times:   make([]float64, 0, capacity),
		Torques: make([]float64, 0, capacity),
		Applied: make([]float64, 0, capacity),
		Costs:   make([]float64, 0, capacity),
		Metrics: make(map[string]float64),
	}
	for _, m := range l.metrics {
		m.Reset()
	}

	start := time.Now()
	defer func() {
		res.Wall = time.Since(start)
		for _, m := range l.metrics {
			res.Metrics[m.Name()] = m.Value()
		}
	}()

	res.States = append(res.States, l.model.State())
	res.Times = append(res.Times, 0)

	l.logger.Info("control loop started",
		zap.Float64("dt", cfg.Dt),
		zap.Float64("control_interval", cfg.ControlInterval),
		zap.Float64("duration", cfg.Duration),
		zap.Duration("control_budget", cfg.ControlBudget),
		zap.Stringer("state", l.model.State()),
	)

	var held dynamo.Decision
	sinceControl := cfg.ControlInterval
	t := 0.0

	for step := 0; l.presenter.Running() && t <= cfg.Duration+controlTolerance; {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		x := l.model.State()

		tick := false
		if sinceControl >= cfg.ControlInterval-controlTolerance {
			d, ok, err := l.decide(ctx, cfg, x)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				return res, &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: err}
			}
			if ok {
				held = d
				tick = true
				sinceControl = 0
				res.ControlTicks++
			} else {
				res.Overruns++
			}
		}

		l.model.Update(cfg.Dt, held.Torque)
		step++
		t = float64(step) * cfg.Dt
		sinceControl += cfg.Dt

		next := l.model.State()
		if !next.IsValid() {
			l.logger.Warn("state diverged", zap.Int("step", step), zap.Float64("t", t), zap.Float64("torque", held.Torque))
			return res, &dynamo.SimulationError{Step: step, Time: t, State: next, Wrapped: dynamo.ErrUnstable}
		}

		res.States = append(res.States, next)
		res.Times = append(res.Times, t)
		res.Torques = append(res.Torques, held.Torque)
		res.Applied = append(res.Applied, held.Applied)
		// The cost is only reported on the tick that computed it.
		dec := held
		if !tick {
			dec.Cost = 0
		}
		res.Costs = append(res.Costs, dec.Cost)
		res.Steps = step

		frame := Frame{
			Step:        step,
			Time:        t,
			Prev:        x,
			State:       next,
			Upper:       l.model.UpperJoint(),
			Lower:       l.model.LowerJoint(),
			Decision:    dec,
			ControlTick: tick,
		}
		for _, m := range l.metrics {
			m.Observe(frame)
		}
		l.presenter.Present(frame)
	}

	l.logger.Info("control loop finished",
		zap.Int("steps", res.Steps),
		zap.Int("control_ticks", res.ControlTicks),
		zap.Int("overruns", res.Overruns),
		zap.Duration("wall", time.Since(start)),
	)
	return res, nil
}

// decide asks the controller for a new decision under the per-tick budget.
// ok is false when the budget ran out; the caller keeps the held torque.
func (l *Loop) decide(ctx context.Context, cfg Config, x dynamo.State) (dynamo.Decision, bool, error) {
	cctx := ctx
	if cfg.ControlBudget > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, cfg.ControlBudget)
		defer cancel()
	}

	d, err := l.controller.Compute(cctx, x)
	if err != nil {
		if ctx.Err() != nil {
			return dynamo.Decision{}, false, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			l.logger.Warn("control budget exceeded, holding previous torque",
				zap.Duration("budget", cfg.ControlBudget))
			return dynamo.Decision{}, false, nil
		}
		return dynamo.Decision{}, false, fmt.Errorf("controller: %w", err)
	}

	d.Applied = l.model.Saturate(d.Torque)
	l.logger.Debug("control decision",
		zap.Float64("torque", d.Torque),
		zap.Float64("applied", d.Applied),
		zap.Float64("cost", d.Cost),
		zap.Int("evaluations", d.Evaluations),
	)
	return d, true, nil
}
