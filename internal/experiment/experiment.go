package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/pendubalance/internal/config"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/physics"
	"github.com/san-kum/pendubalance/internal/sim"
)

// Experiment is one configured run: a model at its initial state, a
// controller and a loop with the default metrics attached.
type Experiment struct {
	cfg  *config.Config
	loop *sim.Loop
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) Setup(reg *Registry, logger *zap.Logger) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	integ, err := reg.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	ctrl, err := reg.GetController(e.cfg.Controller, e.cfg)
	if err != nil {
		return err
	}

	model := physics.NewModel(e.cfg.Physics).
		WithIntegrator(integ).
		WithActuatorLimit(e.cfg.ActuatorLimit)
	model.SetState(e.cfg.InitState.State())

	e.loop = sim.NewLoop(model, ctrl)
	e.loop.SetLogger(logger.With(
		zap.String("integrator", e.cfg.Integrator),
		zap.String("controller", e.cfg.Controller),
	))
	for _, m := range reg.DefaultMetrics(model) {
		e.loop.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.loop == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.loop.Run(ctx, e.cfg.Loop)
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Loop returns the underlying loop for attaching presenters.
func (e *Experiment) Loop() *sim.Loop { return e.loop }

func (e *Experiment) Controller() dynamo.Controller {
	if e.loop == nil {
		return nil
	}
	return e.loop.Controller()
}

// Build is New followed by Setup with a fresh registry.
func Build(cfg *config.Config, logger *zap.Logger) (*Experiment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := New(cfg)
	if err := e.Setup(NewRegistry(), logger); err != nil {
		return nil, err
	}
	return e, nil
}
