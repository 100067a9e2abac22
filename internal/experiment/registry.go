package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pendubalance/internal/config"
	"github.com/san-kum/pendubalance/internal/control"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/integrators"
	"github.com/san-kum/pendubalance/internal/metrics"
	"github.com/san-kum/pendubalance/internal/physics"
	"github.com/san-kum/pendubalance/internal/sim"
)

// UprightTolerance is the angle, in radians, within which the upright
// metric counts a link as balanced.
const UprightTolerance = 0.2

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	controllers map[string]func(cfg *config.Config) dynamo.Controller
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]func(*config.Config) dynamo.Controller),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	r.controllers["none"] = func(cfg *config.Config) dynamo.Controller {
		return control.NewNone()
	}
	r.controllers["mpc"] = func(cfg *config.Config) dynamo.Controller {
		return control.NewMPC(cfg.MPC, cfg.Physics, cfg.ActuatorLimit)
	}
	r.controllers["pid"] = func(cfg *config.Config) dynamo.Controller {
		return control.NewPID(cfg.PID, cfg.Loop.ControlInterval, cfg.ActuatorLimit)
	}
	r.controllers["manual"] = func(cfg *config.Config) dynamo.Controller {
		return control.NewManual(cfg.ActuatorLimit)
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, cfg *config.Config) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) ListIntegrators() []string { return sortedNames(r.integrators) }
func (r *Registry) ListControllers() []string { return sortedNames(r.controllers) }

func (r *Registry) DefaultMetrics(model *physics.Model) []sim.Metric {
	return []sim.Metric{
		metrics.NewEnergy(model.Dynamics()),
		metrics.NewEnergyDrift(model.Dynamics()),
		metrics.NewControlEffort(),
		metrics.NewPeakTorque(),
		metrics.NewUpright(UprightTolerance),
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
