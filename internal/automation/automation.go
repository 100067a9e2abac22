package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendubalance/internal/config"
	"github.com/san-kum/pendubalance/internal/experiment"
	"github.com/san-kum/pendubalance/internal/sim"
	"github.com/san-kum/pendubalance/internal/storage"
)

// Scenario is a scripted batch of runs.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Parallel    bool          `yaml:"parallel"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun starts from a preset and applies overrides on top. Empty
// fields keep the preset's values.
type ScenarioRun struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Integrator string             `yaml:"integrator"`
	Controller string             `yaml:"controller"`
	Duration   float64            `yaml:"duration"`
	Overrides  map[string]float64 `yaml:"overrides"`
}

// Outcome is one finished scenario run.
type Outcome struct {
	Name   string
	Config *config.Config
	Result *sim.Result
	RunID  string
	Err    error
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Runs) == 0 {
		return nil, errors.New("scenario has no runs")
	}
	return &sc, nil
}

// Config resolves the run into a validated configuration.
func (r ScenarioRun) Config() (*config.Config, error) {
	preset := r.Preset
	if preset == "" {
		preset = "hanging"
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", preset)
	}

	if r.Integrator != "" {
		cfg.Integrator = r.Integrator
	}
	if r.Controller != "" {
		cfg.Controller = r.Controller
	}
	if err := cfg.Apply(r.Overrides); err != nil {
		return nil, err
	}
	if r.Duration > 0 {
		cfg.Loop.Duration = r.Duration
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r ScenarioRun) label(idx int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("run%d", idx+1)
}

// Runner executes scenarios and, when Store is set, saves every successful
// run.
type Runner struct {
	Store  *storage.Store
	Logger *zap.Logger
}

func (rn *Runner) logger() *zap.Logger {
	if rn.Logger == nil {
		return zap.NewNop()
	}
	return rn.Logger
}

// Run executes every run of sc, concurrently when sc.Parallel is set.
// Outcomes are returned in scenario order. A configuration error aborts
// before anything runs; a failing run is recorded in its Outcome and the
// first such error is returned after the rest complete.
func (rn *Runner) Run(ctx context.Context, sc *Scenario) ([]Outcome, error) {
	log := rn.logger().With(zap.String("scenario", sc.Name))

	outcomes := make([]Outcome, len(sc.Runs))
	for i, run := range sc.Runs {
		cfg, err := run.Config()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", run.label(i), err)
		}
		outcomes[i] = Outcome{Name: run.label(i), Config: cfg}
	}

	if sc.Parallel {
		ens := sim.NewEnsemble(len(outcomes), func(idx int) (*sim.Loop, sim.Config, error) {
			exp, err := experiment.Build(outcomes[idx].Config, log.With(zap.String("run", outcomes[idx].Name)))
			if err != nil {
				return nil, sim.Config{}, err
			}
			return exp.Loop(), outcomes[idx].Config.Loop, nil
		})
		results, errs := ens.RunAll(ctx)
		for i := range outcomes {
			outcomes[i].Result, outcomes[i].Err = results[i], errs[i]
		}
	} else {
		for i := range outcomes {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				continue
			}
			log.Info("running", zap.Int("index", i+1), zap.Int("of", len(outcomes)), zap.String("run", outcomes[i].Name))
			exp, err := experiment.Build(outcomes[i].Config, log.With(zap.String("run", outcomes[i].Name)))
			if err != nil {
				outcomes[i].Err = err
				continue
			}
			outcomes[i].Result, outcomes[i].Err = exp.Run(ctx)
		}
	}

	var firstErr error
	for i := range outcomes {
		o := &outcomes[i]
		if o.Err == nil && o.Result != nil && rn.Store != nil {
			o.RunID, o.Err = rn.Store.Save(o.Name, o.Config, o.Result)
		}
		if o.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", o.Name, o.Err)
		}
	}
	return outcomes, firstErr
}
