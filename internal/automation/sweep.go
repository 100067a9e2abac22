package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/pendubalance/internal/config"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/experiment"
	"github.com/san-kum/pendubalance/internal/physics"
	"github.com/san-kum/pendubalance/internal/sim"
)

// Sweep varies one named configuration value, e.g. "m2" or "q_angle",
// linearly from Min to Max.
type Sweep struct {
	Param string
	Min   float64
	Max   float64
	Steps int
}

// Values lists the swept values. Fewer than two steps yields Min alone.
func (s Sweep) Values() []float64 {
	if s.Steps < 2 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.Steps-1)
	vals := make([]float64, s.Steps)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	return vals
}

type SweepResult struct {
	Value     float64
	Final     dynamo.State
	MinEnergy float64
	MaxEnergy float64
	Upright   float64
	Err       error
}

// RunSweep runs one simulation per swept value concurrently. A value that
// produces an invalid configuration aborts the sweep before anything runs.
func RunSweep(ctx context.Context, base *config.Config, sw Sweep, logger *zap.Logger) ([]SweepResult, error) {
	vals := sw.Values()
	cfgs := make([]*config.Config, len(vals))
	for i, v := range vals {
		cfg := base.Clone()
		if err := cfg.Set(sw.Param, v); err != nil {
			return nil, err
		}
		cfgs[i] = cfg
	}

	results, errs := runAll(ctx, cfgs, logger)

	out := make([]SweepResult, len(vals))
	for i, res := range results {
		out[i] = SweepResult{Value: vals[i], Err: errs[i]}
		if res == nil || len(res.States) == 0 {
			continue
		}
		dp := physics.NewDoublePendulum(cfgs[i].Physics)
		out[i].Final = res.Final()
		out[i].MinEnergy = dp.Energy(res.States[0])
		out[i].MaxEnergy = out[i].MinEnergy
		for _, s := range res.States {
			e := dp.Energy(s)
			out[i].MinEnergy = min(out[i].MinEnergy, e)
			out[i].MaxEnergy = max(out[i].MaxEnergy, e)
		}
		out[i].Upright = res.Metrics["upright"]
	}
	return out, ctx.Err()
}

// MonteCarlo perturbs every coordinate of the initial state by uniform noise
// in [-Perturbation, Perturbation]. A zero Seed draws one from the clock.
type MonteCarlo struct {
	Trials       int
	Perturbation float64
	Seed         int64
}

type TrialResult struct {
	Trial   int
	Init    dynamo.State
	Final   dynamo.State
	Stable  bool
	Upright float64
}

// RunMonteCarlo runs the trials concurrently. Trials that diverge are
// reported unstable; any other failure is returned.
func RunMonteCarlo(ctx context.Context, base *config.Config, mc MonteCarlo, logger *zap.Logger) ([]TrialResult, error) {
	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	jitter := func() float64 { return (rng.Float64() - 0.5) * 2 * mc.Perturbation }

	cfgs := make([]*config.Config, mc.Trials)
	for i := range cfgs {
		cfg := base.Clone()
		cfg.InitState.Theta1 += jitter()
		cfg.InitState.Theta1Dot += jitter()
		cfg.InitState.Theta2 += jitter()
		cfg.InitState.Theta2Dot += jitter()
		cfgs[i] = cfg
	}

	results, errs := runAll(ctx, cfgs, logger)

	out := make([]TrialResult, len(cfgs))
	for i, res := range results {
		err := errs[i]
		if err != nil && !errors.Is(err, dynamo.ErrUnstable) {
			return out, fmt.Errorf("trial %d: %w", i, err)
		}
		out[i] = TrialResult{Trial: i, Init: cfgs[i].InitState.State(), Stable: err == nil}
		if res != nil {
			out[i].Final = res.Final()
			out[i].Stable = out[i].Stable && out[i].Final.IsValid()
			out[i].Upright = res.Metrics["upright"]
		}
	}
	return out, nil
}

func MonteCarloStats(results []TrialResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

func runAll(ctx context.Context, cfgs []*config.Config, logger *zap.Logger) ([]*sim.Result, []error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ens := sim.NewEnsemble(len(cfgs), func(idx int) (*sim.Loop, sim.Config, error) {
		exp, err := experiment.Build(cfgs[idx], logger.With(zap.Int("run", idx)))
		if err != nil {
			return nil, sim.Config{}, err
		}
		return exp.Loop(), cfgs[idx].Loop, nil
	})
	return ens.RunAll(ctx)
}
