package sim

import (
	"context"
	"fmt"
	"sync"
)

// Ensemble runs independent loops concurrently. Each run gets its own loop
// from build, so no model or controller is shared between goroutines.
type Ensemble struct {
	build   func(idx int) (*Loop, Config, error)
	numRuns int
}

func NewEnsemble(numRuns int, build func(idx int) (*Loop, Config, error)) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns}
}

// Run returns one result per run in index order. The first error by index is
// returned after all runs finish.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results, errs := e.RunAll(ctx)
	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i, err)
		}
	}
	return results, nil
}

// RunAll is Run with the error of every run kept. A run that failed part
// way still reports its partial result.
func (e *Ensemble) RunAll(ctx context.Context) ([]*Result, []error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			loop, cfg, err := e.build(idx)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = loop.Run(ctx, cfg)
		}(i)
	}

	wg.Wait()
	return results, errs
}
