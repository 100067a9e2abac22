package optim

import (
	"context"
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

const (
	DefaultSteps        = 200
	DefaultRefineFactor = 5
	DefaultRefineSpan   = 2
)

// GridSearch minimizes a scalar cost over the symmetric range [-limit, limit]
// with a coarse pass followed by one refinement pass around the coarse
// winner. Candidates inside a pass run concurrently; the winner is picked in
// index order, so the result never depends on Workers.
type GridSearch struct {
	Steps        int // coarse intervals across the range, rounded down to even
	RefineFactor int // coarse step / fine step
	RefineSpan   int // fine candidates on each side of the coarse winner
	Workers      int // <= 0 means GOMAXPROCS
}

func NewGridSearch() *GridSearch {
	return &GridSearch{
		Steps:        DefaultSteps,
		RefineFactor: DefaultRefineFactor,
		RefineSpan:   DefaultRefineSpan,
	}
}

// Result of a search. Baseline is the cost of zero, which is also the
// starting incumbent: Best is only moved away from zero by a strictly lower
// cost, so Cost <= Baseline always holds.
type Result struct {
	Best        float64
	Cost        float64
	Baseline    float64
	Coarse      int
	Refined     int
	Evaluations int
}

// Search evaluates cost on the grid. cost is called from several goroutines
// and must not share mutable state between calls.
func (g *GridSearch) Search(ctx context.Context, limit float64, cost func(float64) float64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if !(limit > 0) || math.IsInf(limit, 0) {
		c := cost(0)
		return Result{Cost: c, Baseline: c, Coarse: 1, Evaluations: 1}, nil
	}

	half := g.Steps / 2
	if half < 1 {
		half = 1
	}

	coarse := make([]float64, 2*half+1)
	for i := range coarse {
		coarse[i] = limit * float64(i-half) / float64(half)
	}

	costs, err := g.evaluate(ctx, coarse, cost)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Best:     0,
		Cost:     costs[half],
		Baseline: costs[half],
		Coarse:   len(coarse),
	}
	for i, c := range costs {
		if c < res.Cost {
			res.Best = coarse[i]
			res.Cost = c
		}
	}

	fine := g.refineCandidates(res.Best, limit/float64(half), limit)
	if len(fine) > 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		fineCosts, err := g.evaluate(ctx, fine, cost)
		if err != nil {
			return Result{}, err
		}
		for i, c := range fineCosts {
			if c < res.Cost {
				res.Best = fine[i]
				res.Cost = c
			}
		}
	}

	res.Refined = len(fine)
	res.Evaluations = res.Coarse + res.Refined
	return res, nil
}

// refineCandidates lists the fine grid around a fixed center, clamped to the
// range, without the center itself and without duplicates produced by the
// clamp.
func (g *GridSearch) refineCandidates(center, coarseStep, limit float64) []float64 {
	factor := g.RefineFactor
	if factor < 1 {
		factor = 1
	}
	span := g.RefineSpan
	if span < 0 {
		span = 0
	}
	step := coarseStep / float64(factor)

	out := make([]float64, 0, 2*span)
	for k := -span; k <= span; k++ {
		c := math.Max(-limit, math.Min(limit, center+float64(k)*step))
		if c == center || contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (g *GridSearch) evaluate(ctx context.Context, candidates []float64, cost func(float64) float64) ([]float64, error) {
	costs := make([]float64, len(candidates))
	dynamo.ParallelFor(len(candidates), g.Workers, 8, func(start, end int) {
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				return
			}
			costs[i] = cost(candidates[i])
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return costs, nil
}

func contains(xs []float64, v float64) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
