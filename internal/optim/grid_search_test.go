package optim

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(cost func(float64) float64) (func(float64) float64, *atomic.Int64) {
	var n atomic.Int64
	return func(u float64) float64 {
		n.Add(1)
		return cost(u)
	}, &n
}

func TestGridSearchCoarseGrid(t *testing.T) {
	var seen [201]atomic.Bool
	g := NewGridSearch()

	_, err := g.Search(context.Background(), 100, func(u float64) float64 {
		i := int(math.Round(u)) + 100
		if u == math.Round(u) && i >= 0 && i <= 200 {
			seen[i].Store(true)
		}
		return 1
	})
	require.NoError(t, err)

	for i := range seen {
		assert.True(t, seen[i].Load(), "candidate %d never evaluated", i-100)
	}
}

func TestGridSearchRefinesAroundCoarseBest(t *testing.T) {
	cost, n := counting(func(u float64) float64 { return (u - 37.25) * (u - 37.25) })

	res, err := NewGridSearch().Search(context.Background(), 100, cost)
	require.NoError(t, err)

	assert.InDelta(t, 37.2, res.Best, 1e-9)
	assert.Equal(t, 201, res.Coarse)
	assert.Equal(t, 4, res.Refined)
	assert.Equal(t, int64(res.Evaluations), n.Load())
}

func TestGridSearchFlatCostKeepsZero(t *testing.T) {
	cost, n := counting(func(float64) float64 { return 42 })

	res, err := NewGridSearch().Search(context.Background(), 100, cost)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Best)
	assert.Equal(t, 42.0, res.Cost)
	assert.Equal(t, 42.0, res.Baseline)
	assert.Equal(t, 205, res.Evaluations)
	assert.Equal(t, int64(205), n.Load(), "zero must only be evaluated once")
}

func TestGridSearchEarliestTieWins(t *testing.T) {
	res, err := NewGridSearch().Search(context.Background(), 100, func(u float64) float64 {
		if math.Abs(u) >= 50 {
			return 0
		}
		return 1
	})
	require.NoError(t, err)

	assert.Equal(t, -100.0, res.Best)
}

func TestGridSearchAtBoundTerminates(t *testing.T) {
	res, err := NewGridSearch().Search(context.Background(), 100, func(u float64) float64 { return -u })
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.Best)
	assert.Equal(t, 2, res.Refined, "clamped duplicates of the bound must be skipped")
	assert.LessOrEqual(t, res.Best, 100.0)
}

func TestGridSearchNeverWorseThanBaseline(t *testing.T) {
	costs := []func(float64) float64{
		func(u float64) float64 { return math.Sin(7*u) + 0.01*u },
		func(u float64) float64 { return math.Abs(u) },
		func(u float64) float64 { return math.Cos(u / 3) },
		func(u float64) float64 {
			if u == 0 {
				return -1
			}
			return math.NaN()
		},
	}

	for i, cost := range costs {
		res, err := NewGridSearch().Search(context.Background(), 100, cost)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Cost, res.Baseline, "cost %d", i)
		assert.GreaterOrEqual(t, res.Best, -100.0)
		assert.LessOrEqual(t, res.Best, 100.0)
		assert.LessOrEqual(t, res.Refined, 5)
	}
}

func TestGridSearchIndependentOfWorkers(t *testing.T) {
	cost := func(u float64) float64 { return math.Sin(3*u) * math.Cos(u/7) }

	seq := NewGridSearch()
	seq.Workers = 1
	par := NewGridSearch()
	par.Workers = 16

	a, err := seq.Search(context.Background(), 100, cost)
	require.NoError(t, err)
	b, err := par.Search(context.Background(), 100, cost)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGridSearchZeroLimit(t *testing.T) {
	cost, n := counting(func(u float64) float64 { return u + 3 })

	res, err := NewGridSearch().Search(context.Background(), 0, cost)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Best)
	assert.Equal(t, 3.0, res.Cost)
	assert.Equal(t, int64(1), n.Load())
}

func TestGridSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGridSearch().Search(ctx, 100, func(float64) float64 { return 0 })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGridSearchCancelledMidSearch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64

	g := NewGridSearch()
	g.Workers = 1
	_, err := g.Search(ctx, 100, func(float64) float64 {
		if calls.Add(1) == 10 {
			cancel()
		}
		return 0
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls.Load(), int64(201))
}
