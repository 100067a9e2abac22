package control

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// Manual applies a torque set from another goroutine, e.g. arrow keys in the
// live view.
type Manual struct {
	bits  atomic.Uint64
	limit float64
}

// NewManual returns a manual controller whose reported Applied torque is
// saturated at limit (<= 0 disables saturation).
func NewManual(limit float64) *Manual {
	return &Manual{limit: limit}
}

func (c *Manual) SetTorque(torque float64) {
	c.bits.Store(math.Float64bits(torque))
}

func (c *Manual) Torque() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Nudge adds delta to the held torque and returns the new value.
func (c *Manual) Nudge(delta float64) float64 {
	for {
		old := c.bits.Load()
		next := math.Float64frombits(old) + delta
		if c.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

func (c *Manual) Compute(ctx context.Context, x dynamo.State) (dynamo.Decision, error) {
	if err := ctx.Err(); err != nil {
		return dynamo.Decision{}, err
	}
	u := c.Torque()
	return dynamo.Decision{Torque: u, Applied: saturate(u, c.limit)}, nil
}
