package control

import (
	"context"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// None never applies torque. Used for passive runs.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Compute(ctx context.Context, x dynamo.State) (dynamo.Decision, error) {
	return dynamo.Decision{}, ctx.Err()
}
