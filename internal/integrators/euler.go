package integrators

import "github.com/san-kum/pendubalance/internal/dynamo"

// Euler is kept for comparison runs; it is not energy-stable for the
// pendulum at the default step size.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, torque float64, dt float64) dynamo.State {
	return x.Add(dyn.Derive(x, torque).Scale(dt))
}
