package dynamo

import (
	"context"
	"fmt"
	"math"
)

// State holds the generalized coordinates of the double pendulum. Angles are
// measured from the downward vertical and are never wrapped.
type State struct {
	Theta1    float64
	Theta1Dot float64
	Theta2    float64
	Theta2Dot float64
}

// Hanging returns the downward rest state (both links at π, at rest).
func Hanging() State {
	return State{Theta1: math.Pi, Theta2: math.Pi}
}

func (s State) Add(other State) State {
	return State{
		Theta1:    s.Theta1 + other.Theta1,
		Theta1Dot: s.Theta1Dot + other.Theta1Dot,
		Theta2:    s.Theta2 + other.Theta2,
		Theta2Dot: s.Theta2Dot + other.Theta2Dot,
	}
}

func (s State) Scale(factor float64) State {
	return State{
		Theta1:    s.Theta1 * factor,
		Theta1Dot: s.Theta1Dot * factor,
		Theta2:    s.Theta2 * factor,
		Theta2Dot: s.Theta2Dot * factor,
	}
}

func (s State) Sub(other State) State {
	return s.Add(other.Scale(-1))
}

func (s State) IsValid() bool {
	for _, v := range s.Slice() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s.Slice() {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Slice returns the state in storage order: theta1, theta1_dot, theta2, theta2_dot.
func (s State) Slice() []float64 {
	return []float64{s.Theta1, s.Theta1Dot, s.Theta2, s.Theta2Dot}
}

// StateFromSlice is the inverse of [State.Slice]. Missing entries are zero.
func StateFromSlice(v []float64) State {
	var s State
	fields := []*float64{&s.Theta1, &s.Theta1Dot, &s.Theta2, &s.Theta2Dot}
	for i := range fields {
		if i < len(v) {
			*fields[i] = v[i]
		}
	}
	return s
}

func (s State) String() string {
	return fmt.Sprintf("θ1=%.4f ω1=%.4f θ2=%.4f ω2=%.4f", s.Theta1, s.Theta1Dot, s.Theta2, s.Theta2Dot)
}

// Point is a Cartesian position with the pivot at the origin. Renderers draw
// positive Y downward, so the (π, π) rest state hangs below the pivot.
type Point struct {
	X, Y float64
}

// Decision is the outcome of one control tick.
type Decision struct {
	Torque      float64 // torque chosen by the controller
	Applied     float64 // torque after actuator saturation
	Cost        float64 // predicted cost of holding Torque over the horizon
	Evaluations int     // rollouts performed to reach the decision
}

// System is an ODE whose only input is the torque at the lower joint.
type System interface {
	Derive(x State, torque float64) State
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, torque float64, dt float64) State
}

type Controller interface {
	Compute(ctx context.Context, x State) (Decision, error)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
