package integrators

import "github.com/san-kum/pendubalance/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta scheme. Every stage derivative
// is evaluated on an explicit intermediate state, so the system is never
// asked to hold a temporary state of its own.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, torque, dt float64) dynamo.State {
	k1 := dyn.Derive(x, torque)
	k2 := dyn.Derive(x.Add(k1.Scale(dt*0.5)), torque)
	k3 := dyn.Derive(x.Add(k2.Scale(dt*0.5)), torque)
	k4 := dyn.Derive(x.Add(k3.Scale(dt)), torque)

	dt6 := dt / 6.0
	return dynamo.State{
		Theta1:    x.Theta1 + dt6*(k1.Theta1+2*k2.Theta1+2*k3.Theta1+k4.Theta1),
		Theta1Dot: x.Theta1Dot + dt6*(k1.Theta1Dot+2*k2.Theta1Dot+2*k3.Theta1Dot+k4.Theta1Dot),
		Theta2:    x.Theta2 + dt6*(k1.Theta2+2*k2.Theta2+2*k3.Theta2+k4.Theta2),
		Theta2Dot: x.Theta2Dot + dt6*(k1.Theta2Dot+2*k2.Theta2Dot+2*k3.Theta2Dot+k4.Theta2Dot),
	}
}
