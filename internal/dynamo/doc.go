// Package dynamo provides the core simulation primitives shared by the
// pendulum model, the predictive controller and the control loop.
//
// The package defines the fundamental types and interfaces:
//
//   - [State]: joint angles and angular velocities of the two links
//   - [System]: interface for ODE systems (dX/dt = f(X, torque))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Controller]: receding-horizon controller interface
//   - [Decision]: result of one control tick
//
// # Example
//
//	dyn := physics.NewDoublePendulum(physics.DefaultParams())
//	integ := integrators.NewRK4()
//	next := integ.Step(dyn, dynamo.Hanging(), 0, 0.01)
//
// # Thread Safety
//
// [State] and [Decision] are plain values and may be copied freely between
// goroutines. [ParallelFor] is the only helper that spawns goroutines.
package dynamo
