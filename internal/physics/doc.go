// Package physics models a planar double pendulum driven by a motor at the
// lower joint.
//
//   - [DoublePendulum]: the equations of motion, forward kinematics and
//     energy; implements [dynamo.System], [dynamo.Hamiltonian] and
//     [dynamo.Configurable]
//   - [Model]: a pendulum plus its current state, advanced one saturated
//     step at a time
//
// Angles are measured from the downward vertical, so the pendulum hangs at
// rest at (π, π). Positions are in the pivot frame with Y pointing down.
//
//	m := physics.NewModel(physics.DefaultParams()).WithActuatorLimit(10)
//	m.Update(0.01, 2.5)
//	tip := m.LowerJoint()
package physics
