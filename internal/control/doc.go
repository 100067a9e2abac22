// Package control computes the torque applied at the lower joint of the
// double pendulum.
//
//   - [MPC]: receding-horizon controller that grid-searches one torque held
//     constant over the prediction horizon
//   - [PID]: baseline feedback on the lower-link angle
//   - [None]: passive, always zero torque
//   - [Manual]: torque set from outside, e.g. by the live terminal UI
//
// Every controller implements [dynamo.Controller]. Compute may be called from
// a different goroutine than the one that constructed the controller, but
// calls are never concurrent with each other.
package control
