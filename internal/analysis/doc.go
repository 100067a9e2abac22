// Package analysis inspects recorded pendulum traces.
//
//   - [PowerSpectrum]: one-sided spectrum of an angle trace
//   - [DominantFrequency]: strongest residual oscillation
//   - [Settle]: when a run enters and stays inside a band around a target
//   - [NewPortrait], [PoincareSection]: phase space views rendered as text
//   - [LyapunovExponent]: sensitivity of the unforced pendulum to its start
//
// Everything here works on plain slices so it can be fed from a live
// sim.Result or from a run reloaded out of storage:
//
//	tr, _ := store.LoadTrace(id)
//	theta2, _ := tr.Column("theta2")
//	freq := analysis.DominantFrequency(theta2, cfg.Loop.Dt)
package analysis
