// Package viz renders a running control loop in the terminal with Bubble
// Tea.
//
//   - [Model]: the bubbletea model, a braille drawing of the pendulum next to
//     the latest decision and asciigraph histories of torque and cost
//   - [Presenter]: the [sim.Presenter] that forwards frames to the program
//     and carries the pause and quit signals back to the loop
//   - [Canvas]: Braille-based pixel canvas, also used for SVG export
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	T     - Cycle color themes
//	←/→   - Adjust torque (manual controller only)
//	?     - Show help overlay
//	Q     - Quit
package viz
