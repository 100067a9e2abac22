package analysis

import (
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// WrapAngle maps an angle into [-π, π].
func WrapAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

// Settling describes how a run approached a target state.
type Settling struct {
	Settled bool
	// Index and Time of the first sample after which the run never left
	// the band. Index is -1 when the run did not settle.
	Index int
	Time  float64
	// MaxDeviation is the largest wrapped angle error over the whole run.
	MaxDeviation float64
}

// Settle checks states against target. A sample is inside the band when both
// wrapped angle errors are within angleTol and both rates within rateTol.
func Settle(times []float64, states []dynamo.State, target dynamo.State, angleTol, rateTol float64) Settling {
	n := min(len(times), len(states))
	res := Settling{Index: -1, Time: math.NaN()}
	if n == 0 {
		return res
	}

	first := n
	for i := n - 1; i >= 0; i-- {
		s := states[i]
		e1 := math.Abs(WrapAngle(s.Theta1 - target.Theta1))
		e2 := math.Abs(WrapAngle(s.Theta2 - target.Theta2))
		res.MaxDeviation = math.Max(res.MaxDeviation, math.Max(e1, e2))

		inside := e1 <= angleTol && e2 <= angleTol &&
			math.Abs(s.Theta1Dot-target.Theta1Dot) <= rateTol &&
			math.Abs(s.Theta2Dot-target.Theta2Dot) <= rateTol
		if inside && first == i+1 {
			first = i
		}
	}

	if first < n {
		res.Settled = true
		res.Index = first
		res.Time = times[first]
	}
	return res
}
