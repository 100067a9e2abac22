package analysis

import (
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/physics"
)

// LyapunovExponent estimates the largest Lyapunov exponent of the unforced
// pendulum from x0. A twin trajectory starts perturbation away in Theta1 and
// is pulled back to that distance after every step; the exponent is the mean
// log growth per second. A positive value indicates chaos.
func LyapunovExponent(
	p physics.Params,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt, duration float64,
	perturbation float64,
) float64 {
	if dt <= 0 || duration <= 0 || perturbation <= 0 {
		return 0
	}

	ref := physics.NewModel(p).WithIntegrator(integ)
	twin := physics.NewModel(p).WithIntegrator(integ)
	ref.SetState(x0)
	x0.Theta1 += perturbation
	twin.SetState(x0)

	sumLog := 0.0
	steps := 0
	for t := 0.0; t < duration; t += dt {
		ref.Update(dt, 0)
		twin.Update(dt, 0)

		delta := twin.State().Sub(ref.State())
		sep := delta.Norm()
		if !ref.State().IsValid() || !twin.State().IsValid() || math.IsNaN(sep) {
			break
		}
		steps++
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / perturbation)
		twin.SetState(ref.State().Add(delta.Scale(perturbation / sep)))
	}

	if steps == 0 {
		return 0
	}
	return sumLog / (float64(steps) * dt)
}
