package integrators

import (
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 covers each fixed step with as many embedded Dormand-Prince substeps
// as Tol requires. The torque is constant over the step, so the result is a
// drop-in reference for RK4 at the same dt. It remembers its last substep
// size, so one value must not be shared between goroutines.
type RK45 struct {
	Tol         float64
	MaxSubsteps int
	safety      float64
	minScale    float64
	maxScale    float64
	hint        float64 // last accepted substep, reused for the next step
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:         1e-9,
		MaxSubsteps: 10000,
		safety:      0.9,
		minScale:    0.2,
		maxScale:    10.0,
	}
}

// Step advances x by exactly dt. Once MaxSubsteps is reached the remainder
// is taken in one substep regardless of its error.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, torque, dt float64) dynamo.State {
	h := dt
	if r.hint > 0 && r.hint < dt {
		h = r.hint
	}

	remaining := dt
	for n := 0; remaining > dt*1e-12; n++ {
		last := n >= r.MaxSubsteps-1
		if h >= remaining || last {
			h = remaining
		}

		next, errRatio := r.attempt(dyn, x, torque, h)
		if errRatio <= 1 || last {
			x = next
			remaining -= h
			r.hint = h
		}
		h *= r.scale(errRatio)
	}
	return x
}

// StepAdaptive takes a single Dormand-Prince step of size dt and returns the
// step size the error estimate suggests next.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, torque, dt float64) (dynamo.State, float64) {
	next, errRatio := r.attempt(dyn, x, torque, dt)
	return next, dt * r.scale(errRatio)
}

func (r *RK45) attempt(dyn dynamo.System, x dynamo.State, torque, h float64) (dynamo.State, float64) {
	k1 := dyn.Derive(x, torque)
	k2 := dyn.Derive(x.Add(k1.Scale(h*b21)), torque)
	k3 := dyn.Derive(x.Add(k1.Scale(h*b31)).Add(k2.Scale(h*b32)), torque)
	k4 := dyn.Derive(x.Add(k1.Scale(h*b41)).Add(k2.Scale(h*b42)).Add(k3.Scale(h*b43)), torque)
	k5 := dyn.Derive(x.Add(k1.Scale(h*b51)).Add(k2.Scale(h*b52)).Add(k3.Scale(h*b53)).Add(k4.Scale(h*b54)), torque)
	k6 := dyn.Derive(x.Add(k1.Scale(h*b61)).Add(k2.Scale(h*b62)).Add(k3.Scale(h*b63)).Add(k4.Scale(h*b64)).Add(k5.Scale(h*b65)), torque)

	next := x.Add(k1.Scale(h * c1)).Add(k3.Scale(h * c3)).Add(k4.Scale(h * c4)).Add(k5.Scale(h * c5)).Add(k6.Scale(h * c6))
	k7 := dyn.Derive(next, torque)

	errEst := k1.Scale(h * dc1).Add(k3.Scale(h * dc3)).Add(k4.Scale(h * dc4)).Add(k5.Scale(h * dc5)).Add(k6.Scale(h * dc6)).Add(k7.Scale(h * dc7))

	xs, ks, es := x.Slice(), k1.Slice(), errEst.Slice()
	errMax := 0.0
	for i := range es {
		scale := math.Abs(xs[i]) + math.Abs(h*ks[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(es[i])/scale)
	}
	return next, errMax / r.Tol
}

func (r *RK45) scale(errRatio float64) float64 {
	switch {
	case math.IsNaN(errRatio):
		return r.minScale
	case errRatio > 1:
		return math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		return math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		return r.maxScale
	}
}
