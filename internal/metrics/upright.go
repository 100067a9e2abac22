package metrics

import (
	"math"

	"github.com/san-kum/pendubalance/internal/sim"
)

// Upright is the fraction of frames in which both links are within
// tolerance radians of the upward vertical. Angles are compared through
// their cosine so multiples of 2π count as upright.
type Upright struct {
	name      string
	threshold float64
	upright   int
	samples   int
}

func NewUpright(tolerance float64) *Upright {
	return &Upright{
		name:      "upright",
		threshold: math.Cos(tolerance),
	}
}

func (u *Upright) Name() string {
	return u.name
}

func (u *Upright) Observe(f sim.Frame) {
	u.samples++
	if math.Cos(f.State.Theta1) >= u.threshold && math.Cos(f.State.Theta2) >= u.threshold {
		u.upright++
	}
}

func (u *Upright) Value() float64 {
	if u.samples == 0 {
		return 0
	}
	return float64(u.upright) / float64(u.samples)
}

func (u *Upright) Reset() {
	u.upright = 0
	u.samples = 0
}
