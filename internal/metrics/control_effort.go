package metrics

import (
	"math"

	"github.com/san-kum/pendubalance/internal/sim"
)

// ControlEffort is the mean absolute applied torque per physics tick.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(f sim.Frame) {
	c.sum += math.Abs(f.Decision.Applied)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// PeakTorque is the largest requested torque magnitude, before saturation.
type PeakTorque struct {
	peak float64
}

func NewPeakTorque() *PeakTorque { return &PeakTorque{} }

func (p *PeakTorque) Name() string { return "peak_torque" }

func (p *PeakTorque) Observe(f sim.Frame) {
	p.peak = math.Max(p.peak, math.Abs(f.Decision.Torque))
}

func (p *PeakTorque) Value() float64 { return p.peak }
func (p *PeakTorque) Reset()         { p.peak = 0 }
