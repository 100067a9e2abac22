package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// Params are the physical constants of the two-link pendulum.
type Params struct {
	L1 float64 `yaml:"l1" json:"l1"` // upper link length (m)
	L2 float64 `yaml:"l2" json:"l2"` // lower link length (m)
	M1 float64 `yaml:"m1" json:"m1"` // upper mass (kg)
	M2 float64 `yaml:"m2" json:"m2"` // lower mass (kg)
	G  float64 `yaml:"g" json:"g"`   // gravitational acceleration (m/s^2)
	B1 float64 `yaml:"b1" json:"b1"` // upper joint damping
	B2 float64 `yaml:"b2" json:"b2"` // lower joint damping
}

func DefaultParams() Params {
	return Params{
		L1: 0.5,
		L2: 0.5,
		M1: 1.0,
		M2: 1.0,
		G:  9.81,
		B1: 0.1,
		B2: 0.1,
	}
}

// DoublePendulum is the equation of motion of a two-link pendulum actuated
// only at the lower joint. It carries no state of its own.
type DoublePendulum struct {
	Params
}

func NewDoublePendulum(p Params) *DoublePendulum {
	return &DoublePendulum{Params: p}
}

// Accelerations returns the angular accelerations of both links for state x
// under the given lower-joint torque. The denominator m1 + m2*sin²(θ1-θ2) is
// positive unless M1 is zero.
func (d *DoublePendulum) Accelerations(x dynamo.State, torque float64) (a1, a2 float64) {
	m1, m2, l1, l2, g := d.M1, d.M2, d.L1, d.L2, d.G
	w1, w2 := x.Theta1Dot, x.Theta2Dot

	sin1, sin2 := math.Sin(x.Theta1), math.Sin(x.Theta2)
	sin12, cos12 := math.Sincos(x.Theta1 - x.Theta2)

	denom := m1 + m2*(1.0-cos12*cos12)

	a1 = (m2*l2*w2*w2*sin12*cos12 +
		m2*g*sin2*cos12 -
		m2*l1*w1*w1*sin12 -
		(m1+m2)*g*sin1 -
		d.B1*w1) / (l1 * denom)

	a2 = (-m2*l2*w2*w2*sin12 -
		(m1+m2)*g*sin1*cos12 +
		(m1+m2)*l1*w1*w1*sin12 +
		(m1+m2)*g*sin2 +
		torque -
		d.B2*w2) / (l2 * denom)

	return a1, a2
}

func (d *DoublePendulum) Derive(x dynamo.State, torque float64) dynamo.State {
	a1, a2 := d.Accelerations(x, torque)
	return dynamo.State{
		Theta1:    x.Theta1Dot,
		Theta1Dot: a1,
		Theta2:    x.Theta2Dot,
		Theta2Dot: a2,
	}
}

// UpperJoint is the position of the joint between the two links.
func (d *DoublePendulum) UpperJoint(x dynamo.State) dynamo.Point {
	return dynamo.Point{
		X: d.L1 * math.Sin(x.Theta1),
		Y: -d.L1 * math.Cos(x.Theta1),
	}
}

// LowerJoint is the position of the tip of the lower link.
func (d *DoublePendulum) LowerJoint(x dynamo.State) dynamo.Point {
	upper := d.UpperJoint(x)
	return dynamo.Point{
		X: upper.X + d.L2*math.Sin(x.Theta2),
		Y: upper.Y - d.L2*math.Cos(x.Theta2),
	}
}

// Energy is the mechanical energy with point masses at the link ends and the
// pivot as the potential reference.
func (d *DoublePendulum) Energy(x dynamo.State) float64 {
	m1, m2, l1, l2, g := d.M1, d.M2, d.L1, d.L2, d.G
	w1, w2 := x.Theta1Dot, x.Theta2Dot

	v1sq := l1 * l1 * w1 * w1
	v2sq := v1sq + l2*l2*w2*w2 + 2*l1*l2*w1*w2*math.Cos(x.Theta1-x.Theta2)
	ke := 0.5*m1*v1sq + 0.5*m2*v2sq

	upper, lower := d.UpperJoint(x), d.LowerJoint(x)
	pe := m1*g*upper.Y + m2*g*lower.Y

	return ke + pe
}

func (d *DoublePendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"l1": d.L1,
		"l2": d.L2,
		"m1": d.M1,
		"m2": d.M2,
		"g":  d.G,
		"b1": d.B1,
		"b2": d.B2,
	}
}

func (d *DoublePendulum) SetParam(name string, value float64) error {
	switch name {
	case "l1":
		d.L1 = value
	case "l2":
		d.L2 = value
	case "m1":
		d.M1 = value
	case "m2":
		d.M2 = value
	case "g":
		d.G = value
	case "b1":
		d.B1 = value
	case "b2":
		d.B2 = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}

// Validate reports parameters that make the equations of motion degenerate.
func (p Params) Validate() error {
	switch {
	case p.L1 <= 0 || p.L2 <= 0:
		return fmt.Errorf("link lengths must be positive (l1=%g, l2=%g): %w", p.L1, p.L2, dynamo.ErrParameterBounds)
	case p.M1 <= 0 || p.M2 < 0:
		return fmt.Errorf("masses must satisfy m1>0, m2>=0 (m1=%g, m2=%g): %w", p.M1, p.M2, dynamo.ErrParameterBounds)
	case p.B1 < 0 || p.B2 < 0:
		return fmt.Errorf("damping must be non-negative (b1=%g, b2=%g): %w", p.B1, p.B2, dynamo.ErrParameterBounds)
	}
	return nil
}
