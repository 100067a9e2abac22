package physics

import (
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/integrators"
)

// DefaultActuatorLimit is the saturation of the lower-joint motor. It is
// independent of the torque range a controller plans over.
const DefaultActuatorLimit = 10.0

// Model is a double pendulum together with its current state. It is the only
// place the simulated state is mutated.
type Model struct {
	dyn           *DoublePendulum
	integrator    dynamo.Integrator
	actuatorLimit float64
	state         dynamo.State
}

// NewModel returns a model hanging at rest, integrated with RK4 and
// saturating torque at DefaultActuatorLimit.
func NewModel(p Params) *Model {
	return &Model{
		dyn:           NewDoublePendulum(p),
		integrator:    integrators.NewRK4(),
		actuatorLimit: DefaultActuatorLimit,
		state:         dynamo.Hanging(),
	}
}

// WithIntegrator swaps the integration scheme. nil keeps the current one.
func (m *Model) WithIntegrator(integ dynamo.Integrator) *Model {
	if integ != nil {
		m.integrator = integ
	}
	return m
}

// WithActuatorLimit sets the symmetric torque saturation. Non-positive
// limits are ignored.
func (m *Model) WithActuatorLimit(limit float64) *Model {
	if limit > 0 {
		m.actuatorLimit = limit
	}
	return m
}

// Update saturates torque at the actuator limit and advances the state by one
// step of size dt.
func (m *Model) Update(dt, torque float64) {
	m.state = m.integrator.Step(m.dyn, m.state, m.Saturate(torque), dt)
}

// Saturate clamps torque to the actuator range.
func (m *Model) Saturate(torque float64) float64 {
	return math.Max(-m.actuatorLimit, math.Min(m.actuatorLimit, torque))
}

func (m *Model) SetState(x dynamo.State) { m.state = x }
func (m *Model) State() dynamo.State     { return m.state }

func (m *Model) Params() Params            { return m.dyn.Params }
func (m *Model) ActuatorLimit() float64    { return m.actuatorLimit }
func (m *Model) Dynamics() *DoublePendulum { return m.dyn }

func (m *Model) UpperJoint() dynamo.Point { return m.dyn.UpperJoint(m.state) }
func (m *Model) LowerJoint() dynamo.Point { return m.dyn.LowerJoint(m.state) }

func (m *Model) UpperJointX() float64 { return m.UpperJoint().X }
func (m *Model) UpperJointY() float64 { return m.UpperJoint().Y }
func (m *Model) LowerJointX() float64 { return m.LowerJoint().X }
func (m *Model) LowerJointY() float64 { return m.LowerJoint().Y }

// Energy is the mechanical energy of the current state.
func (m *Model) Energy() float64 { return m.dyn.Energy(m.state) }
