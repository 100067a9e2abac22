package control

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/optim"
	"github.com/san-kum/pendubalance/internal/physics"
)

type MPCConfig struct {
	Horizon     int     `yaml:"horizon" json:"horizon"`
	TimeStep    float64 `yaml:"time_step" json:"time_step"`
	QAngle      float64 `yaml:"q_angle" json:"q_angle"`
	QAngularVel float64 `yaml:"q_angular_vel" json:"q_angular_vel"`
	R           float64 `yaml:"r" json:"r"`
	MaxTorque   float64 `yaml:"max_torque" json:"max_torque"`
	Workers     int     `yaml:"workers" json:"workers"`
}

func DefaultMPCConfig() MPCConfig {
	return MPCConfig{
		Horizon:     200,
		TimeStep:    0.01,
		QAngle:      100,
		QAngularVel: 10,
		R:           0.1,
		MaxTorque:   100,
	}
}

func (c MPCConfig) Validate() error {
	switch {
	case c.Horizon < 1:
		return fmt.Errorf("horizon %d < 1: %w", c.Horizon, dynamo.ErrParameterBounds)
	case !(c.TimeStep > 0):
		return fmt.Errorf("time_step %v must be positive: %w", c.TimeStep, dynamo.ErrParameterBounds)
	case c.QAngle < 0 || c.QAngularVel < 0 || c.R < 0:
		return fmt.Errorf("cost weights must be non-negative: %w", dynamo.ErrParameterBounds)
	case c.MaxTorque < 0:
		return fmt.Errorf("max_torque %v must be non-negative: %w", c.MaxTorque, dynamo.ErrParameterBounds)
	}
	return nil
}

// MPC predicts the pendulum forward over a fixed horizon for each candidate
// torque and picks the torque with the lowest accumulated cost. The candidate
// range is ±MaxTorque, while rollouts saturate at the plant's actuator limit
// exactly as the plant does.
type MPC struct {
	cfg           MPCConfig
	params        physics.Params
	actuatorLimit float64
	search        *optim.GridSearch
}

// NewMPC plans for a plant with the given parameters and actuator limit. The
// parameters are copied; later changes to the plant are not seen.
func NewMPC(cfg MPCConfig, params physics.Params, actuatorLimit float64) *MPC {
	search := optim.NewGridSearch()
	search.Workers = cfg.Workers
	return &MPC{
		cfg:           cfg,
		params:        params,
		actuatorLimit: actuatorLimit,
		search:        search,
	}
}

func (m *MPC) Config() MPCConfig { return m.cfg }

// Cost rolls a private copy of the plant Horizon steps from x holding torque
// and returns the accumulated stage cost. Each stage is charged on the state
// before the step is taken.
func (m *MPC) Cost(x dynamo.State, torque float64) float64 {
	model := physics.NewModel(m.params).WithActuatorLimit(m.actuatorLimit)
	model.SetState(x)

	effort := m.cfg.R * torque * torque
	cost := 0.0
	for i := 0; i < m.cfg.Horizon; i++ {
		s := model.State()
		cost += m.cfg.QAngle*((1-math.Cos(s.Theta1))+(1-math.Cos(s.Theta2))) +
			m.cfg.QAngularVel*(s.Theta1Dot*s.Theta1Dot+s.Theta2Dot*s.Theta2Dot) +
			effort
		model.Update(m.cfg.TimeStep, torque)
	}
	return cost
}

// Optimize runs the grid search from x.
func (m *MPC) Optimize(ctx context.Context, x dynamo.State) (optim.Result, error) {
	return m.search.Search(ctx, m.cfg.MaxTorque, func(u float64) float64 {
		return m.Cost(x, u)
	})
}

func (m *MPC) Compute(ctx context.Context, x dynamo.State) (dynamo.Decision, error) {
	res, err := m.Optimize(ctx, x)
	if err != nil {
		return dynamo.Decision{}, err
	}
	return dynamo.Decision{
		Torque:      res.Best,
		Applied:     saturate(res.Best, m.actuatorLimit),
		Cost:        res.Cost,
		Evaluations: res.Evaluations,
	}, nil
}

// GetParams returns tunable parameters for live adjustment
func (m *MPC) GetParams() map[string]float64 {
	return map[string]float64{
		"horizon":       float64(m.cfg.Horizon),
		"time_step":     m.cfg.TimeStep,
		"q_angle":       m.cfg.QAngle,
		"q_angular_vel": m.cfg.QAngularVel,
		"r":             m.cfg.R,
		"max_torque":    m.cfg.MaxTorque,
	}
}

// SetParam adjusts an MPC parameter. It must not be called while Compute is
// running.
func (m *MPC) SetParam(name string, value float64) error {
	next := m.cfg
	switch name {
	case "horizon":
		next.Horizon = int(value)
	case "time_step":
		next.TimeStep = value
	case "q_angle":
		next.QAngle = value
	case "q_angular_vel":
		next.QAngularVel = value
	case "r":
		next.R = value
	case "max_torque":
		next.MaxTorque = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	m.cfg = next
	return nil
}

func saturate(torque, limit float64) float64 {
	if limit <= 0 {
		return torque
	}
	return math.Max(-limit, math.Min(limit, torque))
}
