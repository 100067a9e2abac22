package control

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// PIDConfig holds gains for the lower-link angle loop. Target is the θ2 the
// controller drives toward; 0 is upright.
type PIDConfig struct {
	Kp     float64 `yaml:"kp" json:"kp"`
	Ki     float64 `yaml:"ki" json:"ki"`
	Kd     float64 `yaml:"kd" json:"kd"`
	Target float64 `yaml:"target" json:"target"`
}

func DefaultPIDConfig() PIDConfig {
	return PIDConfig{Kp: 20, Ki: 0, Kd: 4}
}

func (c PIDConfig) Validate() error {
	for _, v := range []float64{c.Kp, c.Ki, c.Kd, c.Target} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("pid gains and target must be finite: %w", dynamo.ErrParameterBounds)
		}
	}
	return nil
}

// PID acts on the lower-link angle only. It is a baseline for the MPC: the
// upper link is left to the coupling. The angle error is wrapped into
// [-π, π] so unwrapped angles do not wind up the integral.
type PID struct {
	cfg      PIDConfig
	interval float64
	limit    float64
	integral float64
	prevErr  float64
	first    bool
}

// NewPID returns a PID decided every interval seconds whose reported Applied
// torque is saturated at limit (<= 0 disables saturation).
func NewPID(cfg PIDConfig, interval, limit float64) *PID {
	return &PID{
		cfg:      cfg,
		interval: interval,
		limit:    limit,
		first:    true,
	}
}

func (p *PID) Compute(ctx context.Context, x dynamo.State) (dynamo.Decision, error) {
	if err := ctx.Err(); err != nil {
		return dynamo.Decision{}, err
	}

	err := math.Remainder(p.cfg.Target-x.Theta2, 2*math.Pi)

	u := p.cfg.Kp * err
	if p.first || p.interval <= 0 {
		p.first = false
	} else {
		p.integral += err * p.interval
		derivative := (err - p.prevErr) / p.interval
		u += p.cfg.Ki*p.integral + p.cfg.Kd*derivative
	}
	p.prevErr = err

	return dynamo.Decision{Torque: u, Applied: saturate(u, p.limit)}, nil
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

func (p *PID) Config() PIDConfig { return p.cfg }

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"kp":         p.cfg.Kp,
		"ki":         p.cfg.Ki,
		"kd":         p.cfg.Kd,
		"pid_target": p.cfg.Target,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	next := p.cfg
	switch name {
	case "kp":
		next.Kp = value
	case "ki":
		next.Ki = value
	case "kd":
		next.Kd = value
	case "pid_target":
		next.Target = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	p.cfg = next
	return nil
}
