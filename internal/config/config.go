package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendubalance/internal/control"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/physics"
	"github.com/san-kum/pendubalance/internal/sim"
)

const (
	DefaultIntegrator = "rk4"
	DefaultController = "mpc"
	DefaultQAngle     = 1000.0
)

type Config struct {
	Integrator    string            `yaml:"integrator" json:"integrator"`
	Controller    string            `yaml:"controller" json:"controller"`
	Physics       physics.Params    `yaml:"physics" json:"physics"`
	ActuatorLimit float64           `yaml:"actuator_limit" json:"actuator_limit"`
	MPC           control.MPCConfig `yaml:"mpc" json:"mpc"`
	PID           control.PIDConfig `yaml:"pid" json:"pid"`
	Loop          sim.Config        `yaml:"loop" json:"loop"`
	InitState     InitStateConfig   `yaml:"init_state" json:"init_state"`
}

type InitStateConfig struct {
	Theta1    float64 `yaml:"theta1" json:"theta1"`
	Theta1Dot float64 `yaml:"theta1_dot" json:"theta1_dot"`
	Theta2    float64 `yaml:"theta2" json:"theta2"`
	Theta2Dot float64 `yaml:"theta2_dot" json:"theta2_dot"`
}

func (s InitStateConfig) State() dynamo.State {
	return dynamo.State{Theta1: s.Theta1, Theta1Dot: s.Theta1Dot, Theta2: s.Theta2, Theta2Dot: s.Theta2Dot}
}

// DefaultConfig is the balancing run: hanging start, MPC with a heavier
// angle weight than the controller's own default, one minute of simulated
// time.
func DefaultConfig() *Config {
	mpc := control.DefaultMPCConfig()
	mpc.QAngle = DefaultQAngle

	hanging := dynamo.Hanging()
	return &Config{
		Integrator:    DefaultIntegrator,
		Controller:    DefaultController,
		Physics:       physics.DefaultParams(),
		ActuatorLimit: physics.DefaultActuatorLimit,
		MPC:           mpc,
		PID:           control.DefaultPIDConfig(),
		Loop:          sim.DefaultConfig(),
		InitState:     InitStateConfig{Theta1: hanging.Theta1, Theta2: hanging.Theta2},
	}
}

// Load reads a YAML file on top of DefaultConfig, so missing keys keep their
// defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file on top of base, which is modified in place.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if err := c.Physics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("physics: %w", err))
	}
	if !(c.ActuatorLimit > 0) {
		errs = append(errs, fmt.Errorf("actuator_limit %v must be positive: %w", c.ActuatorLimit, dynamo.ErrParameterBounds))
	}
	if err := c.MPC.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mpc: %w", err))
	}
	if err := c.PID.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pid: %w", err))
	}
	if err := c.Loop.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("loop: %w", err))
	}
	if !c.InitState.State().IsValid() {
		errs = append(errs, fmt.Errorf("init_state: %w", dynamo.ErrInvalidState))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Set applies one named override. Names are the YAML keys of the leaf
// fields, e.g. "l1", "horizon", "dt", "theta1".
func (c *Config) Set(name string, value float64) error {
	dp := physics.NewDoublePendulum(c.Physics)
	if err := dp.SetParam(name, value); err == nil {
		c.Physics = dp.Params
		return nil
	}

	mpc := control.NewMPC(c.MPC, c.Physics, c.ActuatorLimit)
	err := mpc.SetParam(name, value)
	if err == nil {
		c.MPC = mpc.Config()
		return nil
	}
	if !errors.Is(err, dynamo.ErrUnknownParam) {
		return err
	}

	pid := control.NewPID(c.PID, c.Loop.ControlInterval, c.ActuatorLimit)
	err = pid.SetParam(name, value)
	if err == nil {
		c.PID = pid.Config()
		return nil
	}
	if !errors.Is(err, dynamo.ErrUnknownParam) {
		return err
	}

	switch name {
	case "workers":
		c.MPC.Workers = int(value)
	case "actuator_limit":
		c.ActuatorLimit = value
	case "dt":
		c.Loop.Dt = value
	case "control_interval":
		c.Loop.ControlInterval = value
	case "duration":
		c.Loop.Duration = value
	case "control_budget":
		c.Loop.ControlBudget = time.Duration(value * float64(time.Second))
	case "theta1":
		c.InitState.Theta1 = value
	case "theta1_dot":
		c.InitState.Theta1Dot = value
	case "theta2":
		c.InitState.Theta2 = value
	case "theta2_dot":
		c.InitState.Theta2Dot = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}

// Apply sets every override in order of the sorted keys.
func (c *Config) Apply(overrides map[string]float64) error {
	for _, name := range sortedKeys(overrides) {
		if err := c.Set(name, overrides[name]); err != nil {
			return err
		}
	}
	return nil
}
