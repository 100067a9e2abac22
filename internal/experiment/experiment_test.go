package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/pendubalance/internal/config"
	"github.com/san-kum/pendubalance/internal/control"
	"github.com/san-kum/pendubalance/internal/dynamo"
)

func TestRegistryLists(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"euler", "rk4", "rk45"}, reg.ListIntegrators())
	assert.Equal(t, []string{"manual", "mpc", "none", "pid"}, reg.ListControllers())

	_, err := reg.GetIntegrator("verlet")
	assert.Error(t, err)
	_, err = reg.GetController("lqr", config.DefaultConfig())
	assert.Error(t, err)
}

func TestBuildPIDBaseline(t *testing.T) {
	cfg := config.GetPreset("pid")
	cfg.PID.Kp = 12
	cfg.Loop.Duration = 0.1

	e, err := Build(cfg, nil)
	require.NoError(t, err)

	pid, ok := e.Controller().(*control.PID)
	require.True(t, ok)
	assert.Equal(t, 12.0, pid.Config().Kp)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, res.Steps)
	for _, u := range res.Applied {
		assert.LessOrEqual(t, u, cfg.ActuatorLimit)
		assert.GreaterOrEqual(t, u, -cfg.ActuatorLimit)
	}
}

func TestBuildUsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MPC.Horizon = 3
	cfg.ActuatorLimit = 7

	e, err := Build(cfg, nil)
	require.NoError(t, err)

	mpc, ok := e.Controller().(*control.MPC)
	require.True(t, ok)
	assert.Equal(t, 3, mpc.Config().Horizon)
	assert.Equal(t, 7.0, e.Loop().Model().ActuatorLimit())
	assert.Equal(t, dynamo.Hanging(), e.Loop().Model().State())
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Loop.Dt = 0

	_, err := Build(cfg, nil)
	assert.ErrorIs(t, err, dynamo.ErrParameterBounds)

	cfg = config.DefaultConfig()
	cfg.Integrator = "leapfrog"
	_, err = Build(cfg, nil)
	assert.Error(t, err)
}

func TestRunPassive(t *testing.T) {
	cfg := config.GetPreset("passive")
	cfg.Loop.Duration = 1

	core, logs := observer.New(zap.InfoLevel)
	e, err := Build(cfg, zap.New(core))
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 101, res.Steps)
	for _, name := range []string{"energy", "energy_drift", "control_effort", "peak_torque", "upright"} {
		assert.Contains(t, res.Metrics, name)
	}
	assert.Equal(t, 0.0, res.Metrics["control_effort"])
	assert.Equal(t, 2, logs.FilterMessage("control loop started").Len()+logs.FilterMessage("control loop finished").Len())
	assert.Equal(t, "none", logs.All()[0].ContextMap()["controller"])
}

func TestRunWithoutSetup(t *testing.T) {
	_, err := New(config.DefaultConfig()).Run(context.Background())
	assert.Error(t, err)
}
