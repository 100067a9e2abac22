package config

import (
	"math"
	"sort"
)

// Presets are named starting points. Each entry builds a fresh config so
// callers may modify what they get back.
var Presets = map[string]func() *Config{
	"hanging": DefaultConfig,
	"nudged": func() *Config {
		c := DefaultConfig()
		c.InitState.Theta1 = math.Pi - 0.2
		c.Loop.Duration = 20
		return c
	},
	"passive": func() *Config {
		c := DefaultConfig()
		c.Controller = "none"
		c.InitState.Theta1 = math.Pi - 0.5
		c.InitState.Theta2 = math.Pi + 0.5
		c.Loop.Duration = 10
		return c
	},
	"upright": func() *Config {
		c := DefaultConfig()
		c.InitState = InitStateConfig{Theta1: 0.05, Theta2: -0.05}
		c.Loop.Duration = 10
		return c
	},
	"pid": func() *Config {
		c := DefaultConfig()
		c.Controller = "pid"
		c.InitState = InitStateConfig{Theta1: 0.05, Theta2: -0.05}
		c.Loop.Duration = 10
		return c
	},
	"coarse": func() *Config {
		c := DefaultConfig()
		c.MPC.Horizon = 50
		c.Loop.ControlInterval = 0.1
		c.Loop.Duration = 20
		return c
	},
}

var presetDescriptions = map[string]string{
	"hanging": "start at rest hanging down, MPC swing-up (default)",
	"nudged":  "upper link displaced 0.2 rad, MPC",
	"passive": "no control, damped free swing from a displaced start",
	"upright": "start just off the upright equilibrium, MPC",
	"coarse":  "short horizon, controller re-planned every 0.1 s",
	"pid":     "start just off upright, PID on the lower-link angle as a baseline",
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	return sortedKeys(Presets)
}

func Describe(name string) string {
	return presetDescriptions[name]
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
