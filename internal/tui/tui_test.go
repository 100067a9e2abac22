package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/physics"
	"github.com/san-kum/pendubalance/internal/sim"
)

func TestConsoleStatusEvery(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, 100)

	for step := 1; step <= 250; step++ {
		c.Present(sim.Frame{
			Step:     step,
			Time:     float64(step) * 0.01,
			Prev:     dynamo.Hanging(),
			State:    dynamo.State{Theta1: 1, Theta2: 2},
			Decision: dynamo.Decision{Torque: 2.5},
		})
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 status lines, got %d: %q", len(lines), buf.String())
	}
	want := "Time: 1.00s | theta1: 3.1416 | theta2: 3.1416 | Torque: 2.5000 N·m"
	if lines[0] != want {
		t.Errorf("status line = %q, want %q", lines[0], want)
	}
	if !c.Running() {
		t.Error("console should never stop the loop")
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, &sim.Result{
		States:  []dynamo.State{{}, {Theta1: 3.14159, Theta2: -1.5708}},
		Times:   []float64{0, 60},
		Steps:   6001,
		Wall:    2 * time.Second,
		Metrics: map[string]float64{"upright": 0.25},
	})

	out := buf.String()
	for _, want := range []string{
		"Simulation Complete",
		"60.00 s",
		"2000 ms",
		"6001",
		"3000.5",
		"(180.0 deg)",
		"(-90.0 deg)",
		"upright",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestLiveRendererDrawsJoints(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, 1000, 1.0)

	dp := physics.NewDoublePendulum(physics.DefaultParams())
	x := dynamo.Hanging()
	r.Present(sim.Frame{Time: 0.5, State: x, Upper: dp.UpperJoint(x), Lower: dp.LowerJoint(x)})

	out := buf.String()
	if !strings.Contains(out, "t=0.50s") {
		t.Errorf("missing time header:\n%s", out)
	}
	for _, c := range []string{"+", "o", "O"} {
		if !strings.Contains(out, c) {
			t.Errorf("missing %q in drawing", c)
		}
	}
}
