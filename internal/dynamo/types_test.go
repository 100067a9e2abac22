package dynamo

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"zero", State{}, true},
		{"hanging", Hanging(), true},
		{"unwrapped angles", State{Theta1: 40 * math.Pi, Theta2: -12}, true},
		{"with NaN", State{Theta1: 1.0, Theta2Dot: math.NaN()}, false},
		{"with +Inf", State{Theta1Dot: math.Inf(1)}, false},
		{"with -Inf", State{Theta2: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4, 0, 0}, 5.0},
		{State{1, 0, 0, 0}, 1.0},
		{State{}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3, 4}
	b := State{4, 5, 6, 7}

	if sum := a.Add(b); sum != (State{5, 7, 9, 11}) {
		t.Errorf("Add failed: got %v", sum)
	}
	if diff := b.Sub(a); diff != (State{3, 3, 3, 3}) {
		t.Errorf("Sub failed: got %v", diff)
	}
	if scaled := a.Scale(2); scaled != (State{2, 4, 6, 8}) {
		t.Errorf("Scale failed: got %v", scaled)
	}
}

func TestState_SliceOrder(t *testing.T) {
	s := State{Theta1: 1, Theta1Dot: 2, Theta2: 3, Theta2Dot: 4}
	v := s.Slice()
	if len(v) != 4 || v[0] != 1 || v[1] != 2 || v[2] != 3 || v[3] != 4 {
		t.Fatalf("unexpected slice order: %v", v)
	}
	if back := StateFromSlice(v); back != s {
		t.Errorf("StateFromSlice(%v) = %v", v, back)
	}
	if short := StateFromSlice([]float64{7}); short != (State{Theta1: 7}) {
		t.Errorf("short slice should zero-fill, got %v", short)
	}
}

func TestHanging(t *testing.T) {
	h := Hanging()
	if h.Theta1 != math.Pi || h.Theta2 != math.Pi || h.Theta1Dot != 0 || h.Theta2Dot != 0 {
		t.Errorf("unexpected hanging state %v", h)
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Time: 1.5, Step: 150, Wrapped: ErrUnstable}
	expected := "step 150 (t=1.5000): dynamo: simulation unstable (state diverged)"
	if err.Error() != expected {
		t.Errorf("SimulationError.Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrUnstable) {
		t.Error("SimulationError should unwrap to ErrUnstable")
	}
}

func TestParallelFor_CoversRange(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 64} {
		n := 201
		hits := make([]int32, n)
		ParallelFor(n, workers, 4, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("workers=%d: index %d visited %d times", workers, i, h)
			}
		}
	}
}

func TestParallelFor_Empty(t *testing.T) {
	called := 0
	ParallelFor(0, 4, 1, func(start, end int) {
		called++
		if start != end {
			t.Errorf("expected empty range, got [%d,%d)", start, end)
		}
	})
	if called > 1 {
		t.Errorf("expected at most one call, got %d", called)
	}
}
