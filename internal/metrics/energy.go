package metrics

import (
	"math"

	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/sim"
)

// Energy is the mean mechanical energy over the observed frames.
type Energy struct {
	name        string
	sys         dynamo.Hamiltonian
	samples     int
	totalEnergy float64
}

func NewEnergy(sys dynamo.Hamiltonian) *Energy {
	return &Energy{
		name: "energy",
		sys:  sys,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f sim.Frame) {
	e.totalEnergy += e.sys.Energy(f.State)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest change in mechanical energy relative to the
// first observed frame, normalized by the first frame's energy when it is
// non-zero.
type EnergyDrift struct {
	name          string
	sys           dynamo.Hamiltonian
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(sys dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		sys:  sys,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f sim.Frame) {
	energy := e.sys.Energy(f.State)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	drift := math.Abs(energy - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
