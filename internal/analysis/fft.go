package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Spectrum is the one-sided power spectrum of a uniformly sampled signal.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum transforms data sampled every dt seconds. The mean is
// removed first, so a pendulum resting away from zero does not swamp the
// low bins. Any length is accepted.
func PowerSpectrum(data []float64, dt float64) Spectrum {
	n := len(data)
	if n == 0 || dt <= 0 {
		return Spectrum{}
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	bins := n/2 + 1
	s := Spectrum{
		Freqs: make([]float64, bins),
		Power: make([]float64, bins),
	}
	for k := 0; k < bins; k++ {
		s.Freqs[k] = float64(k) / (float64(n) * dt)
		mag := cmplx.Abs(coeffs[k])
		s.Power[k] = mag * mag / float64(n)
	}
	return s
}

// Dominant returns the strongest bin above DC. A flat signal yields zeros.
func (s Spectrum) Dominant() (freq, power float64) {
	for k := 1; k < len(s.Power); k++ {
		if s.Power[k] > power {
			freq, power = s.Freqs[k], s.Power[k]
		}
	}
	return freq, power
}

// DominantFrequency is PowerSpectrum followed by Dominant, in Hz.
func DominantFrequency(data []float64, dt float64) float64 {
	freq, _ := PowerSpectrum(data, dt).Dominant()
	return freq
}
