package axion

import (
	"math"
	"math/cmplx"

	"github.com/talgya/helioscope/internal/units"
)

// ProfileProbability integrates the conversion amplitude over a field
// profile sampled every step (mm), using the midpoint rule. Ea is in keV and
// ma in eV; the medium is taken as homogeneous along the profile. Profiles
// with fewer than two samples, or a step that is not positive, have no
// length and give zero, also for massless axions in vacuum.
func (f *Field) ProfileProbability(profile []float64, step, Ea, ma float64, opts ...MassOption) float64 {
	if len(profile) < 2 || step <= 0 {
		return 0
	}
	length := float64(len(profile)-1) * step
	mg, gamma := f.resolve(Ea, opts)

	var avg float64
	for _, b := range profile {
		avg += b
	}
	avg /= float64(len(profile))

	f.logger.Debug("profile probability",
		"samples", len(profile), "step_mm", step, "length_mm", length, "mean_field_T", avg,
		"energy_keV", Ea, "axion_mass_eV", ma, "photon_mass_eV", mg, "absorption_cm-1", gamma)

	if ma == 0 && mg == 0 {
		return units.BLHalfSquared(avg, length)
	}

	q := (ma*ma - mg*mg) / (2 * Ea * units.KeVToEV)
	stepIneV := units.LengthIneV(step)
	stepCm := step * units.MillimeterToCentimeter

	var sum complex128
	for n := 0; n < len(profile)-1; n++ {
		mid := 0.5 * (profile[n] + profile[n+1])
		x := float64(n) + 0.5
		sum += complex(mid*step, 0) * cmplx.Exp(complex(0.5*gamma*x*stepCm, -q*x*stepIneV))
	}

	gammaL := gamma * length * units.MillimeterToCentimeter
	return math.Exp(-gammaL) * units.SquaredMagnitude(sum) * units.BLHalfSquared(1, 1)
}
