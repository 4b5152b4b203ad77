package axion

import (
	"math"

	"github.com/talgya/helioscope/internal/units"
)

// phase returns the conversion phase q·L and the absorption exponent Γ·L
// for a constant field.
func phase(p Params, ma, mg, gamma float64) (phi, gammaL float64) {
	q := (ma*ma - mg*mg) / (2 * p.Energy * units.KeVToEV) // eV
	l := units.LengthIneV(p.Length)                       // eV⁻¹
	lcm := p.Length * units.MillimeterToCentimeter
	return q * l, gamma * lcm
}

// TransmissionProbability is the axion to photon conversion probability in a
// constant field, for axion mass ma (eV), photon mass mg (eV) and inverse
// absorption length gamma (cm⁻¹).
func TransmissionProbability(p Params, ma, mg, gamma float64) float64 {
	bl := units.BLHalfSquared(p.Field, p.Length)
	if ma == 0 && mg == 0 {
		return bl
	}
	phi, gl := phase(p, ma, mg, gamma)
	den := phi*phi + gl*gl/4
	if den == 0 {
		// Exact resonance without absorption: the φ → 0 limit.
		return bl
	}
	return bl * (1 + math.Exp(-gl) - 2*math.Exp(-gl/2)*math.Cos(phi)) / den
}

// AbsorptionProbability is the probability for an axion to be absorbed by
// conversion in a constant field, with the same arguments as
// TransmissionProbability.
func AbsorptionProbability(p Params, ma, mg, gamma float64) float64 {
	bl := units.BLHalfSquared(p.Field, p.Length)
	if ma == 0 && mg == 0 {
		return bl
	}
	phi, gl := phase(p, ma, mg, gamma)
	den := phi*phi + gl*gl/4
	if den == 0 {
		return 0
	}
	return bl * gl / den
}

// GammaTransmissionProbability evaluates the transmission probability for
// axion mass ma (eV) with the current parameters.
func (f *Field) GammaTransmissionProbability(ma float64, opts ...MassOption) float64 {
	mg, gamma := f.resolve(f.params.Energy, opts)
	f.logger.Debug("transmission probability",
		"field_T", f.params.Field, "length_mm", f.params.Length, "energy_keV", f.params.Energy,
		"axion_mass_eV", ma, "photon_mass_eV", mg, "absorption_cm-1", gamma)
	return TransmissionProbability(f.params, ma, mg, gamma)
}

// GammaTransmissionProbabilityAt makes p the current parameters and then
// evaluates the transmission probability.
func (f *Field) GammaTransmissionProbabilityAt(p Params, ma float64, opts ...MassOption) float64 {
	f.params = p
	return f.GammaTransmissionProbability(ma, opts...)
}

// AxionAbsorptionProbability evaluates the absorption probability for axion
// mass ma (eV) with the current parameters.
func (f *Field) AxionAbsorptionProbability(ma float64, opts ...MassOption) float64 {
	mg, gamma := f.resolve(f.params.Energy, opts)
	f.logger.Debug("absorption probability",
		"field_T", f.params.Field, "length_mm", f.params.Length, "energy_keV", f.params.Energy,
		"axion_mass_eV", ma, "photon_mass_eV", mg, "absorption_cm-1", gamma)
	return AbsorptionProbability(f.params, ma, mg, gamma)
}

// AxionAbsorptionProbabilityAt makes p the current parameters and then
// evaluates the absorption probability.
func (f *Field) AxionAbsorptionProbabilityAt(p Params, ma float64, opts ...MassOption) float64 {
	f.params = p
	return f.AxionAbsorptionProbability(ma, opts...)
}
