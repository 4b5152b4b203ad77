// Package units provides the physical constants and unit conversions shared by
// the conversion engines. Lengths are given in mm, fields in T, energies in keV
// and masses in eV unless a name says otherwise.
package units

import "math"

// Physical constants.
const (
	// LightSpeed in m/s.
	LightSpeed = 299792458.0

	// NaturalElectron is the electron charge in natural units, sqrt(4πα).
	NaturalElectron = 0.302822120214353

	// PhMeterIneV is one meter expressed in eV⁻¹ (1/ħc).
	PhMeterIneV = 5067731.236453719

	// ReferenceCoupling is the axion-photon coupling, in GeV⁻¹, every
	// probability is normalized to.
	ReferenceCoupling = 1.0e-10

	// PlasmaFrequency is the constant of the photon mass formula,
	// m_γ = 28.77·sqrt(ρ·Z/A) eV with ρ in g/cm³.
	PlasmaFrequency = 28.77
)

// Conversion factors from the default units.
const (
	MillimeterToMeter      = 1.0e-3
	MillimeterToCentimeter = 0.1
	MeterToCentimeter      = 100.0
	CentimeterToMillimeter = 10.0
	KeVToEV                = 1.0e3
	EVToGeV                = 1.0e-9
)

// TeslaMeter converts B[T]·L[m] to natural units, in GeV.
var TeslaMeter = LightSpeed / NaturalElectron * EVToGeV

// BL returns B·L in natural units for a coupling of ReferenceCoupling.
// Lcoh is in mm, Bmag in T.
func BL(Bmag, Lcoh float64) float64 {
	return Lcoh * MillimeterToMeter * Bmag * TeslaMeter * ReferenceCoupling
}

// BLHalfSquared returns (BL/2)² in natural units for a coupling of
// ReferenceCoupling. Lcoh is in mm, Bmag in T.
func BLHalfSquared(Bmag, Lcoh float64) float64 {
	half := Lcoh * MillimeterToMeter * Bmag * TeslaMeter / 2
	return half * half * ReferenceCoupling * ReferenceCoupling
}

// LengthIneV converts a length in mm to eV⁻¹.
func LengthIneV(mm float64) float64 {
	return mm * MillimeterToMeter * PhMeterIneV
}

// InverseCentimeterToEV converts an inverse length in cm⁻¹ to eV.
func InverseCentimeterToEV(perCm float64) float64 {
	return perCm * MeterToCentimeter / PhMeterIneV
}

// ElectronVoltToInverseMillimeter converts an energy in eV to mm⁻¹.
func ElectronVoltToInverseMillimeter(eV float64) float64 {
	return eV * PhMeterIneV * MillimeterToMeter
}

// SquaredMagnitude is the squared modulus of a complex number.
func SquaredMagnitude(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}

// Relative returns |a-b| / max(|a|, |b|), or 0 when both are zero.
func Relative(a, b float64) float64 {
	den := math.Max(math.Abs(a), math.Abs(b))
	if den == 0 {
		return 0
	}
	return math.Abs(a-b) / den
}
