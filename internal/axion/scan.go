package axion

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultFWHMStep is the mass increment (eV) of the FWHM walk.
	DefaultFWHMStep = 0.001

	// MaxFWHMMass bounds the FWHM walk (eV). A walk reaching it returns
	// MaxFWHMMass as the width.
	MaxFWHMMass = 10.0

	// DefaultScanGas, DefaultScanMaxMass (eV) and DefaultRampDown are the
	// usual helioscope scan settings.
	DefaultScanGas     = "He"
	DefaultScanMaxMass = 0.15
	DefaultRampDown    = 5.0
)

var (
	// ErrFWHMDiverged is returned when the probability never falls to half
	// its maximum below MaxFWHMMass.
	ErrFWHMDiverged = errors.New("FWHM walk exceeded the maximum mass")

	// ErrFWHMDegenerate is returned when the walk ends at the resonance
	// mass, for instance with a zero field.
	ErrFWHMDegenerate = errors.New("FWHM walk found no width")

	// ErrInvalidScan is returned for scan limits that cannot terminate.
	ErrInvalidScan = errors.New("invalid scan limits")
)

// ScanPoint is one setting of a gas scan: the axion mass (eV) at resonance
// and the gas density (g/cm³) producing it.
type ScanPoint struct {
	Mass    float64 `json:"mass" yaml:"mass"`
	Density float64 `json:"density" yaml:"density"`
}

// GammaTransmissionFWHM returns the full width (eV) at half maximum of the
// transmission probability around the resonance of the bound medium, or
// around zero mass in vacuum, walking up in steps of step eV. A non-positive
// step uses DefaultFWHMStep.
//
// On failure a usable fallback width is still returned together with
// ErrFWHMDiverged (MaxFWHMMass) or ErrFWHMDegenerate (two steps).
func (f *Field) GammaTransmissionFWHM(step float64) (float64, error) {
	if step <= 0 {
		step = DefaultFWHMStep
	}

	var resonance float64
	if f.medium != nil {
		resonance = f.medium.PhotonMass(f.params.Energy)
	}

	pmax := f.GammaTransmissionProbability(resonance)
	mass := resonance
	for pmax/2 < f.GammaTransmissionProbability(mass) {
		mass += step
		if mass > MaxFWHMMass {
			f.logger.Error("FWHM walk did not cross half maximum",
				"resonance_eV", resonance, "limit_eV", MaxFWHMMass)
			return MaxFWHMMass, ErrFWHMDiverged
		}
	}

	half := mass - resonance
	if half <= 0 {
		f.logger.Error("FWHM walk found no width, using step",
			"resonance_eV", resonance, "step_eV", step, "max_probability", pmax)
		return 2 * step, ErrFWHMDegenerate
	}
	return 2 * half, nil
}

// MassDensityScanning plans a gas scan for gasName from the vacuum
// sensitivity edge up to maxMass (eV). The first point sits at half the
// vacuum FWHM; each next mass advances by FWHM/factor with
// factor = e^(−ma·rampDown) + 1, so steps start at half a width and grow to
// a full width. The medium bound before the call is restored on return.
func (f *Field) MassDensityScanning(gasName string, maxMass, rampDown float64) ([]ScanPoint, error) {
	if math.IsInf(maxMass, 0) || math.IsNaN(maxMass) {
		return nil, fmt.Errorf("%w: max mass %g", ErrInvalidScan, maxMass)
	}
	if rampDown < 0 || math.IsNaN(rampDown) {
		return nil, fmt.Errorf("%w: ramp down %g", ErrInvalidScan, rampDown)
	}

	previous := f.medium
	defer func() { f.medium = previous }()

	f.medium = nil
	width, err := f.GammaTransmissionFWHM(DefaultFWHMStep)
	if err != nil {
		f.logger.Warn("vacuum FWHM fallback", "width_eV", width, "error", err)
	}
	ma := width / 2

	g, err := f.newGas(gasName)
	if err != nil {
		return nil, fmt.Errorf("scan gas %s: %w", gasName, err)
	}
	if err := g.SetDensity(gasName, 0); err != nil {
		return nil, fmt.Errorf("scan gas %s: %w", gasName, err)
	}
	f.medium = g

	energy := f.params.Energy
	density, err := g.DensityForMass(ma, energy)
	if err != nil {
		return nil, fmt.Errorf("density for %g eV: %w", ma, err)
	}
	points := []ScanPoint{{Mass: ma, Density: density}}

	for ma < maxMass {
		factor := math.Exp(-ma*rampDown) + 1
		if err := g.SetDensity(gasName, density); err != nil {
			return points, fmt.Errorf("scan gas %s: %w", gasName, err)
		}

		width, err := f.GammaTransmissionFWHM(DefaultFWHMStep)
		if err != nil {
			f.logger.Warn("FWHM fallback", "mass_eV", ma, "width_eV", width, "error", err)
		}
		ma += width / factor

		density, err = g.DensityForMass(ma, energy)
		if err != nil {
			return points, fmt.Errorf("density for %g eV: %w", ma, err)
		}
		points = append(points, ScanPoint{Mass: ma, Density: density})
	}

	scanPoints.WithLabelValues(gasName).Add(float64(len(points)))
	f.logger.Info("scan planned",
		"gas", gasName, "points", len(points), "max_mass_eV", maxMass,
		"ramp_down", rampDown, "energy_keV", energy)
	return points, nil
}
