package gas

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/helioscope/internal/units"
)

// ErrNotSingleGas is returned by DensityForMass on mixtures that do not hold
// exactly one component.
var ErrNotSingleGas = errors.New("density inversion needs exactly one gas component")

// Component is a species at a density (g/cm3).
type Component struct {
	Species *Species
	Density float64
}

// Mixture is a homogeneous buffer gas filling the magnet bore.
type Mixture struct {
	catalog    *Catalog
	components []Component
	logger     *slog.Logger
}

// New creates a mixture holding a single gas at the given density (g/cm3).
func New(cat *Catalog, name string, density float64) (*Mixture, error) {
	m := &Mixture{catalog: cat, logger: slog.Default()}
	if err := m.SetDensity(name, density); err != nil {
		return nil, err
	}
	return m, nil
}

// SetLogger replaces the logger used for skipped components.
func (m *Mixture) SetLogger(l *slog.Logger) {
	if l != nil {
		m.logger = l
	}
}

// SetDensity sets a component's density, adding it if absent.
func (m *Mixture) SetDensity(name string, density float64) error {
	if density < 0 || math.IsNaN(density) {
		return fmt.Errorf("gas %s: invalid density %g", name, density)
	}
	for i := range m.components {
		if m.components[i].Species.Name == name {
			m.components[i].Density = density
			return nil
		}
	}
	s, err := m.catalog.Species(name)
	if err != nil {
		return err
	}
	m.components = append(m.components, Component{Species: s, Density: density})
	return nil
}

// Density returns a component's density.
func (m *Mixture) Density(name string) (float64, error) {
	for _, c := range m.components {
		if c.Species.Name == name {
			return c.Density, nil
		}
	}
	return 0, fmt.Errorf("%w: %q not in mixture", ErrUnknownGas, name)
}

// Components returns a copy of the mixture's components.
func (m *Mixture) Components() []Component {
	out := make([]Component, len(m.components))
	copy(out, m.components)
	return out
}

// FormFactor returns the form factor of a component at energy (keV).
func (m *Mixture) FormFactor(name string, energy float64) (float64, error) {
	s, err := m.catalog.Species(name)
	if err != nil {
		return 0, err
	}
	return s.FormFactor(energy)
}

// AbsorptionCoefficient returns the mass absorption coefficient (cm2/g) of a
// component at energy (keV).
func (m *Mixture) AbsorptionCoefficient(name string, energy float64) (float64, error) {
	s, err := m.catalog.Species(name)
	if err != nil {
		return 0, err
	}
	return s.AbsorptionCoefficient(energy)
}

// PhotonMass returns the effective photon mass (eV) at energy (keV).
func (m *Mixture) PhotonMass(energy float64) float64 {
	var sum float64
	for _, c := range m.components {
		f, err := c.Species.FormFactor(energy)
		if err != nil {
			m.logger.Error("photon mass: component skipped", "gas", c.Species.Name, "error", err)
			continue
		}
		sum += c.Density * f / c.Species.MolarMass
	}
	return units.PlasmaFrequency * math.Sqrt(sum)
}

// PhotonAbsorptionLength returns the inverse absorption length (cm^-1) at
// energy (keV).
func (m *Mixture) PhotonAbsorptionLength(energy float64) float64 {
	var sum float64
	for _, c := range m.components {
		mu, err := c.Species.AbsorptionCoefficient(energy)
		if err != nil {
			m.logger.Error("absorption length: component skipped", "gas", c.Species.Name, "error", err)
			continue
		}
		sum += c.Density * mu
	}
	return sum
}

// PhotonAbsorptionLengthIneV returns the inverse absorption length in eV.
func (m *Mixture) PhotonAbsorptionLengthIneV(energy float64) float64 {
	return units.InverseCentimeterToEV(m.PhotonAbsorptionLength(energy))
}

// DensityForMass returns the density (g/cm3) at which the single component
// gives photon mass mass (eV) at energy (keV).
func (m *Mixture) DensityForMass(mass, energy float64) (float64, error) {
	if len(m.components) != 1 {
		return 0, fmt.Errorf("%w: mixture has %d", ErrNotSingleGas, len(m.components))
	}
	s := m.components[0].Species
	f, err := s.FormFactor(energy)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("gas %s: non-positive form factor at %g keV", s.Name, energy)
	}
	r := mass / units.PlasmaFrequency
	return r * r * s.MolarMass / f, nil
}
