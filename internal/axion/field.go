// Package axion provides the axion-photon conversion engines: closed-form
// transmission and absorption probabilities for a constant field, numerical
// integration over sampled field profiles and 3-D field maps, and the
// mass/density step generator used to plan helioscope gas scans.
//
// Probabilities are normalized to g_aγ = 1e-10 GeV⁻¹. Fields are in T,
// lengths in mm, axion energies in keV and masses in eV.
package axion

import (
	"fmt"
	"log/slog"

	"github.com/talgya/helioscope/internal/gas"
)

// Params is the constant field state a probability is evaluated in.
type Params struct {
	Field  float64 `json:"field" yaml:"field"`   // T
	Length float64 `json:"length" yaml:"length"` // mm
	Energy float64 `json:"energy" yaml:"energy"` // keV
}

// DefaultParams is a 2.5 T, 10 m magnet seen at 4 keV.
func DefaultParams() Params {
	return Params{Field: 2.5, Length: 10000, Energy: 4}
}

// Validate checks that the parameters describe a physical setup.
func (p Params) Validate() error {
	if p.Field < 0 {
		return fmt.Errorf("field %g T is negative", p.Field)
	}
	if p.Length < 0 {
		return fmt.Errorf("length %g mm is negative", p.Length)
	}
	if p.Energy <= 0 {
		return fmt.Errorf("energy %g keV must be positive", p.Energy)
	}
	return nil
}

// Medium is the buffer gas filling the magnet. A nil Medium is vacuum.
type Medium interface {
	PhotonMass(energy float64) float64             // eV
	PhotonAbsorptionLength(energy float64) float64 // cm⁻¹
}

// ScanGas is a single-species medium whose density can be tuned.
type ScanGas interface {
	Medium
	SetDensity(name string, density float64) error
	DensityForMass(mass, energy float64) (float64, error)
}

// GasFactory creates an empty (zero density) gas by name.
type GasFactory func(name string) (ScanGas, error)

// CatalogGas returns a GasFactory backed by a gas catalog.
func CatalogGas(cat *gas.Catalog) GasFactory {
	return func(name string) (ScanGas, error) {
		return gas.New(cat, name, 0)
	}
}

// FieldMap is a magnetic field with a track already bound to it. The
// transverse field is sampled at a distance s (mm) along the track.
type FieldMap interface {
	TrackLength() float64
	TransversalField(s float64) float64
}

// Field is the conversion engine. It keeps the current Params used by the
// reduced-argument calls and the medium and field map bound to it. A Field
// must not be used from several goroutines at once.
type Field struct {
	params   Params
	medium   Medium
	fieldMap FieldMap
	newGas   GasFactory
	logger   *slog.Logger
}

// Option configures a Field.
type Option func(*Field)

// WithMedium binds a buffer gas.
func WithMedium(m Medium) Option { return func(f *Field) { f.medium = m } }

// WithFieldMap binds a field map.
func WithFieldMap(fm FieldMap) Option { return func(f *Field) { f.fieldMap = fm } }

// WithGasFactory sets the factory used by MassDensityScanning.
func WithGasFactory(g GasFactory) Option { return func(f *Field) { f.newGas = g } }

// WithLogger sets the logger for diagnostics.
func WithLogger(l *slog.Logger) Option { return func(f *Field) { f.logger = l } }

// New creates an engine with the given current parameters.
func New(p Params, opts ...Option) *Field {
	f := &Field{params: p}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.newGas == nil {
		f.newGas = CatalogGas(gas.DefaultCatalog())
	}
	return f
}

// Params returns the current parameters.
func (f *Field) Params() Params { return f.params }

// SetParams replaces the current parameters.
func (f *Field) SetParams(p Params) { f.params = p }

// Medium returns the bound medium, nil for vacuum.
func (f *Field) Medium() Medium { return f.medium }

// SetMedium binds a medium; nil restores vacuum.
func (f *Field) SetMedium(m Medium) { f.medium = m }

// FieldMap returns the bound field map.
func (f *Field) FieldMap() FieldMap { return f.fieldMap }

// SetFieldMap binds a field map; nil unbinds it.
func (f *Field) SetFieldMap(fm FieldMap) { f.fieldMap = fm }

type massArgs struct {
	photonMass float64
	absorption float64
}

// MassOption overrides a medium-derived quantity for one call.
type MassOption func(*massArgs)

// WithPhotonMass fixes the photon mass (eV). Zero defers to the medium.
func WithPhotonMass(mg float64) MassOption { return func(a *massArgs) { a.photonMass = mg } }

// WithAbsorption fixes the inverse absorption length (cm⁻¹). Zero defers to
// the medium.
func WithAbsorption(gamma float64) MassOption { return func(a *massArgs) { a.absorption = gamma } }

// resolve returns the photon mass (eV) and absorption (cm⁻¹) at energy,
// taking explicit overrides first, then the medium, then vacuum.
func (f *Field) resolve(energy float64, opts []MassOption) (mg, gamma float64) {
	var a massArgs
	for _, opt := range opts {
		opt(&a)
	}
	mg, gamma = a.photonMass, a.absorption
	if f.medium != nil {
		if mg == 0 {
			mg = f.medium.PhotonMass(energy)
		}
		if gamma == 0 {
			gamma = f.medium.PhotonAbsorptionLength(energy)
		}
	}
	return mg, gamma
}
