// Package gas provides the buffer gas model: a catalog of tabulated gas
// species and mixtures that derive the effective photon mass and the photon
// absorption length seen by an axion-induced photon.
package gas

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/gases.yaml
var builtinCatalog []byte

// ErrUnknownGas is returned when a species is not in the catalog.
var ErrUnknownGas = errors.New("unknown gas")

// Species is one tabulated gas.
type Species struct {
	Name       string  `yaml:"name"`
	MolarMass  float64 `yaml:"molar_mass"` // g/mol
	Form       Table   `yaml:"form_factor"`
	Absorption Table   `yaml:"absorption"` // cm2/g
}

// FormFactor returns the atomic scattering factor at energy (keV).
func (s *Species) FormFactor(energy float64) (float64, error) {
	v, err := s.Form.At(energy)
	if err != nil {
		return 0, fmt.Errorf("%s form factor: %w", s.Name, err)
	}
	return v, nil
}

// AbsorptionCoefficient returns the mass absorption coefficient (cm2/g) at
// energy (keV).
func (s *Species) AbsorptionCoefficient(energy float64) (float64, error) {
	v, err := s.Absorption.At(energy)
	if err != nil {
		return 0, fmt.Errorf("%s absorption: %w", s.Name, err)
	}
	return v, nil
}

func (s *Species) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: species without name", ErrMalformedTable)
	}
	if s.MolarMass <= 0 {
		return fmt.Errorf("%w: %s molar mass %g", ErrMalformedTable, s.Name, s.MolarMass)
	}
	if err := s.Form.validate(); err != nil {
		return fmt.Errorf("%s form factor: %w", s.Name, err)
	}
	if err := s.Absorption.validate(); err != nil {
		return fmt.Errorf("%s absorption: %w", s.Name, err)
	}
	return nil
}

// Catalog indexes gas species by name.
type Catalog struct {
	species map[string]*Species
}

type catalogFile struct {
	Gases []*Species `yaml:"gases"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode gas catalog: %w", err)
	}
	if len(f.Gases) == 0 {
		return nil, fmt.Errorf("%w: catalog has no gases", ErrMalformedTable)
	}
	c := &Catalog{species: make(map[string]*Species, len(f.Gases))}
	for _, s := range f.Gases {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.species[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate gas %q", ErrMalformedTable, s.Name)
		}
		c.species[s.Name] = s
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gas catalog: %w", err)
	}
	return ParseCatalog(data)
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(builtinCatalog)
})

// DefaultCatalog returns the embedded He/Ne/Ar/Xe catalog.
func DefaultCatalog() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("embedded gas catalog: %v", err))
	}
	return c
}

// Species looks up a gas by name.
func (c *Catalog) Species(name string) (*Species, error) {
	s, ok := c.species[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGas, name)
	}
	return s, nil
}

// Names returns the catalog's gas names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.species))
	for n := range c.species {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
