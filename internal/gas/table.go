package gas

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMalformedTable is returned for tables with mismatched columns,
	// too few rows, non-increasing energies or negative values.
	ErrMalformedTable = errors.New("malformed gas table")

	// ErrEnergyOutOfRange is returned when an energy falls outside a table.
	ErrEnergyOutOfRange = errors.New("energy out of table range")
)

// Table is a tabulated quantity versus photon energy (keV).
type Table struct {
	Energy []float64 `yaml:"energy" json:"energy"`
	Value  []float64 `yaml:"value" json:"value"`
}

func (t Table) validate() error {
	if len(t.Energy) != len(t.Value) {
		return fmt.Errorf("%w: %d energies for %d values", ErrMalformedTable, len(t.Energy), len(t.Value))
	}
	if len(t.Energy) < 2 {
		return fmt.Errorf("%w: need at least 2 rows, got %d", ErrMalformedTable, len(t.Energy))
	}
	for i := range t.Energy {
		if i > 0 && t.Energy[i] <= t.Energy[i-1] {
			return fmt.Errorf("%w: energy not increasing at row %d", ErrMalformedTable, i)
		}
		if t.Value[i] < 0 {
			return fmt.Errorf("%w: negative value at row %d", ErrMalformedTable, i)
		}
	}
	return nil
}

// Range returns the first and last tabulated energy.
func (t Table) Range() (lo, hi float64) {
	return t.Energy[0], t.Energy[len(t.Energy)-1]
}

// At linearly interpolates the table at energy (keV).
func (t Table) At(energy float64) (float64, error) {
	i := t.index(energy)
	if i < 0 {
		lo, hi := t.Range()
		return 0, fmt.Errorf("%w: %g keV not in [%g, %g]", ErrEnergyOutOfRange, energy, lo, hi)
	}
	x1, x2 := t.Energy[i], t.Energy[i+1]
	y1, y2 := t.Value[i], t.Value[i+1]
	h := (energy - x1) / (x2 - x1)
	return y1 + h*(y2-y1), nil
}

// index returns i such that Energy[i] <= energy <= Energy[i+1], using
// bisection, or -1 when energy is outside the table.
func (t Table) index(energy float64) int {
	n := len(t.Energy)
	if n < 2 || math.IsNaN(energy) || energy < t.Energy[0] || energy > t.Energy[n-1] {
		return -1
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if energy >= t.Energy[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
