package axion

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/talgya/helioscope/internal/quad"
	"github.com/talgya/helioscope/internal/units"
)

var (
	// ErrNoFieldMap is returned by FieldMapProbability when no map is bound.
	ErrNoFieldMap = errors.New("no magnetic field map bound")

	// ErrEmptyTrack is returned by FieldMapProbability when the bound track
	// has no length inside the map.
	ErrEmptyTrack = errors.New("field map track has zero length")
)

// Integration regimes of FieldMapProbability.
const (
	RegimeResonance    = "resonance"
	RegimeOffResonance = "off-resonance"
)

// Quadrature controls the adaptive integration of FieldMapProbability.
type Quadrature struct {
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`   // absolute and relative tolerance
	Intervals int     `json:"intervals" yaml:"intervals"` // subinterval limit
	Levels    int     `json:"levels" yaml:"levels"`       // oscillatory table depth
}

// DefaultQuadrature returns accuracy 0.1 with 100 subintervals and 20
// oscillation table levels.
func DefaultQuadrature() Quadrature {
	return Quadrature{Accuracy: 0.1, Intervals: 100, Levels: 20}
}

// Estimate is a probability and its absolute error.
type Estimate struct {
	Probability float64 `json:"probability"`
	Error       float64 `json:"error"`
}

// QuadratureError reports a field map integration that failed to converge.
type QuadratureError struct {
	Regime string
	Status quad.Status
	Err    error
}

func (e *QuadratureError) Error() string {
	return fmt.Sprintf("%s integration failed (status %d): %v", e.Regime, int(e.Status), e.Err)
}

func (e *QuadratureError) Unwrap() error { return e.Err }

// FieldMapProbability integrates the conversion amplitude along the track
// bound to the field map, for axion energy Ea (keV) and mass ma (eV). The
// medium, if any, is homogeneous along the track.
//
// A missing map or an empty track gives a zero Estimate with ErrNoFieldMap
// or ErrEmptyTrack. A quadrature failure gives a zero Estimate with a
// *QuadratureError carrying the status code.
func (f *Field) FieldMapProbability(Ea, ma float64, cfg Quadrature) (Estimate, error) {
	if f.fieldMap == nil {
		f.logger.Error("field map probability requires a magnetic field map; bind one with SetFieldMap")
		return Estimate{}, ErrNoFieldMap
	}
	length := f.fieldMap.TrackLength()
	if length <= 0 {
		return Estimate{}, ErrEmptyTrack
	}

	var mg, gamma float64
	if f.medium != nil {
		mg = f.medium.PhotonMass(Ea)
		gamma = f.medium.PhotonAbsorptionLength(Ea) * units.MillimeterToCentimeter // mm⁻¹
	}
	q := units.ElectronVoltToInverseMillimeter((ma*ma - mg*mg) / (2 * Ea * units.KeVToEV)) // mm⁻¹

	fm := f.fieldMap
	var evals atomic.Int64
	integrand := func(s float64) float64 {
		evals.Add(1)
		return fm.TransversalField(s) * math.Exp(0.5*gamma*s)
	}

	regime := RegimeOffResonance
	if q == 0 {
		regime = RegimeResonance
	}

	start := time.Now()
	var est Estimate
	var err error
	if q == 0 {
		est, err = resonanceIntegral(integrand, length, gamma, cfg)
	} else {
		est, err = offResonanceIntegral(integrand, length, q, gamma, cfg)
	}
	elapsed := time.Since(start)

	fieldMapEvaluations.Add(float64(evals.Load()))
	fieldMapDuration.WithLabelValues(regime).Observe(elapsed.Seconds())

	if err != nil {
		fieldMapIntegrations.WithLabelValues(regime, "failed").Inc()
		qe := &QuadratureError{Regime: regime, Status: quad.StatusOf(err), Err: err}
		f.logger.Error("field map integration failed",
			"regime", regime, "status", int(qe.Status), "error", err)
		return Estimate{}, qe
	}
	fieldMapIntegrations.WithLabelValues(regime, "ok").Inc()

	f.logger.Debug("field map probability",
		"regime", regime, "energy_keV", Ea, "axion_mass_eV", ma, "photon_mass_eV", mg,
		"q_mm-1", q, "absorption_mm-1", gamma, "track_mm", length,
		"accuracy", cfg.Accuracy, "intervals", cfg.Intervals, "levels", cfg.Levels,
		"probability", est.Probability, "error", est.Error,
		"samples", evals.Load(), "elapsed", elapsed)
	return est, nil
}

// prefactor is e^(−Γ·L)·(BL/2)² for unit field and length, converting the
// squared T·mm amplitude to a probability.
func prefactor(gamma, length float64) float64 {
	return math.Exp(-gamma*length) * units.BLHalfSquared(1, 1)
}

func resonanceIntegral(fn quad.Func, length, gamma float64, cfg Quadrature) (Estimate, error) {
	ws := quad.NewWorkspace(cfg.Intervals)
	re, err := quad.QAG(fn, 0, length, cfg.Accuracy, cfg.Accuracy, cfg.Intervals, quad.GaussKronrod21, ws)
	if err != nil {
		return Estimate{}, err
	}
	c := prefactor(gamma, length)
	return Estimate{
		Probability: c * re.Value * re.Value,
		Error:       2 * c * re.Value * re.AbsErr,
	}, nil
}

func offResonanceIntegral(fn quad.Func, length, q, gamma float64, cfg Quadrature) (Estimate, error) {
	ws := quad.NewWorkspace(cfg.Intervals)
	table := quad.NewOscTable(q, length, quad.Cosine, cfg.Levels)
	re, err := quad.QAWO(fn, 0, cfg.Accuracy, cfg.Accuracy, cfg.Intervals, ws, table)
	if err != nil {
		return Estimate{}, fmt.Errorf("cosine part: %w", err)
	}

	table.Set(q, length, quad.Sine)
	im, err := quad.QAWO(fn, 0, cfg.Accuracy, cfg.Accuracy, cfg.Intervals, ws, table)
	if err != nil {
		return Estimate{}, fmt.Errorf("sine part: %w", err)
	}

	c := prefactor(gamma, length)
	return Estimate{
		Probability: c * (re.Value*re.Value + im.Value*im.Value),
		Error: 2 * c * math.Sqrt(re.Value*re.Value*re.AbsErr*re.AbsErr+
			im.Value*im.Value*im.AbsErr*im.AbsErr),
	}, nil
}
