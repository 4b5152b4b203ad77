package axion

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/helioscope/internal/gas"
	"github.com/talgya/helioscope/internal/magnet"
	"github.com/talgya/helioscope/internal/quad"
	"github.com/talgya/helioscope/internal/units"
)

// fixedMedium is a medium with energy independent properties.
type fixedMedium struct {
	mass       float64
	absorption float64
}

func (m fixedMedium) PhotonMass(float64) float64             { return m.mass }
func (m fixedMedium) PhotonAbsorptionLength(float64) float64 { return m.absorption }

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var babyIAXO = Params{Field: 2, Length: 10000, Energy: 4.2}

func TestVacuumZeroMass(t *testing.T) {
	want := units.BLHalfSquared(babyIAXO.Field, babyIAXO.Length)
	for _, gamma := range []float64{0, 0.01, 1, 100} {
		assert.Equal(t, want, TransmissionProbability(babyIAXO, 0, 0, gamma), "gamma %g", gamma)
		assert.Equal(t, want, AbsorptionProbability(babyIAXO, 0, 0, gamma), "gamma %g", gamma)
	}
}

func TestPhaseSignSymmetry(t *testing.T) {
	for _, gamma := range []float64{0, 1e-3, 0.5} {
		a := TransmissionProbability(babyIAXO, 0.3, 0.2, gamma)
		b := TransmissionProbability(babyIAXO, 0.2, 0.3, gamma)
		assert.Equal(t, a, b)

		a = AbsorptionProbability(babyIAXO, 0.3, 0.2, gamma)
		b = AbsorptionProbability(babyIAXO, 0.2, 0.3, gamma)
		assert.Equal(t, a, b)
	}
}

func TestTransmissionDeterministic(t *testing.T) {
	p1 := TransmissionProbability(babyIAXO, 0.1, 0, 0)
	p2 := TransmissionProbability(babyIAXO, 0.1, 0, 0)
	assert.Equal(t, p1, p2)
	assert.InEpsilon(t, 9.705629829152304e-22, p1, 1e-12)
	assert.Less(t, p1, units.BLHalfSquared(2, 10000))
}

func TestResonanceLimits(t *testing.T) {
	bl := units.BLHalfSquared(babyIAXO.Field, babyIAXO.Length)

	// Matched masses without absorption: the coherent limit, not NaN.
	assert.Equal(t, bl, TransmissionProbability(babyIAXO, 0.2, 0.2, 0))
	assert.Zero(t, AbsorptionProbability(babyIAXO, 0.2, 0.2, 0))

	// Matched masses with absorption: (BL/2)²·(1-e^(-ΓL/2))²/(ΓL/2)².
	gamma := 1e-3
	gl := gamma * babyIAXO.Length / 10
	want := bl * math.Pow(1-math.Exp(-gl/2), 2) / (gl * gl / 4)
	assert.InEpsilon(t, want, TransmissionProbability(babyIAXO, 0.2, 0.2, gamma), 1e-12)
	assert.InEpsilon(t, bl*4/gl, AbsorptionProbability(babyIAXO, 0.2, 0.2, gamma), 1e-12)
}

func TestFieldResolvesMedium(t *testing.T) {
	med := fixedMedium{mass: 0.05, absorption: 2e-4}
	f := New(babyIAXO, WithMedium(med), quiet())

	assert.Equal(t, TransmissionProbability(babyIAXO, 0.06, 0.05, 2e-4), f.GammaTransmissionProbability(0.06))
	assert.Equal(t, AbsorptionProbability(babyIAXO, 0.06, 0.05, 2e-4), f.AxionAbsorptionProbability(0.06))

	// Explicit values win over the medium.
	assert.Equal(t, TransmissionProbability(babyIAXO, 0.06, 0.01, 2e-4),
		f.GammaTransmissionProbability(0.06, WithPhotonMass(0.01)))
	assert.Equal(t, TransmissionProbability(babyIAXO, 0.06, 0.05, 0.3),
		f.GammaTransmissionProbability(0.06, WithAbsorption(0.3)))

	f.SetMedium(nil)
	assert.Nil(t, f.Medium())
	assert.Equal(t, TransmissionProbability(babyIAXO, 0.06, 0, 0), f.GammaTransmissionProbability(0.06))
}

func TestFullArgumentCallUpdatesDefaults(t *testing.T) {
	f := New(DefaultParams(), quiet())
	other := Params{Field: 9, Length: 9260, Energy: 3}

	got := f.GammaTransmissionProbabilityAt(other, 0.01)
	assert.Equal(t, other, f.Params())
	assert.Equal(t, got, f.GammaTransmissionProbability(0.01))

	f.AxionAbsorptionProbabilityAt(babyIAXO, 0.01, WithAbsorption(1e-3))
	assert.Equal(t, babyIAXO, f.Params())
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.Error(t, Params{Field: -1, Length: 1, Energy: 1}.Validate())
	assert.Error(t, Params{Field: 1, Length: -1, Energy: 1}.Validate())
	assert.Error(t, Params{Field: 1, Length: 1, Energy: 0}.Validate())
}

func uniformProfile(b float64, n int) []float64 {
	prof := make([]float64, n)
	for i := range prof {
		prof[i] = b
	}
	return prof
}

func TestProfileConvergesToClosedForm(t *testing.T) {
	f := New(babyIAXO, quiet())
	cases := []struct {
		name      string
		ma, mg, g float64
	}{
		{"vacuum", 0.1, 0, 0},
		{"off resonance in gas", 0.12, 0.1, 5e-5},
		{"resonance", 0.1, 0.1, 5e-5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := TransmissionProbability(babyIAXO, tc.ma, tc.mg, tc.g)
			opts := []MassOption{WithPhotonMass(tc.mg), WithAbsorption(tc.g)}

			prev := math.Inf(1)
			for _, n := range []int{11, 101, 1001, 10001} {
				step := babyIAXO.Length / float64(n-1)
				got := f.ProfileProbability(uniformProfile(2, n), step, babyIAXO.Energy, tc.ma, opts...)
				rel := units.Relative(got, want)
				assert.LessOrEqual(t, rel, prev+1e-15, "refining to %d samples", n)
				prev = rel
			}
			assert.Less(t, prev, 1e-4)
		})
	}
}

func TestProfileEdgeCases(t *testing.T) {
	f := New(babyIAXO, quiet())

	assert.Zero(t, f.ProfileProbability(nil, 10, 4.2, 0.1))
	assert.Zero(t, f.ProfileProbability([]float64{2}, 10, 4.2, 0.1))
	assert.Zero(t, f.ProfileProbability([]float64{2, 2}, 0, 4.2, 0.1))
	assert.Zero(t, f.ProfileProbability([]float64{2, 2}, 0, 4.2, 0))
	assert.Zero(t, f.ProfileProbability([]float64{2, 2}, -5, 4.2, 0))

	// Vacuum at zero mass uses the mean field.
	prof := []float64{1, 2, 3}
	assert.Equal(t, units.BLHalfSquared(2, 2000), f.ProfileProbability(prof, 1000, 4.2, 0))
}

func uniformMap(t *testing.T, field, length float64) *magnet.Map {
	t.Helper()
	vol, err := magnet.Generate(magnet.UniformGenConfig(field, length))
	require.NoError(t, err)
	m := magnet.NewMap(vol)
	_, err = m.SetTrack(magnet.Vector{Z: -100}, magnet.Vector{Z: 1})
	require.NoError(t, err)
	return m
}

func TestFieldMapMatchesClosedForm(t *testing.T) {
	fm := uniformMap(t, 2, 10000)

	cases := []struct {
		name   string
		ma     float64
		medium Medium
		regime string
	}{
		{"vacuum zero mass", 0, nil, RegimeResonance},
		{"vacuum", 0.01, nil, RegimeOffResonance},
		{"vacuum heavier", 0.1, nil, RegimeOffResonance},
		{"gas resonance", 0.05, fixedMedium{mass: 0.05, absorption: 2e-4}, RegimeResonance},
		{"gas off resonance", 0.07, fixedMedium{mass: 0.05, absorption: 2e-4}, RegimeOffResonance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := New(babyIAXO, WithFieldMap(fm), WithMedium(tc.medium), quiet())
			est, err := f.FieldMapProbability(babyIAXO.Energy, tc.ma, DefaultQuadrature())
			require.NoError(t, err)

			var mg, g float64
			if tc.medium != nil {
				mg, g = tc.medium.PhotonMass(0), tc.medium.PhotonAbsorptionLength(0)
			}
			want := TransmissionProbability(babyIAXO, tc.ma, mg, g)
			assert.InEpsilon(t, want, est.Probability, 1e-6)
			assert.GreaterOrEqual(t, est.Error, 0.0)
		})
	}
}

func TestFieldMapHeavyAxions(t *testing.T) {
	fm := uniformMap(t, 2, 10000)

	cases := []struct {
		name   string
		ma     float64
		medium Medium
	}{
		{"half eV", 0.5, nil},
		{"one eV", 1, nil},
		{"three eV", 3, nil},
		{"ten eV", 10, nil},
		{"half eV in gas", 0.5, fixedMedium{absorption: 2e-4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := New(babyIAXO, WithFieldMap(fm), WithMedium(tc.medium), quiet())
			est, err := f.FieldMapProbability(babyIAXO.Energy, tc.ma, DefaultQuadrature())
			require.NoError(t, err)

			var g float64
			if tc.medium != nil {
				g = tc.medium.PhotonAbsorptionLength(0)
			}
			want := TransmissionProbability(babyIAXO, tc.ma, 0, g)
			assert.InEpsilon(t, want, est.Probability, 1e-6)
		})
	}
}

func TestFieldMapResonanceContinuity(t *testing.T) {
	f := New(babyIAXO, WithFieldMap(uniformMap(t, 2, 10000)), quiet())
	cfg := DefaultQuadrature()

	atResonance, err := f.FieldMapProbability(babyIAXO.Energy, 0, cfg)
	require.NoError(t, err)
	nearResonance, err := f.FieldMapProbability(babyIAXO.Energy, 1e-4, cfg)
	require.NoError(t, err)

	assert.InEpsilon(t, atResonance.Probability, nearResonance.Probability, cfg.Accuracy)
}

func TestFieldMapMatchesSampledProfile(t *testing.T) {
	fm := uniformMap(t, 2, 10000)
	f := New(babyIAXO, WithFieldMap(fm), quiet())

	est, err := f.FieldMapProbability(babyIAXO.Energy, 0.05, DefaultQuadrature())
	require.NoError(t, err)

	prof := fm.TransversalAlongPath(magnet.Vector{}, magnet.Vector{Z: 10000}, 1)
	got := f.ProfileProbability(prof, 1, babyIAXO.Energy, 0.05)
	assert.InEpsilon(t, est.Probability, got, 1e-5)
}

func TestFieldMapMissingCollaborators(t *testing.T) {
	var buf bytes.Buffer
	f := New(babyIAXO, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	est, err := f.FieldMapProbability(4.2, 0.01, DefaultQuadrature())
	assert.ErrorIs(t, err, ErrNoFieldMap)
	assert.Equal(t, Estimate{}, est)
	assert.Contains(t, buf.String(), "requires a magnetic field map")

	vol, err := magnet.Generate(magnet.UniformGenConfig(2, 1000))
	require.NoError(t, err)
	missed := magnet.NewMap(vol)
	_, _ = missed.SetTrack(magnet.Vector{X: 1e6}, magnet.Vector{Z: 1})
	f.SetFieldMap(missed)

	est, err = f.FieldMapProbability(4.2, 0.01, DefaultQuadrature())
	assert.ErrorIs(t, err, ErrEmptyTrack)
	assert.Equal(t, Estimate{}, est)
}

func TestFieldMapQuadratureFailure(t *testing.T) {
	f := New(babyIAXO, WithFieldMap(uniformMap(t, 2, 10000)), quiet())

	cfg := DefaultQuadrature()
	cfg.Accuracy = 0
	est, err := f.FieldMapProbability(babyIAXO.Energy, 0.1, cfg)
	assert.Equal(t, Estimate{}, est)

	var qe *QuadratureError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, RegimeOffResonance, qe.Regime)
	assert.Equal(t, quad.StatusBadTol, qe.Status)
	assert.Contains(t, qe.Error(), "cosine part")

	cfg = DefaultQuadrature()
	cfg.Intervals = 0
	_, err = f.FieldMapProbability(babyIAXO.Energy, 0, cfg)
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, RegimeResonance, qe.Regime)
	assert.Equal(t, quad.StatusInvalid, qe.Status)
}

func TestFWHMVacuum(t *testing.T) {
	f := New(babyIAXO, quiet())
	w, err := f.GammaTransmissionFWHM(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.044, w, 1e-9)

	// Half the width sits below half maximum, one step less above it.
	pmax := f.GammaTransmissionProbability(0)
	assert.LessOrEqual(t, f.GammaTransmissionProbability(w/2), pmax/2)
	assert.Greater(t, f.GammaTransmissionProbability(w/2-DefaultFWHMStep), pmax/2)
}

func TestFWHMNarrowsInGas(t *testing.T) {
	f := New(babyIAXO, quiet())
	vacuum, err := f.GammaTransmissionFWHM(0)
	require.NoError(t, err)

	he, err := gas.New(gas.DefaultCatalog(), "He", 1e-4)
	require.NoError(t, err)
	f.SetMedium(he)
	inGas, err := f.GammaTransmissionFWHM(0)
	require.NoError(t, err)
	assert.Less(t, inGas, vacuum)
	assert.Greater(t, inGas, 0.0)
}

func TestFWHMDiverges(t *testing.T) {
	// A 10 µm long absorbing magnet: the phase stays small up to 10 eV.
	p := Params{Field: 2, Length: 0.01, Energy: 4.2}
	f := New(p, WithMedium(fixedMedium{absorption: 1}), quiet())

	w, err := f.GammaTransmissionFWHM(0)
	assert.ErrorIs(t, err, ErrFWHMDiverged)
	assert.Equal(t, MaxFWHMMass, w)
}

func TestFWHMDegenerate(t *testing.T) {
	f := New(Params{Field: 0, Length: 10000, Energy: 4.2}, quiet())
	w, err := f.GammaTransmissionFWHM(0.002)
	assert.ErrorIs(t, err, ErrFWHMDegenerate)
	assert.Equal(t, 0.004, w)
}

func TestMassDensityScanning(t *testing.T) {
	previous := fixedMedium{mass: 0.3, absorption: 1e-3}
	f := New(babyIAXO, WithMedium(previous), quiet())

	points, err := f.MassDensityScanning(DefaultScanGas, DefaultScanMaxMass, DefaultRampDown)
	require.NoError(t, err)
	require.Greater(t, len(points), 2)

	assert.InDelta(t, 0.022, points[0].Mass, 1e-9)
	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Mass, points[i-1].Mass, "point %d", i)
		assert.Greater(t, points[i].Density, points[i-1].Density, "point %d", i)
	}
	assert.GreaterOrEqual(t, points[len(points)-1].Mass, DefaultScanMaxMass)
	assert.Less(t, points[len(points)-2].Mass, DefaultScanMaxMass)

	// Each density reproduces its mass.
	for _, p := range points {
		he, err := gas.New(gas.DefaultCatalog(), "He", p.Density)
		require.NoError(t, err)
		assert.InEpsilon(t, p.Mass, he.PhotonMass(babyIAXO.Energy), 1e-9)
	}

	assert.Equal(t, Medium(previous), f.Medium())
	assert.Equal(t, babyIAXO, f.Params())
}

func TestMassDensityScanningSinglePoint(t *testing.T) {
	f := New(babyIAXO, quiet())
	points, err := f.MassDensityScanning("Ar", 0.01, DefaultRampDown)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Nil(t, f.Medium())
}

func TestMassDensityScanningRestoresOnError(t *testing.T) {
	previous := fixedMedium{mass: 0.2}
	f := New(babyIAXO, WithMedium(previous), quiet())

	_, err := f.MassDensityScanning("Kr", 0.15, 5)
	assert.ErrorIs(t, err, gas.ErrUnknownGas)
	assert.Equal(t, Medium(previous), f.Medium())

	failing := func(string) (ScanGas, error) { return nil, errors.New("no gas today") }
	f = New(babyIAXO, WithMedium(previous), WithGasFactory(failing), quiet())
	_, err = f.MassDensityScanning("He", 0.15, 5)
	assert.Error(t, err)
	assert.Equal(t, Medium(previous), f.Medium())

	_, err = f.MassDensityScanning("He", math.Inf(1), 5)
	assert.ErrorIs(t, err, ErrInvalidScan)
	_, err = f.MassDensityScanning("He", 0.15, -1)
	assert.ErrorIs(t, err, ErrInvalidScan)
}
