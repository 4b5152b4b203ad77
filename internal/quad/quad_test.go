package quad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleWeightsIntegrateConstants(t *testing.T) {
	for _, r := range []Rule{GaussKronrod15, GaussKronrod21} {
		rl, ok := r.get()
		require.True(t, ok)
		n := len(rl.xgk)

		kronrod := rl.wgk[n-1]
		for j := 0; j < n-1; j++ {
			kronrod += 2 * rl.wgk[j]
		}
		assert.InDelta(t, 2.0, kronrod, 1e-14, "rule %d kronrod weights", r)

		gauss := 0.0
		if n%2 == 0 {
			gauss = rl.wg[n/2-1]
		}
		for j := 0; j < (n-1)/2; j++ {
			gauss += 2 * rl.wg[j]
		}
		assert.InDelta(t, 2.0, gauss, 1e-14, "rule %d gauss weights", r)
	}
}

func TestRulePoints(t *testing.T) {
	assert.Equal(t, 15, GaussKronrod15.Points())
	assert.Equal(t, 21, GaussKronrod21.Points())
	assert.Equal(t, 0, Rule(99).Points())
}

func TestQAG_Polynomials(t *testing.T) {
	ws := NewWorkspace(10)
	for _, r := range []Rule{GaussKronrod15, GaussKronrod21} {
		est, err := QAG(func(x float64) float64 { return x * x * x * x * x }, 0, 2, 1e-10, 1e-10, 10, r, ws)
		require.NoError(t, err)
		assert.InDelta(t, 64.0/6.0, est.Value, 1e-12)
		assert.Equal(t, 1, ws.Intervals())
	}
}

func TestQAG_SmoothAndSingular(t *testing.T) {
	tests := []struct {
		name string
		f    Func
		want float64
	}{
		{"exp", math.Exp, math.E - 1},
		{"sqrt", math.Sqrt, 2.0 / 3.0},
		{"log", func(x float64) float64 {
			if x <= 0 {
				return 0
			}
			return math.Log(x)
		}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := NewWorkspace(100)
			est, err := QAG(tt.f, 0, 1, 0, 1e-10, 100, GaussKronrod21, ws)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, est.Value, 1e-9)
			assert.Less(t, est.AbsErr, 1e-9)
		})
	}
}

func TestQAG_MaxIterations(t *testing.T) {
	f := func(x float64) float64 {
		if x == 0.3 {
			return 0
		}
		return 1 / math.Sqrt(math.Abs(x-0.3))
	}
	ws := NewWorkspace(3)
	_, err := QAG(f, 0, 1, 0, 1e-14, 3, GaussKronrod21, ws)
	require.Error(t, err)
	assert.Equal(t, StatusMaxIter, StatusOf(err))

	var qe *Error
	require.ErrorAs(t, err, &qe)
	assert.NotZero(t, qe.Partial.Value)
}

func TestQAG_InvalidArguments(t *testing.T) {
	ws := NewWorkspace(5)

	_, err := QAG(math.Exp, 0, 1, 1e-8, 1e-8, 10, GaussKronrod21, ws)
	assert.Equal(t, StatusInvalid, StatusOf(err))

	_, err = QAG(math.Exp, 0, 1, 0, 0, 5, GaussKronrod21, ws)
	assert.Equal(t, StatusBadTol, StatusOf(err))

	_, err = QAG(math.Exp, 0, 1, 1e-8, 0, 5, Rule(7), ws)
	assert.Equal(t, StatusInvalid, StatusOf(err))
}

func TestQAWO_AgainstClosedForms(t *testing.T) {
	tests := []struct {
		name   string
		f      Func
		a      float64
		omega  float64
		length float64
		weight Weight
		want   float64
	}{
		{
			name: "x sin", f: func(x float64) float64 { return x },
			omega: 7.5, length: 3, weight: Sine,
			want: (math.Sin(22.5) - 22.5*math.Cos(22.5)) / (7.5 * 7.5),
		},
		{
			name: "x cos", f: func(x float64) float64 { return x },
			omega: 7.5, length: 3, weight: Cosine,
			want: (math.Cos(22.5) + 22.5*math.Sin(22.5) - 1) / (7.5 * 7.5),
		},
		{
			name: "damped cos", f: func(x float64) float64 { return math.Exp(-x / 5) },
			omega: 50, length: 10, weight: Cosine,
			want: func() float64 {
				a, w, l := 0.2, 50.0, 10.0
				return (a + math.Exp(-a*l)*(-a*math.Cos(w*l)+w*math.Sin(w*l))) / (a*a + w*w)
			}(),
		},
		{
			name: "shifted x² sin", f: func(x float64) float64 { return x * x },
			a: 1, omega: 3, length: 2, weight: Sine,
			want: func() float64 {
				prim := func(x float64) float64 {
					return -x*x*math.Cos(3*x)/3 + 2*x*math.Sin(3*x)/9 + 2*math.Cos(3*x)/27
				}
				return prim(3) - prim(1)
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := NewWorkspace(200)
			table := NewOscTable(tt.omega, tt.length, tt.weight, 20)
			est, err := QAWO(tt.f, tt.a, 0, 1e-10, 200, ws, table)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, est.Value, 1e-10)
		})
	}
}

func TestQAWO_TableReuse(t *testing.T) {
	ws := NewWorkspace(100)
	table := NewOscTable(7.5, 3, Cosine, 10)
	f := func(x float64) float64 { return x }

	c, err := QAWO(f, 0, 0, 1e-10, 100, ws, table)
	require.NoError(t, err)

	table.Set(7.5, 3, Sine)
	s, err := QAWO(f, 0, 0, 1e-10, 100, ws, table)
	require.NoError(t, err)

	assert.InDelta(t, (math.Cos(22.5)+22.5*math.Sin(22.5)-1)/56.25, c.Value, 1e-10)
	assert.InDelta(t, (math.Sin(22.5)-22.5*math.Cos(22.5))/56.25, s.Value, 1e-10)
	assert.Equal(t, 10, table.Levels())
	assert.Equal(t, 7.5, table.Omega())
	assert.Equal(t, 3.0, table.Length())
}

func TestQAWO_TableOverflow(t *testing.T) {
	ws := NewWorkspace(200)
	table := NewOscTable(50, 10, Cosine, 2)
	_, err := QAWO(math.Sqrt, 0, 0, 1e-10, 200, ws, table)
	require.Error(t, err)
	assert.Equal(t, StatusTable, StatusOf(err))
}

func TestQAWO_MaxIterations(t *testing.T) {
	ws := NewWorkspace(3)
	table := NewOscTable(50, 10, Sine, 20)
	_, err := QAWO(math.Sqrt, 0, 0, 1e-10, 3, ws, table)
	assert.Equal(t, StatusMaxIter, StatusOf(err))
}

func dampedOscillation(a, w, l float64, weight Weight) float64 {
	e := math.Exp(-a * l)
	if weight == Sine {
		return (w - e*(a*math.Sin(w*l)+w*math.Cos(w*l))) / (a*a + w*w)
	}
	return (a + e*(-a*math.Cos(w*l)+w*math.Sin(w*l))) / (a*a + w*w)
}

func TestQAWO_HighFrequency(t *testing.T) {
	tests := []struct {
		name      string
		decay     float64
		omega     float64
		length    float64
		weight    Weight
		intervals int
	}{
		{"thousands of periods cos", 0.2, 5000, 10, Cosine, 1},
		{"thousands of periods sin", 0.2, 5000, 10, Sine, 1},
		{"sharp decay cos", 200, 30, 1, Cosine, 0},
		{"sharp decay sin", 200, 30, 1, Sine, 0},
		{"negative frequency", 3, -40, 2, Sine, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := NewWorkspace(200)
			table := NewOscTable(tt.omega, tt.length, tt.weight, 20)
			f := func(x float64) float64 { return math.Exp(-tt.decay * x) }
			est, err := QAWO(f, 0, 0, 1e-10, 200, ws, table)
			require.NoError(t, err)
			assert.InDelta(t, dampedOscillation(tt.decay, tt.omega, tt.length, tt.weight), est.Value, 1e-12)
			if tt.intervals > 0 {
				assert.Equal(t, tt.intervals, ws.Intervals())
			}
		})
	}
}

func TestQAWO_DeepTable(t *testing.T) {
	ws := NewWorkspace(100)
	table := NewOscTable(5000, 10, Cosine, 100)
	est, err := QAWO(func(x float64) float64 { return math.Exp(-0.2 * x) }, 0, 0, 1e-10, 100, ws, table)
	require.NoError(t, err)
	assert.InDelta(t, dampedOscillation(0.2, 5000, 10, Cosine), est.Value, 1e-12)
}

func TestQAWO_NonFiniteFrequency(t *testing.T) {
	ws := NewWorkspace(100)
	for _, omega := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		table := NewOscTable(omega, 10, Cosine, 100)
		est, err := QAWO(math.Exp, 0, 1e-8, 1e-8, 100, ws, table)
		assert.Equal(t, StatusInvalid, StatusOf(err))
		assert.Equal(t, Estimate{}, est)
	}
}

func TestChebMoments(t *testing.T) {
	// Both moment methods hold at the switch-over phase.
	for _, p := range []float64{24.5, 30, -50, 100} {
		rec := recurrenceMoments(p)
		dir := directMoments(p)
		for k := range rec {
			assert.InDelta(t, dir[k], rec[k], 1e-13, "p=%v k=%d", p, k)
		}
	}

	// T_0 and T_1 moments in closed form.
	m := chebMoments(5)
	assert.InDelta(t, 2*math.Sin(5)/5, m[0], 1e-14)
	assert.InDelta(t, 2*(math.Sin(5)-5*math.Cos(5))/25, m[1], 1e-14)
}

func TestOscTableSetKeepsMoments(t *testing.T) {
	table := NewOscTable(50, 10, Cosine, 5)
	before := table.moments[0]
	table.Set(50, 10, Sine)
	assert.Equal(t, before, table.moments[0])

	table.Set(60, 10, Sine)
	assert.NotEqual(t, before, table.moments[0])
	assert.Equal(t, 60.0, table.Omega())
}

func TestQAWO_MissingTable(t *testing.T) {
	_, err := QAWO(math.Exp, 0, 1e-8, 0, 10, NewWorkspace(10), nil)
	assert.Equal(t, StatusInvalid, StatusOf(err))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "table overflow in internal iterations", StatusTable.String())
	assert.Equal(t, "status 99", Status(99).String())
	assert.Equal(t, Success, StatusOf(nil))
}
