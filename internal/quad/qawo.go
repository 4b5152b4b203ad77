package quad

import "math"

// Weight is the oscillatory factor applied to the integrand by QAWO.
type Weight int

const (
	Cosine Weight = iota // cos(ωx)
	Sine                 // sin(ωx)
)

func (w Weight) String() string {
	if w == Sine {
		return "sine"
	}
	return "cosine"
}

const (
	// chebDegree is the degree of the Chebyshev interpolant used on
	// high-frequency subintervals. Its error is estimated against the
	// interpolant of half the degree on every other node.
	chebDegree = 24

	// maxLowPhase bounds ω·h, h being the half-width, up to which a
	// subinterval is integrated by the Kronrod rule on f·w directly.
	maxLowPhase = 2

	// Above this |ω·h| the moments come from the forward recurrence, which
	// is stable once the phase exceeds the interpolant degree.
	recurrencePhase = 24

	directMomentPieces = 32
)

// chebCos[i] is cos(iπ/chebDegree).
var chebCos = func() (c [2 * chebDegree]float64) {
	for i := range c {
		c[i] = math.Cos(float64(i) * math.Pi / chebDegree)
	}
	return c
}()

type momentSet [chebDegree + 1]float64

// OscTable caches the Chebyshev moments of cos and sin for every bisection
// level of an interval of the given length. Subintervals deeper than the
// table make QAWO fail with StatusTable.
type OscTable struct {
	omega   float64
	length  float64
	weight  Weight
	levels  int
	filled  bool
	moments []momentSet
}

// NewOscTable allocates a table with the given number of levels and fills it
// for ω, the interval length and the weight.
func NewOscTable(omega, length float64, weight Weight, levels int) *OscTable {
	if levels < 1 {
		levels = 1
	}
	t := &OscTable{levels: levels, moments: make([]momentSet, levels)}
	t.Set(omega, length, weight)
	return t
}

// Set refills the table for new parameters, keeping its allocation. Changing
// only the weight keeps the moments, which serve both weights.
func (t *OscTable) Set(omega, length float64, weight Weight) {
	t.weight = weight
	if t.filled && omega == t.omega && length == t.length {
		return
	}
	t.omega = omega
	t.length = length
	t.filled = true
	if !t.finite() {
		return
	}
	for l := range t.moments {
		if t.lowPhase(l) {
			break
		}
		t.moments[l] = chebMoments(t.phase(l))
	}
}

// phase returns ω·h for the subintervals at the given bisection level.
func (t *OscTable) phase(level int) float64 {
	return t.omega * t.length / math.Ldexp(1, level+1)
}

func (t *OscTable) lowPhase(level int) bool {
	return math.Abs(t.phase(level)) <= maxLowPhase
}

// Levels returns the number of bisection levels the table covers.
func (t *OscTable) Levels() int { return t.levels }

// Omega returns the angular frequency of the weight.
func (t *OscTable) Omega() float64 { return t.omega }

// Length returns the length of the integration interval.
func (t *OscTable) Length() float64 { return t.length }

func (t *OscTable) finite() bool {
	return !math.IsInf(t.omega, 0) && !math.IsNaN(t.omega) &&
		!math.IsInf(t.length, 0) && !math.IsNaN(t.length)
}

// chebMoments returns ∫ T_k(x)·cos(px) dx over [-1, 1] at even k and
// ∫ T_k(x)·sin(px) dx at odd k. The other combinations vanish by symmetry.
func chebMoments(p float64) momentSet {
	if math.Abs(p) > recurrencePhase {
		return recurrenceMoments(p)
	}
	return directMoments(p)
}

// recurrenceMoments runs the recurrence obtained by integrating
// 2T_k = T'_{k+1}/(k+1) - T'_{k-1}/(k-1) by parts against e^{ipx}.
func recurrenceMoments(p float64) momentSet {
	s, c := math.Sincos(p)
	p2 := p * p

	var mk [chebDegree + 1]complex128
	mk[0] = complex(2*s/p, 0)
	mk[1] = complex(0, 2*(s-p*c)/p2)
	mk[2] = complex(2*s/p+8*c/p2-8*s/(p2*p), 0)

	ip := complex(0, p)
	for k := 2; k < chebDegree; k++ {
		boundary := complex(2*c, 0)
		if k%2 == 1 {
			boundary = complex(0, 2*s)
		}
		fk := float64(k)
		mk[k+1] = complex(fk+1, 0)/ip*(-2*boundary/complex(fk*fk-1, 0)-2*mk[k]) +
			complex((fk+1)/(fk-1), 0)*mk[k-1]
	}

	var m momentSet
	for k, v := range mk {
		if k%2 == 0 {
			m[k] = real(v)
		} else {
			m[k] = imag(v)
		}
	}
	return m
}

// directMoments integrates each moment with a composite Kronrod rule; at
// |p| ≤ recurrencePhase every piece spans only a few radians.
func directMoments(p float64) momentSet {
	var m momentSet
	width := 2.0 / directMomentPieces
	for k := range m {
		fk := float64(k)
		g := func(x float64) float64 {
			tk := math.Cos(fk * math.Acos(math.Max(-1, math.Min(1, x))))
			if k%2 == 0 {
				return tk * math.Cos(p*x)
			}
			return tk * math.Sin(p*x)
		}
		for i := 0; i < directMomentPieces; i++ {
			lo := -1 + float64(i)*width
			m[k] += gk21.apply(lo, lo+width, plain(g)).result
		}
	}
	return m
}

// chebCoefficients interpolates f on [center-half, center+half] at the
// Chebyshev extrema and returns the coefficients, in t = (x-center)/half, of
// the interpolants of degree chebDegree/2 and chebDegree.
func chebCoefficients(f Func, center, half float64) (c12 [chebDegree/2 + 1]float64, c24 [chebDegree + 1]float64) {
	const n, lo = chebDegree, chebDegree / 2
	var fv [n + 1]float64
	for j := range fv {
		fv[j] = f(center + half*chebCos[j])
	}

	for k := 0; k <= n; k++ {
		sum := 0.5 * (fv[0] + fv[n]*chebCos[(n*k)%(2*n)])
		for j := 1; j < n; j++ {
			sum += fv[j] * chebCos[(j*k)%(2*n)]
		}
		c24[k] = sum * 2 / n
	}
	c24[0] *= 0.5
	c24[n] *= 0.5

	for k := 0; k <= lo; k++ {
		sum := 0.5 * (fv[0] + fv[n]*chebCos[(n*k)%(2*n)])
		for j := 1; j < lo; j++ {
			sum += fv[2*j] * chebCos[(2*j*k)%(2*n)]
		}
		c12[k] = sum * 2 / lo
	}
	c12[0] *= 0.5
	c12[lo] *= 0.5
	return c12, c24
}

// clenshawCurtis integrates f·w over [a, b] by integrating the Chebyshev
// interpolants of f exactly against the weight through the level's moments.
func (t *OscTable) clenshawCurtis(f Func, a, b float64, level int) segment {
	center := 0.5 * (a + b)
	half := 0.5 * (b - a)
	c12, c24 := chebCoefficients(f, center, half)
	m := &t.moments[level]

	var r12c, r12s, r24c, r24s, resabs float64
	for k, v := range c12 {
		if k%2 == 0 {
			r12c += v * m[k]
		} else {
			r12s += v * m[k]
		}
	}
	for k, v := range c24 {
		if k%2 == 0 {
			r24c += v * m[k]
		} else {
			r24s += v * m[k]
		}
		resabs += math.Abs(v)
	}
	estCos := math.Abs(r24c - r12c)
	estSin := math.Abs(r24s - r12s)

	sn, cs := math.Sincos(center * t.omega)
	c, s := half*cs, half*sn

	seg := segment{a: a, b: b, resabs: resabs * math.Abs(half), resasc: math.MaxFloat64, level: level}
	if t.weight == Sine {
		seg.result = s*r24c + c*r24s
		seg.err = math.Abs(s*estCos) + math.Abs(c*estSin)
	} else {
		seg.result = c*r24c - s*r24s
		seg.err = math.Abs(c*estCos) + math.Abs(s*estSin)
	}
	return seg
}

// QAWO integrates f(x)·w(ωx) over [a, a+L], where ω, L and w come from the
// table. Subintervals with ω·h above maxLowPhase use the Chebyshev moment
// rule, so a single subinterval can span many periods of the weight; the
// others use the 21-point Kronrod rule on f·w. The interval is bisected
// adaptively as in QAG.
func QAWO(f Func, a, epsabs, epsrel float64, limit int, ws *Workspace, t *OscTable) (Estimate, error) {
	if t == nil {
		return Estimate{}, fail(StatusInvalid, Estimate{}, "missing oscillation table")
	}
	if ws == nil || limit > ws.limit || limit < 1 {
		return Estimate{}, fail(StatusInvalid, Estimate{}, "iteration limit exceeds available workspace")
	}
	if !t.finite() || math.IsInf(a, 0) || math.IsNaN(a) {
		return Estimate{}, fail(StatusInvalid, Estimate{}, "non-finite frequency or interval")
	}
	if err := checkTolerance(epsabs, epsrel); err != nil {
		return Estimate{}, err
	}

	weighted := func(x float64) float64 { return f(x) * math.Cos(t.omega*x) }
	if t.weight == Sine {
		weighted = func(x float64) float64 { return f(x) * math.Sin(t.omega*x) }
	}

	eval := func(lo, hi float64, level int) (segment, error) {
		if level >= t.levels {
			return segment{}, fail(StatusTable, Estimate{}, "table overflow in internal iterations")
		}
		if t.lowPhase(level) {
			s := oscRule.apply(lo, hi, plain(weighted))
			s.level = level
			return s, nil
		}
		return t.clenshawCurtis(f, lo, hi, level), nil
	}

	first, _ := eval(a, a+t.length, 0)
	return ws.adapt([]segment{first}, epsabs, epsrel, limit, eval)
}

// oscRule is the rule used on low-phase oscillatory subintervals.
var oscRule = gk21
