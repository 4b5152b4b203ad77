package quad

import (
	"errors"
	"math"
)

// Func is a one-dimensional integrand. It may be called at any point of the
// integration interval, in any order.
type Func func(x float64) float64

// Workspace holds the subintervals of one adaptive integration. It can be
// reused by consecutive integrations but not shared by concurrent ones.
type Workspace struct {
	limit int
	segs  []segment
}

// NewWorkspace allocates room for limit subintervals.
func NewWorkspace(limit int) *Workspace {
	if limit < 1 {
		limit = 1
	}
	return &Workspace{limit: limit, segs: make([]segment, 0, limit)}
}

// Limit returns the maximum number of subintervals.
func (w *Workspace) Limit() int { return w.limit }

// Intervals returns how many subintervals the last integration used.
func (w *Workspace) Intervals() int { return len(w.segs) }

func (w *Workspace) largest() int {
	idx := 0
	for i := 1; i < len(w.segs); i++ {
		if w.segs[i].err > w.segs[idx].err {
			idx = i
		}
	}
	return idx
}

func (w *Workspace) sum() float64 {
	total := 0.0
	for _, s := range w.segs {
		total += s.result
	}
	return total
}

// evaluator integrates [a, b], a subinterval at the given bisection level.
type evaluator func(a, b float64, level int) (segment, error)

func checkTolerance(epsabs, epsrel float64) error {
	if epsabs <= 0 && (epsrel < 50*epsilon || epsrel < 0.5e-28) {
		return fail(StatusBadTol, Estimate{}, "tolerance cannot be achieved with given epsabs and epsrel")
	}
	return nil
}

// adapt bisects the worst subinterval until the total error estimate meets
// the tolerance or a stopping condition is hit.
func (w *Workspace) adapt(initial []segment, epsabs, epsrel float64, limit int, eval evaluator) (Estimate, error) {
	w.segs = append(w.segs[:0], initial...)

	area, errsum := 0.0, 0.0
	for _, s := range initial {
		area += s.result
		errsum += s.err
	}
	tolerance := math.Max(epsabs, epsrel*math.Abs(area))

	refine := errsum > tolerance
	if len(initial) == 1 {
		s := initial[0]
		roundOff := 50 * epsilon * s.resabs
		if s.err <= roundOff && s.err > tolerance {
			return Estimate{area, errsum}, fail(StatusRoundoff, Estimate{area, errsum}, "cannot reach tolerance because of roundoff error on first attempt")
		}
		if (s.err <= tolerance && s.err != s.resasc) || s.err == 0 {
			return Estimate{area, errsum}, nil
		}
		refine = true
	}

	var roundoff1, roundoff2 int
	status := Success
	for refine {
		if len(w.segs) >= limit {
			status = StatusMaxIter
			break
		}

		i := w.largest()
		s := w.segs[i]
		mid := 0.5 * (s.a + s.b)

		left, err := eval(s.a, mid, s.level+1)
		if err != nil {
			return Estimate{area, errsum}, withPartial(err, Estimate{area, errsum})
		}
		right, err := eval(mid, s.b, s.level+1)
		if err != nil {
			return Estimate{area, errsum}, withPartial(err, Estimate{area, errsum})
		}

		area12 := left.result + right.result
		err12 := left.err + right.err
		errsum += err12 - s.err
		area += area12 - s.result

		if left.resasc != left.err && right.resasc != right.err {
			delta := s.result - area12
			if math.Abs(delta) <= 1e-5*math.Abs(area12) && err12 >= 0.99*s.err {
				roundoff1++
			}
			if len(w.segs) >= 10 && err12 > s.err {
				roundoff2++
			}
		}

		w.segs[i] = left
		w.segs = append(w.segs, right)

		tolerance = math.Max(epsabs, epsrel*math.Abs(area))
		refine = errsum > tolerance
		if refine {
			if roundoff1 >= 6 || roundoff2 >= 20 {
				status = StatusRoundoff
				break
			}
			if tooSmall(left.a, right.a, right.b) {
				status = StatusSingular
				break
			}
		}
	}

	est := Estimate{Value: w.sum(), AbsErr: errsum}
	if errsum <= tolerance {
		return est, nil
	}
	switch status {
	case StatusRoundoff:
		return est, fail(status, est, "roundoff error prevents reaching the tolerance")
	case StatusSingular:
		return est, fail(status, est, "extremely small subinterval found")
	default:
		return est, fail(StatusMaxIter, est, "maximum number of subdivisions reached")
	}
}

func tooSmall(a1, a2, b2 float64) bool {
	tmp := (1 + 100*epsilon) * (math.Abs(a2) + 1000*minNorm)
	return math.Abs(a1) <= tmp && math.Abs(b2) <= tmp
}

func withPartial(err error, partial Estimate) error {
	var qe *Error
	if errors.As(err, &qe) {
		qe.Partial = partial
	}
	return err
}

// QAG integrates f over [a, b] with the given Gauss-Kronrod rule, bisecting
// until |result - I| <= max(epsabs, epsrel·|I|) or limit subintervals have
// been used. limit may not exceed the workspace size.
func QAG(f Func, a, b, epsabs, epsrel float64, limit int, r Rule, ws *Workspace) (Estimate, error) {
	rl, ok := r.get()
	if !ok {
		return Estimate{}, fail(StatusInvalid, Estimate{}, "unknown integration rule")
	}
	if ws == nil || limit > ws.limit || limit < 1 {
		return Estimate{}, fail(StatusInvalid, Estimate{}, "iteration limit exceeds available workspace")
	}
	if err := checkTolerance(epsabs, epsrel); err != nil {
		return Estimate{}, err
	}

	eval := func(lo, hi float64, level int) (segment, error) {
		s := rl.apply(lo, hi, plain(f))
		s.level = level
		return s, nil
	}
	first, _ := eval(a, b, 0)
	return ws.adapt([]segment{first}, epsabs, epsrel, limit, eval)
}
