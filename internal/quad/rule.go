package quad

import "math"

// Rule selects the Gauss-Kronrod pair used on each subinterval.
type Rule int

const (
	GaussKronrod15 Rule = iota + 1 // 7-point Gauss, 15-point Kronrod
	GaussKronrod21                 // 10-point Gauss, 21-point Kronrod
)

const (
	epsilon = 2.220446049250313e-16
	minNorm = 2.2250738585072014e-308
)

// maxNodes is the number of stored Kronrod abscissae of the largest rule.
const maxNodes = 11

// rule holds the positive Kronrod abscissae (Gauss points at odd indices,
// the center last), their weights and the Gauss weights.
type rule struct {
	xgk []float64
	wgk []float64
	wg  []float64
}

var gk15 = &rule{
	xgk: []float64{
		0.991455371120812639206854697526329,
		0.949107912342758524526189684047851,
		0.864864423359769072789712788640926,
		0.741531185599394439863864773280788,
		0.586087235467691130294144845693013,
		0.405845151377397166906606412076961,
		0.207784955007898467600689403773245,
		0.000000000000000000000000000000000,
	},
	wgk: []float64{
		0.022935322010529224963732008058970,
		0.063092092629978553290700663189204,
		0.104790010322250183839876322541518,
		0.140653259715525918745189590510238,
		0.169004726639267902826583426598550,
		0.190350578064785409913256402421014,
		0.204432940075298892414161999234649,
		0.209482141084727828012999174891714,
	},
	wg: []float64{
		0.129484966168869693270611432679082,
		0.279705391489276667901467771423780,
		0.381830050505118944950369775488975,
		0.417959183673469387755102040816327,
	},
}

var gk21 = &rule{
	xgk: []float64{
		0.995657163025808080735527280689003,
		0.973906528517171720077964012084452,
		0.930157491355708226001207180059508,
		0.865063366688984510732096688423493,
		0.780817726586416897063717578345042,
		0.679409568299024406234327365114874,
		0.562757134668604683339000099272694,
		0.433395394129247190799265943165784,
		0.294392862701460198131126603103866,
		0.148874338981631210884826001129720,
		0.000000000000000000000000000000000,
	},
	wgk: []float64{
		0.011694638867371874278064396062192,
		0.032558162307964727478818972459390,
		0.054755896574351996031381300244580,
		0.075039674810919952767043140916190,
		0.093125454583697605535065465083366,
		0.109387158802297641899210590325805,
		0.123491976262065851077208980029535,
		0.134709217311473325928054001771707,
		0.142775938577060080797094273138717,
		0.147739104901338491374841515972068,
		0.149445554002916905664936468389821,
	},
	wg: []float64{
		0.066671344308688137593568809893332,
		0.149451349150580593145776339657697,
		0.219086362515982043995534934228163,
		0.269266719309996355091226921569469,
		0.295524224714752870173892994651338,
	},
}

func (r Rule) get() (*rule, bool) {
	switch r {
	case GaussKronrod15:
		return gk15, true
	case GaussKronrod21:
		return gk21, true
	}
	return nil, false
}

// Points returns the number of integrand evaluations per subinterval.
func (r Rule) Points() int {
	rl, ok := r.get()
	if !ok {
		return 0
	}
	return 2*len(rl.xgk) - 1
}

// segment is one subinterval together with its rule estimates.
type segment struct {
	a, b   float64
	result float64
	err    float64
	resabs float64
	resasc float64
	level  int
}

// sampler returns the integrand at center-x and center+x, where x is the
// k-th abscissa scaled to the subinterval.
type sampler func(k int, center, x float64) (lo, hi float64)

func plain(f Func) sampler {
	return func(_ int, center, x float64) (float64, float64) {
		if x == 0 {
			v := f(center)
			return v, v
		}
		return f(center - x), f(center + x)
	}
}

// apply evaluates the rule on [a, b].
func (r *rule) apply(a, b float64, sample sampler) segment {
	n := len(r.xgk)
	center := 0.5 * (a + b)
	half := 0.5 * (b - a)
	absHalf := math.Abs(half)

	fc, _ := sample(n-1, center, 0)
	resg := 0.0
	resk := fc * r.wgk[n-1]
	resabs := math.Abs(resk)
	if n%2 == 0 {
		resg = fc * r.wg[n/2-1]
	}

	var fv1, fv2 [maxNodes]float64
	for j := 0; j < (n-1)/2; j++ {
		k := 2*j + 1
		f1, f2 := sample(k, center, half*r.xgk[k])
		sum := f1 + f2
		resg += r.wg[j] * sum
		resk += r.wgk[k] * sum
		resabs += r.wgk[k] * (math.Abs(f1) + math.Abs(f2))
		fv1[k], fv2[k] = f1, f2
	}
	for j := 0; j < n/2; j++ {
		k := 2 * j
		f1, f2 := sample(k, center, half*r.xgk[k])
		resk += r.wgk[k] * (f1 + f2)
		resabs += r.wgk[k] * (math.Abs(f1) + math.Abs(f2))
		fv1[k], fv2[k] = f1, f2
	}

	mean := 0.5 * resk
	resasc := r.wgk[n-1] * math.Abs(fc-mean)
	for j := 0; j < n-1; j++ {
		resasc += r.wgk[j] * (math.Abs(fv1[j]-mean) + math.Abs(fv2[j]-mean))
	}

	diff := (resk - resg) * half
	resk *= half
	resabs *= absHalf
	resasc *= absHalf

	return segment{
		a:      a,
		b:      b,
		result: resk,
		err:    rescaleError(diff, resabs, resasc),
		resabs: resabs,
		resasc: resasc,
	}
}

func rescaleError(err, resabs, resasc float64) float64 {
	err = math.Abs(err)
	if resasc != 0 && err != 0 {
		scale := math.Pow(200*err/resasc, 1.5)
		if scale < 1 {
			err = resasc * scale
		} else {
			err = resasc
		}
	}
	if resabs > minNorm/(50*epsilon) {
		if floor := 50 * epsilon * resabs; floor > err {
			err = floor
		}
	}
	return err
}
