package magnet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrBadGrid is returned for volumes that do not form a regular mesh.
var ErrBadGrid = errors.New("irregular field grid")

// Volume is a field sampled on a regular mesh. Lookups use trilinear
// interpolation and return zero outside the mesh.
type Volume struct {
	Origin     Vector // lowest mesh corner
	Step       Vector // mesh spacing
	NX, NY, NZ int
	field      []Vector
}

// NewVolume allocates a zero field mesh with n points per axis.
func NewVolume(origin, step Vector, nx, ny, nz int) (*Volume, error) {
	if nx < 2 || ny < 2 || nz < 2 {
		return nil, fmt.Errorf("%w: need 2 points per axis, got %dx%dx%d", ErrBadGrid, nx, ny, nz)
	}
	if step.X <= 0 || step.Y <= 0 || step.Z <= 0 {
		return nil, fmt.Errorf("%w: non-positive step %v", ErrBadGrid, step)
	}
	return &Volume{
		Origin: origin,
		Step:   step,
		NX:     nx,
		NY:     ny,
		NZ:     nz,
		field:  make([]Vector, nx*ny*nz),
	}, nil
}

func (v *Volume) index(i, j, k int) int { return (i*v.NY+j)*v.NZ + k }

// Set stores the field at mesh node (i, j, k).
func (v *Volume) Set(i, j, k int, b Vector) { v.field[v.index(i, j, k)] = b }

// Node returns the field at mesh node (i, j, k).
func (v *Volume) Node(i, j, k int) Vector { return v.field[v.index(i, j, k)] }

// Position returns the coordinates of mesh node (i, j, k).
func (v *Volume) Position(i, j, k int) Vector {
	return Vector{
		v.Origin.X + float64(i)*v.Step.X,
		v.Origin.Y + float64(j)*v.Step.Y,
		v.Origin.Z + float64(k)*v.Step.Z,
	}
}

// Max returns the highest mesh corner.
func (v *Volume) Max() Vector { return v.Position(v.NX-1, v.NY-1, v.NZ-1) }

// Contains reports whether p lies inside the mesh, boundary included up to
// a rounding tolerance of 1e-9 mesh steps.
func (v *Volume) Contains(p Vector) bool {
	lo, hi := v.Origin, v.Max()
	tol := v.Step.Scale(1e-9)
	return p.X >= lo.X-tol.X && p.X <= hi.X+tol.X &&
		p.Y >= lo.Y-tol.Y && p.Y <= hi.Y+tol.Y &&
		p.Z >= lo.Z-tol.Z && p.Z <= hi.Z+tol.Z
}

// Field returns the interpolated field at p.
func (v *Volume) Field(p Vector) Vector {
	if !v.Contains(p) {
		return Vector{}
	}
	i, fx := cell((p.X-v.Origin.X)/v.Step.X, v.NX)
	j, fy := cell((p.Y-v.Origin.Y)/v.Step.Y, v.NY)
	k, fz := cell((p.Z-v.Origin.Z)/v.Step.Z, v.NZ)

	lerp := func(a, b Vector, t float64) Vector { return a.Add(b.Sub(a).Scale(t)) }
	c00 := lerp(v.Node(i, j, k), v.Node(i+1, j, k), fx)
	c10 := lerp(v.Node(i, j+1, k), v.Node(i+1, j+1, k), fx)
	c01 := lerp(v.Node(i, j, k+1), v.Node(i+1, j, k+1), fx)
	c11 := lerp(v.Node(i, j+1, k+1), v.Node(i+1, j+1, k+1), fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

// cell splits a fractional mesh coordinate into a cell index in [0, n-2]
// and the offset inside that cell.
func cell(u float64, n int) (int, float64) {
	i := int(math.Floor(u))
	if i > n-2 {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	return i, u - float64(i)
}

// ReadVolume parses a whitespace separated table with one mesh node per
// line: x y z Bx By Bz. Blank lines and lines starting with # are ignored.
// Nodes may come in any order but must cover a regular mesh exactly.
func ReadVolume(r io.Reader) (*Volume, error) {
	type row struct{ p, b Vector }
	var rows []row
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 6 {
			return nil, fmt.Errorf("field map line %d: want 6 columns, got %d", line, len(fields))
		}
		var vals [6]float64
		for c, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("field map line %d: %w", line, err)
			}
			vals[c] = x
		}
		rows = append(rows, row{Vector{vals[0], vals[1], vals[2]}, Vector{vals[3], vals[4], vals[5]}})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read field map: %w", err)
	}

	axis := func(get func(Vector) float64) ([]float64, error) {
		seen := map[float64]bool{}
		var xs []float64
		for _, r := range rows {
			x := get(r.p)
			if !seen[x] {
				seen[x] = true
				xs = append(xs, x)
			}
		}
		sort.Float64s(xs)
		if len(xs) < 2 {
			return nil, fmt.Errorf("%w: axis with %d distinct coordinates", ErrBadGrid, len(xs))
		}
		step := xs[1] - xs[0]
		for i := 2; i < len(xs); i++ {
			if math.Abs(xs[i]-xs[i-1]-step) > 1e-6*step {
				return nil, fmt.Errorf("%w: uneven spacing at %g", ErrBadGrid, xs[i])
			}
		}
		return xs, nil
	}
	xs, err := axis(func(p Vector) float64 { return p.X })
	if err != nil {
		return nil, err
	}
	ys, err := axis(func(p Vector) float64 { return p.Y })
	if err != nil {
		return nil, err
	}
	zs, err := axis(func(p Vector) float64 { return p.Z })
	if err != nil {
		return nil, err
	}
	if len(rows) != len(xs)*len(ys)*len(zs) {
		return nil, fmt.Errorf("%w: %d nodes for a %dx%dx%d mesh", ErrBadGrid, len(rows), len(xs), len(ys), len(zs))
	}

	v, err := NewVolume(Vector{xs[0], ys[0], zs[0]}, Vector{xs[1] - xs[0], ys[1] - ys[0], zs[1] - zs[0]}, len(xs), len(ys), len(zs))
	if err != nil {
		return nil, err
	}
	seen := make([]bool, len(v.field))
	for _, r := range rows {
		i := int(math.Round((r.p.X - v.Origin.X) / v.Step.X))
		j := int(math.Round((r.p.Y - v.Origin.Y) / v.Step.Y))
		k := int(math.Round((r.p.Z - v.Origin.Z) / v.Step.Z))
		idx := v.index(i, j, k)
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate node at %v", ErrBadGrid, r.p)
		}
		seen[idx] = true
		v.field[idx] = r.b
	}
	return v, nil
}
