// Package magnet provides magnetic field maps: regular 3-D field volumes,
// straight particle tracks through them and synthetic magnet generation.
// Positions are in mm and fields in T.
package magnet

import (
	"fmt"
	"math"
)

// Vector is a 3-D position or field vector.
type Vector struct {
	X, Y, Z float64
}

// Add returns v+w.
func (v Vector) Add(w Vector) Vector { return Vector{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v-w.
func (v Vector) Sub(w Vector) Vector { return Vector{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Scale returns a·v.
func (v Vector) Scale(a float64) Vector { return Vector{a * v.X, a * v.Y, a * v.Z} }

// Dot returns the scalar product.
func (v Vector) Dot(w Vector) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Norm returns the Euclidean length.
func (v Vector) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Unit returns v scaled to length one, or the zero vector.
func (v Vector) Unit() Vector {
	n := v.Norm()
	if n == 0 {
		return Vector{}
	}
	return v.Scale(1 / n)
}

// Transverse returns the magnitude of the component of v orthogonal to the
// unit vector dir.
func (v Vector) Transverse(dir Vector) float64 {
	return v.Sub(dir.Scale(v.Dot(dir))).Norm()
}

func (v Vector) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}
