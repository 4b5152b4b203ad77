package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeslaMeter(t *testing.T) {
	assert.InDelta(t, 0.98999524, TeslaMeter, 1e-8)
}

func TestBLHalfSquared(t *testing.T) {
	// CAST-like magnet: 9 T over 9.26 m.
	assert.InEpsilon(t, 1.7018e-17, BLHalfSquared(9, 9260), 1e-3)

	bl := BL(2, 10000)
	assert.InEpsilon(t, bl*bl/4, BLHalfSquared(2, 10000), 1e-12)
	assert.Zero(t, BLHalfSquared(0, 10000))

	// Quadratic in both arguments.
	assert.InEpsilon(t, 4*BLHalfSquared(1, 1), BLHalfSquared(2, 1), 1e-12)
	assert.InEpsilon(t, 4*BLHalfSquared(1, 1), BLHalfSquared(1, 2), 1e-12)
}

func TestConversions(t *testing.T) {
	assert.InDelta(t, PhMeterIneV, LengthIneV(1000), 1e-6)
	assert.InDelta(t, 100/PhMeterIneV, InverseCentimeterToEV(1), 1e-18)
	assert.InDelta(t, PhMeterIneV*1e-3, ElectronVoltToInverseMillimeter(1), 1e-9)

	// A phase q·l must not depend on the length unit it is computed in.
	q, lmm := 1.3e-6, 4567.0
	assert.InEpsilon(t, q*LengthIneV(lmm), ElectronVoltToInverseMillimeter(q)*lmm, 1e-12)
}

func TestSquaredMagnitude(t *testing.T) {
	assert.Equal(t, 25.0, SquaredMagnitude(complex(3, 4)))
	assert.Zero(t, SquaredMagnitude(0))
}

func TestRelative(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"equal", 2, 2, 0},
		{"both zero", 0, 0, 0},
		{"one zero", 0, 5, 1},
		{"ten percent", 10, 9, 0.1},
		{"sign flip", -1, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Relative(tt.a, tt.b), 1e-15)
		})
	}
	assert.False(t, math.IsNaN(Relative(0, 0)))
}
