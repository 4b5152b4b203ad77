package magnet

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig describes a synthetic dipole magnet: a bore along +z starting at
// z=0 with a vertical (y) field.
type GenConfig struct {
	Field   float64 // Nominal field in T
	Length  float64 // Magnet length in mm
	Radius  float64 // Bore radius in mm; the mesh spans ±Radius in x and y
	Step    float64 // Mesh spacing in mm
	Fringe  float64 // Fringe field decay length at both ends in mm (0 = hard edges)
	Falloff float64 // Relative field loss at the bore wall (0 = uniform)
	Ripple  float64 // Relative amplitude of the longitudinal field ripple
	Octaves int     // Noise octaves of the ripple
	Seed    int64   // Noise seed (0 = random)
}

// DefaultGenConfig returns a 10 m, 2 T bore similar to a helioscope magnet.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Field:   2.0,
		Length:  10000,
		Radius:  350,
		Step:    50,
		Fringe:  0,
		Falloff: 0.05,
		Ripple:  0.01,
		Octaves: 3,
		Seed:    0,
	}
}

// UniformGenConfig returns a constant field box, the field map equivalent
// of a scalar (B, L) magnet.
func UniformGenConfig(field, length float64) GenConfig {
	return GenConfig{
		Field:  field,
		Length: length,
		Radius: 100,
		Step:   length / 100,
	}
}

// Generate samples the configured magnet on a regular mesh.
func Generate(cfg GenConfig) (*Volume, error) {
	if cfg.Length <= 0 || cfg.Radius <= 0 || cfg.Step <= 0 {
		return nil, fmt.Errorf("generate magnet: length %g, radius %g and step %g must be positive",
			cfg.Length, cfg.Radius, cfg.Step)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	ripple := opensimplex.New(seed)

	nxy := int(math.Round(2*cfg.Radius/cfg.Step)) + 1
	nz := int(math.Round(cfg.Length/cfg.Step)) + 1
	if nxy < 2 {
		nxy = 2
	}
	stepXY := 2 * cfg.Radius / float64(nxy-1)
	stepZ := cfg.Length / float64(nz-1)

	vol, err := NewVolume(Vector{-cfg.Radius, -cfg.Radius, 0}, Vector{stepXY, stepXY, stepZ}, nxy, nxy, nz)
	if err != nil {
		return nil, fmt.Errorf("generate magnet: %w", err)
	}

	// Longitudinal profile is shared by every (x, y) column.
	profile := make([]float64, nz)
	for k := range profile {
		z := float64(k) * stepZ
		b := cfg.Field * fringe(z, cfg.Length, cfg.Fringe)
		if cfg.Ripple != 0 && cfg.Octaves > 0 {
			b *= 1 + cfg.Ripple*octaveNoise(ripple, z/cfg.Length, cfg.Octaves, 4, 0.5)
		}
		profile[k] = b
	}

	for i := 0; i < nxy; i++ {
		for j := 0; j < nxy; j++ {
			p := vol.Position(i, j, 0)
			r := math.Hypot(p.X, p.Y) / cfg.Radius
			radial := 1 - cfg.Falloff*r*r
			if radial < 0 {
				radial = 0
			}
			for k := 0; k < nz; k++ {
				vol.Set(i, j, k, Vector{Y: profile[k] * radial})
			}
		}
	}
	return vol, nil
}

// fringe is the relative field at z for a magnet on [0, length] whose ends
// decay with the given length scale.
func fringe(z, length, decay float64) float64 {
	if decay <= 0 {
		return 1
	}
	edge := math.Min(z, length-z)
	return 0.5 * (1 + math.Tanh(edge/decay))
}

// octaveNoise sums octaves of 1-D simplex noise, normalized to [-1, 1].
func octaveNoise(noise opensimplex.Noise, x float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, 0.5) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
