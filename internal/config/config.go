// Package config provides the layered configuration of the helioscope tools:
// built-in defaults, then an optional YAML file, then AXION_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/helioscope/internal/axion"
	"github.com/talgya/helioscope/internal/magnet"
)

// Config holds every tunable of the CLI.
type Config struct {
	Magnet     Magnet     `yaml:"magnet"`
	Quadrature Quadrature `yaml:"quadrature"`
	Scan       Scan       `yaml:"scan"`

	GasCatalog string `yaml:"gas_catalog" env:"AXION_GAS_CATALOG"` // empty = built-in
	Database   string `yaml:"database" env:"AXION_DB"`
	LogLevel   string `yaml:"log_level" env:"AXION_LOG_LEVEL"`
}

// Magnet describes the field, the axion energy and the field map source.
type Magnet struct {
	Field  float64 `yaml:"field" env:"AXION_FIELD"`   // T
	Length float64 `yaml:"length" env:"AXION_LENGTH"` // mm
	Energy float64 `yaml:"energy" env:"AXION_ENERGY"` // keV

	FieldMap string  `yaml:"field_map" env:"AXION_FIELD_MAP"` // x y z Bx By Bz table; empty = synthetic
	Radius   float64 `yaml:"radius" env:"AXION_BORE_RADIUS"`  // mm
	Step     float64 `yaml:"step" env:"AXION_MESH_STEP"`      // mm
	Fringe   float64 `yaml:"fringe" env:"AXION_FRINGE"`       // mm
	Falloff  float64 `yaml:"falloff" env:"AXION_FALLOFF"`
	Ripple   float64 `yaml:"ripple" env:"AXION_RIPPLE"`
	Seed     int64   `yaml:"seed" env:"AXION_SEED"`
}

// Quadrature mirrors axion.Quadrature.
type Quadrature struct {
	Accuracy  float64 `yaml:"accuracy" env:"AXION_QUAD_ACCURACY"`
	Intervals int     `yaml:"intervals" env:"AXION_QUAD_INTERVALS"`
	Levels    int     `yaml:"levels" env:"AXION_QUAD_LEVELS"`
}

// Scan holds the gas scan planning settings.
type Scan struct {
	Gas      string  `yaml:"gas" env:"AXION_SCAN_GAS"`
	MaxMass  float64 `yaml:"max_mass" env:"AXION_SCAN_MAX_MASS"` // eV
	RampDown float64 `yaml:"ramp_down" env:"AXION_SCAN_RAMP_DOWN"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	p := axion.DefaultParams()
	gen := magnet.DefaultGenConfig()
	q := axion.DefaultQuadrature()
	return Config{
		Magnet: Magnet{
			Field:   p.Field,
			Length:  p.Length,
			Energy:  p.Energy,
			Radius:  gen.Radius,
			Step:    gen.Step,
			Fringe:  gen.Fringe,
			Falloff: gen.Falloff,
			Ripple:  gen.Ripple,
			Seed:    1,
		},
		Quadrature: Quadrature{Accuracy: q.Accuracy, Intervals: q.Intervals, Levels: q.Levels},
		Scan: Scan{
			Gas:      axion.DefaultScanGas,
			MaxMass:  axion.DefaultScanMaxMass,
			RampDown: axion.DefaultRampDown,
		},
		Database: "helioscope.db",
		LogLevel: "info",
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("AXION_* environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Quadrature.Accuracy <= 0 {
		errs = append(errs, fmt.Errorf("quadrature accuracy %g must be positive", c.Quadrature.Accuracy))
	}
	if c.Quadrature.Intervals < 1 {
		errs = append(errs, fmt.Errorf("quadrature intervals %d must be at least 1", c.Quadrature.Intervals))
	}
	if c.Quadrature.Levels < 1 {
		errs = append(errs, fmt.Errorf("quadrature levels %d must be at least 1", c.Quadrature.Levels))
	}
	if c.Scan.Gas == "" {
		errs = append(errs, errors.New("scan gas is empty"))
	}
	if c.Scan.RampDown < 0 {
		errs = append(errs, fmt.Errorf("scan ramp down %g is negative", c.Scan.RampDown))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Params returns the engine parameters.
func (c Config) Params() axion.Params {
	return axion.Params{Field: c.Magnet.Field, Length: c.Magnet.Length, Energy: c.Magnet.Energy}
}

// QuadratureConfig returns the field map integration settings.
func (c Config) QuadratureConfig() axion.Quadrature {
	return axion.Quadrature{
		Accuracy:  c.Quadrature.Accuracy,
		Intervals: c.Quadrature.Intervals,
		Levels:    c.Quadrature.Levels,
	}
}

// GenConfig returns the synthetic magnet matching the configured field and
// length.
func (c Config) GenConfig() magnet.GenConfig {
	gen := magnet.DefaultGenConfig()
	gen.Field = c.Magnet.Field
	gen.Length = c.Magnet.Length
	gen.Radius = c.Magnet.Radius
	gen.Step = c.Magnet.Step
	gen.Fringe = c.Magnet.Fringe
	gen.Falloff = c.Magnet.Falloff
	gen.Ripple = c.Magnet.Ripple
	gen.Seed = c.Magnet.Seed
	return gen
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
