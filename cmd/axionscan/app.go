package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/talgya/helioscope/internal/axion"
	"github.com/talgya/helioscope/internal/config"
	"github.com/talgya/helioscope/internal/gas"
	"github.com/talgya/helioscope/internal/magnet"
	"github.com/talgya/helioscope/internal/persistence"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	catalog *gas.Catalog
	out     io.Writer
	record  bool
}

func (a *app) engine(p axion.Params, medium axion.Medium) *axion.Field {
	opts := []axion.Option{
		axion.WithLogger(a.logger),
		axion.WithGasFactory(axion.CatalogGas(a.catalog)),
	}
	if medium != nil {
		opts = append(opts, axion.WithMedium(medium))
	}
	return axion.New(p, opts...)
}

// medium returns the gas given by name and density, or nil for vacuum.
func (a *app) medium(name string, density float64) (axion.Medium, error) {
	if name == "" {
		return nil, nil
	}
	m, err := gas.New(a.catalog, name, density)
	if err != nil {
		return nil, err
	}
	m.SetLogger(a.logger)
	return m, nil
}

// fieldMap loads the configured field map file or generates the synthetic
// magnet, and binds an axial track at transverse offset (x, y).
func (a *app) fieldMap(x, y float64) (*magnet.Map, error) {
	var vol *magnet.Volume
	if path := a.cfg.Magnet.FieldMap; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open field map: %w", err)
		}
		defer f.Close()
		vol, err = magnet.ReadVolume(f)
		if err != nil {
			return nil, fmt.Errorf("field map %s: %w", path, err)
		}
		a.logger.Info("field map loaded", "path", path, "nodes", vol.NX*vol.NY*vol.NZ)
	} else {
		var err error
		vol, err = magnet.Generate(a.cfg.GenConfig())
		if err != nil {
			return nil, err
		}
		a.logger.Debug("synthetic magnet generated", "nodes", vol.NX*vol.NY*vol.NZ)
	}

	m := magnet.NewMap(vol)
	length, err := m.SetTrack(magnet.Vector{X: x, Y: y, Z: vol.Origin.Z - 1}, magnet.Vector{Z: 1})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("track bound", "entry", m.Entry().String(), "length_mm", length)
	return m, nil
}

// save records an evaluation unless recording is disabled. Storage
// failures are logged; the computed value is still printed.
func (a *app) save(e persistence.Evaluation) {
	if !a.record {
		return
	}
	db, err := persistence.Open(a.cfg.Database)
	if err != nil {
		a.logger.Error("failed to open database", "path", a.cfg.Database, "error", err)
		return
	}
	defer db.Close()
	if _, err := db.SaveEvaluation(e); err != nil {
		a.logger.Error("failed to save evaluation", "error", err)
	}
}
