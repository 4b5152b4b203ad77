package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/talgya/helioscope/internal/axion"
	"github.com/talgya/helioscope/internal/config"
	"github.com/talgya/helioscope/internal/gas"
	"github.com/talgya/helioscope/internal/persistence"
)

// fieldFlags are the per-call overrides of the configured magnet.
type fieldFlags struct {
	field, length, energy float64
	gas                   string
	density               float64
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.field, "field", 0, "magnetic field in T (default from config)")
	cmd.Flags().Float64Var(&f.length, "length", 0, "magnet length in mm (default from config)")
	cmd.Flags().Float64Var(&f.energy, "energy", 0, "axion energy in keV (default from config)")
	cmd.Flags().StringVar(&f.gas, "gas", "", "buffer gas name (empty = vacuum)")
	cmd.Flags().Float64Var(&f.density, "density", 0, "buffer gas density in g/cm3")
}

func (f *fieldFlags) params(cfg config.Config) (axion.Params, error) {
	p := cfg.Params()
	if f.field != 0 {
		p.Field = f.field
	}
	if f.length != 0 {
		p.Length = f.length
	}
	if f.energy != 0 {
		p.Energy = f.energy
	}
	return p, p.Validate()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout}
	var (
		configPath string
		dbPath     string
		catalog    string
		noRecord   bool
		metrics    string
	)

	root := &cobra.Command{
		Use:           "axionscan",
		Short:         "Axion-photon conversion probabilities and helioscope gas scan planning",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database = dbPath
			}
			if catalog != "" {
				cfg.GasCatalog = catalog
			}
			a.cfg = cfg
			a.record = !noRecord
			a.logger = newLogger(stderr, cfg.Level())
			slog.SetDefault(a.logger)

			if cfg.GasCatalog == "" {
				a.catalog = gas.DefaultCatalog()
			} else if a.catalog, err = gas.LoadCatalog(cfg.GasCatalog); err != nil {
				return err
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metrics == "" {
				return nil
			}
			if err := prometheus.WriteToTextfile(metrics, prometheus.DefaultGatherer); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&configPath, "config", envOrDefault("AXION_CONFIG", ""), "YAML configuration file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	root.PersistentFlags().StringVar(&catalog, "gas-catalog", "", "YAML gas catalog (default built-in)")
	root.PersistentFlags().BoolVar(&noRecord, "no-record", false, "do not store evaluations in the database")
	root.PersistentFlags().StringVar(&metrics, "metrics-file", "", "write Prometheus metrics to this file on exit (textfile collector format)")

	root.AddCommand(
		newClosedFormCmd(a, "transmission", "Axion to photon conversion probability in a constant field"),
		newClosedFormCmd(a, "absorption", "Axion absorption probability in a constant field"),
		newProfileCmd(a),
		newFieldMapCmd(a),
		newFWHMCmd(a),
		newScanCmd(a),
		newRunsCmd(a),
	)
	return root
}

func newClosedFormCmd(a *app, kind, short string) *cobra.Command {
	var (
		ff                     fieldFlags
		mass, photon, absorbed float64
	)
	cmd := &cobra.Command{
		Use:   kind,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ff.params(a.cfg)
			if err != nil {
				return err
			}
			medium, err := a.medium(ff.gas, ff.density)
			if err != nil {
				return err
			}
			f := a.engine(p, medium)

			opts := []axion.MassOption{axion.WithPhotonMass(photon), axion.WithAbsorption(absorbed)}
			var prob float64
			if kind == "absorption" {
				prob = f.AxionAbsorptionProbability(mass, opts...)
			} else {
				prob = f.GammaTransmissionProbability(mass, opts...)
			}

			mg, gamma := photon, absorbed
			if medium != nil {
				if mg == 0 {
					mg = medium.PhotonMass(p.Energy)
				}
				if gamma == 0 {
					gamma = medium.PhotonAbsorptionLength(p.Energy)
				}
			}
			fmt.Fprintf(a.out, "%s probability: %.6e (B=%g T, L=%s, Ea=%g keV, ma=%s, mγ=%s, Γ=%.3e cm⁻¹)\n",
				kind, prob, p.Field, lengthString(p.Length), p.Energy, massString(mass), massString(mg), gamma)

			a.save(persistence.Evaluation{
				Kind: kind, Field: p.Field, Length: p.Length, Energy: p.Energy,
				AxionMass: mass, PhotonMass: mg, Absorption: gamma, Probability: prob,
			})
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().Float64Var(&mass, "mass", 0, "axion mass in eV")
	cmd.Flags().Float64Var(&photon, "photon-mass", 0, "photon mass in eV (default from gas)")
	cmd.Flags().Float64Var(&absorbed, "absorption", 0, "inverse absorption length in cm-1 (default from gas)")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	var (
		ff         fieldFlags
		mass, step float64
		x, y       float64
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Conversion probability integrated over the field sampled along the magnet axis",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ff.params(a.cfg)
			if err != nil {
				return err
			}
			a.cfg.Magnet.Field, a.cfg.Magnet.Length = p.Field, p.Length
			medium, err := a.medium(ff.gas, ff.density)
			if err != nil {
				return err
			}
			fm, err := a.fieldMap(x, y)
			if err != nil {
				return err
			}
			if step <= 0 {
				return fmt.Errorf("step %g mm must be positive", step)
			}

			from := fm.Entry()
			to := from.Add(fm.Direction().Scale(fm.TrackLength()))
			prof := fm.TransversalAlongPath(from, to, step)

			f := a.engine(p, medium)
			prob := f.ProfileProbability(prof, step, p.Energy, mass)
			fmt.Fprintf(a.out, "profile probability: %.6e (%s samples every %s, Ea=%g keV, ma=%s)\n",
				prob, humanize.Comma(int64(len(prof))), lengthString(step), p.Energy, massString(mass))

			a.save(persistence.Evaluation{
				Kind: "profile", Field: p.Field, Length: float64(len(prof)-1) * step, Energy: p.Energy,
				AxionMass: mass, Probability: prob,
			})
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().Float64Var(&mass, "mass", 0, "axion mass in eV")
	cmd.Flags().Float64Var(&step, "step", 10, "sampling step in mm")
	cmd.Flags().Float64Var(&x, "x", 0, "track offset from the axis in x (mm)")
	cmd.Flags().Float64Var(&y, "y", 0, "track offset from the axis in y (mm)")
	return cmd
}

func newFieldMapCmd(a *app) *cobra.Command {
	var (
		ff   fieldFlags
		mass float64
		x, y float64
	)
	cmd := &cobra.Command{
		Use:   "fieldmap",
		Short: "Conversion probability integrated adaptively along a track through the field map",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ff.params(a.cfg)
			if err != nil {
				return err
			}
			a.cfg.Magnet.Field, a.cfg.Magnet.Length = p.Field, p.Length
			medium, err := a.medium(ff.gas, ff.density)
			if err != nil {
				return err
			}
			fm, err := a.fieldMap(x, y)
			if err != nil {
				return err
			}

			f := a.engine(p, medium)
			f.SetFieldMap(fm)
			start := time.Now()
			est, err := f.FieldMapProbability(p.Energy, mass, a.cfg.QuadratureConfig())
			if err != nil {
				var qe *axion.QuadratureError
				if errors.As(err, &qe) {
					return fmt.Errorf("%w (try raising quadrature intervals or levels)", err)
				}
				return err
			}
			fmt.Fprintf(a.out, "field map probability: %.6e ± %.2e (track %s, Ea=%g keV, ma=%s, %s)\n",
				est.Probability, est.Error, lengthString(fm.TrackLength()), p.Energy, massString(mass),
				time.Since(start).Round(time.Microsecond))

			a.save(persistence.Evaluation{
				Kind: "fieldmap", Field: p.Field, Length: fm.TrackLength(), Energy: p.Energy,
				AxionMass: mass, Probability: est.Probability, Error: est.Error,
			})
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().Float64Var(&mass, "mass", 0, "axion mass in eV")
	cmd.Flags().Float64Var(&x, "x", 0, "track offset from the axis in x (mm)")
	cmd.Flags().Float64Var(&y, "y", 0, "track offset from the axis in y (mm)")
	return cmd
}

func newFWHMCmd(a *app) *cobra.Command {
	var (
		ff   fieldFlags
		step float64
	)
	cmd := &cobra.Command{
		Use:   "fwhm",
		Short: "Width of the transmission resonance of the given gas (or vacuum)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ff.params(a.cfg)
			if err != nil {
				return err
			}
			medium, err := a.medium(ff.gas, ff.density)
			if err != nil {
				return err
			}
			w, err := a.engine(p, medium).GammaTransmissionFWHM(step)
			fmt.Fprintf(a.out, "FWHM: %s\n", massString(w))
			return err
		},
	}
	ff.register(cmd)
	cmd.Flags().Float64Var(&step, "step", axion.DefaultFWHMStep, "mass step of the walk in eV")
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var (
		ff                fieldFlags
		gasName           string
		maxMass, rampDown float64
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Plan the mass/density settings of a buffer gas scan and store them",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ff.params(a.cfg)
			if err != nil {
				return err
			}
			if gasName == "" {
				gasName = a.cfg.Scan.Gas
			}
			if !cmd.Flags().Changed("max-mass") {
				maxMass = a.cfg.Scan.MaxMass
			}
			if !cmd.Flags().Changed("ramp-down") {
				rampDown = a.cfg.Scan.RampDown
			}

			points, err := a.engine(p, nil).MassDensityScanning(gasName, maxMass, rampDown)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s scan, %s points up to %s\n",
				gasName, humanize.Comma(int64(len(points))), massString(maxMass))
			printPoints(a.out, points)

			if !a.record {
				return nil
			}
			db, err := persistence.Open(a.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			id, err := db.SaveScan(persistence.ScanRun{
				Gas: gasName, MaxMass: maxMass, RampDown: rampDown, Params: p, Points: points,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved as %s\n", id)
			return nil
		},
	}
	cmd.Flags().Float64Var(&ff.field, "field", 0, "magnetic field in T (default from config)")
	cmd.Flags().Float64Var(&ff.length, "length", 0, "magnet length in mm (default from config)")
	cmd.Flags().Float64Var(&ff.energy, "energy", 0, "axion energy in keV (default from config)")
	cmd.Flags().StringVar(&gasName, "gas", "", "scan gas (default from config)")
	cmd.Flags().Float64Var(&maxMass, "max-mass", axion.DefaultScanMaxMass, "last axion mass in eV")
	cmd.Flags().Float64Var(&rampDown, "ramp-down", axion.DefaultRampDown, "step ramp-down rate in 1/eV")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit       int
		evaluations bool
	)
	cmd := &cobra.Command{
		Use:   "runs [id|last]",
		Short: "List stored scans and evaluations, or show one scan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := persistence.Open(a.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 1 {
				id := args[0]
				if id == "last" {
					if id, err = db.LastScanID(); err != nil {
						return err
					}
				}
				run, err := db.LoadScan(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s  %s  B=%g T  L=%s  Ea=%g keV  max %s  ramp %g  (%s)\n",
					run.ID, run.Gas, run.Params.Field, lengthString(run.Params.Length), run.Params.Energy,
					massString(run.MaxMass), run.RampDown, humanize.Time(run.CreatedAt))
				printPoints(a.out, run.Points)
				return nil
			}

			if evaluations {
				evals, err := db.RecentEvaluations(limit)
				if err != nil {
					return err
				}
				for _, e := range evals {
					fmt.Fprintf(a.out, "%6d  %-12s  ma=%-10s  P=%.4e  %s\n",
						e.ID, e.Kind, massString(e.AxionMass), e.Probability,
						humanize.Time(time.UnixMilli(e.CreatedAt)))
				}
				return nil
			}

			runs, err := db.RecentScans(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "no scans stored")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(a.out, "%s  %-3s  up to %-9s  %s\n",
					r.ID, r.Gas, massString(r.MaxMass), humanize.Time(r.CreatedAt))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to list")
	cmd.Flags().BoolVar(&evaluations, "evaluations", false, "list probability evaluations instead of scans")
	return cmd
}

func printPoints(w io.Writer, points []axion.ScanPoint) {
	fmt.Fprintf(w, "%5s  %-12s  %s\n", "step", "mass", "density (g/cm3)")
	for i, p := range points {
		fmt.Fprintf(w, "%5d  %-12s  %.6e\n", i, massString(p.Mass), p.Density)
	}
}

func massString(eV float64) string {
	if eV == 0 {
		return "0 eV"
	}
	return humanize.SIWithDigits(eV, 4, "eV")
}

func lengthString(mm float64) string {
	return humanize.SIWithDigits(mm*1e-3, 4, "m")
}
