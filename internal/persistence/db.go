// Package persistence provides SQLite storage for planned gas scans and
// probability evaluations.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/helioscope/internal/axion"
)

// ErrNotFound is returned when a scan run does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_runs (
		id TEXT PRIMARY KEY,
		gas TEXT NOT NULL,
		max_mass REAL NOT NULL,
		ramp_down REAL NOT NULL,
		field REAL NOT NULL,
		length REAL NOT NULL,
		energy REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scan_points (
		run_id TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		mass REAL NOT NULL,
		density REAL NOT NULL,
		PRIMARY KEY (run_id, idx)
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		field REAL NOT NULL,
		length REAL NOT NULL,
		energy REAL NOT NULL,
		axion_mass REAL NOT NULL,
		photon_mass REAL NOT NULL,
		absorption REAL NOT NULL,
		probability REAL NOT NULL,
		error REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scan_runs_created ON scan_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_evaluations_kind ON evaluations(kind);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ScanRun is a stored mass/density scan plan.
type ScanRun struct {
	ID        string
	Gas       string
	MaxMass   float64
	RampDown  float64
	Params    axion.Params
	CreatedAt time.Time
	Points    []axion.ScanPoint
}

type scanRow struct {
	ID        string  `db:"id"`
	Gas       string  `db:"gas"`
	MaxMass   float64 `db:"max_mass"`
	RampDown  float64 `db:"ramp_down"`
	Field     float64 `db:"field"`
	Length    float64 `db:"length"`
	Energy    float64 `db:"energy"`
	CreatedAt int64   `db:"created_at"`
}

func (r scanRow) run() ScanRun {
	return ScanRun{
		ID:        r.ID,
		Gas:       r.Gas,
		MaxMass:   r.MaxMass,
		RampDown:  r.RampDown,
		Params:    axion.Params{Field: r.Field, Length: r.Length, Energy: r.Energy},
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
}

// SaveScan stores a run with its points and returns its id. A run without
// an id gets a new UUID; a zero CreatedAt is set to now.
func (db *DB) SaveScan(run ScanRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO scan_runs
		(id, gas, max_mass, ramp_down, field, length, energy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Gas, run.MaxMass, run.RampDown,
		run.Params.Field, run.Params.Length, run.Params.Energy, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert scan run %s: %w", run.ID, err)
	}

	stmt, err := tx.Preparex("INSERT INTO scan_points (run_id, idx, mass, density) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, p := range run.Points {
		if _, err := stmt.Exec(run.ID, i, p.Mass, p.Density); err != nil {
			return "", fmt.Errorf("insert scan point %d: %w", i, err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('last_scan', ?)", run.ID); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	slog.Info("scan saved", "id", run.ID, "gas", run.Gas, "points", len(run.Points))
	return run.ID, nil
}

// LoadScan returns a stored run with its points.
func (db *DB) LoadScan(id string) (ScanRun, error) {
	var row scanRow
	err := db.conn.Get(&row, "SELECT * FROM scan_runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return ScanRun{}, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ScanRun{}, err
	}

	run := row.run()
	err = db.conn.Select(&run.Points,
		"SELECT mass, density FROM scan_points WHERE run_id = ? ORDER BY idx", id)
	if err != nil {
		return ScanRun{}, fmt.Errorf("load scan points: %w", err)
	}
	return run, nil
}

// LastScanID returns the id of the most recently saved run.
func (db *DB) LastScanID() (string, error) {
	var id string
	err := db.conn.Get(&id, "SELECT value FROM meta WHERE key = 'last_scan'")
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("last scan: %w", ErrNotFound)
	}
	return id, err
}

// RecentScans returns the most recent runs, newest first, without points.
func (db *DB) RecentScans(limit int) ([]ScanRun, error) {
	var rows []scanRow
	err := db.conn.Select(&rows,
		"SELECT * FROM scan_runs ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	runs := make([]ScanRun, len(rows))
	for i, r := range rows {
		runs[i] = r.run()
	}
	return runs, nil
}

// Evaluation is one stored probability computation.
type Evaluation struct {
	ID          int64   `db:"id"`
	Kind        string  `db:"kind"`
	Field       float64 `db:"field"`
	Length      float64 `db:"length"`
	Energy      float64 `db:"energy"`
	AxionMass   float64 `db:"axion_mass"`
	PhotonMass  float64 `db:"photon_mass"`
	Absorption  float64 `db:"absorption"`
	Probability float64 `db:"probability"`
	Error       float64 `db:"error"`
	CreatedAt   int64   `db:"created_at"` // unix ms
}

// SaveEvaluation appends an evaluation and returns its id.
func (db *DB) SaveEvaluation(e Evaluation) (int64, error) {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	res, err := db.conn.NamedExec(`INSERT INTO evaluations
		(kind, field, length, energy, axion_mass, photon_mass, absorption, probability, error, created_at)
		VALUES (:kind, :field, :length, :energy, :axion_mass, :photon_mass, :absorption, :probability, :error, :created_at)`,
		e)
	if err != nil {
		return 0, fmt.Errorf("insert evaluation: %w", err)
	}
	return res.LastInsertId()
}

// RecentEvaluations returns the most recent N evaluations, newest first.
func (db *DB) RecentEvaluations(limit int) ([]Evaluation, error) {
	var evals []Evaluation
	err := db.conn.Select(&evals,
		"SELECT * FROM evaluations ORDER BY id DESC LIMIT ?", limit)
	return evals, err
}
