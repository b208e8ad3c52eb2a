package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"SigmaHunter/internal/collector"
	"SigmaHunter/internal/model"
)

var _ History = (*SQLiteRecorder)(nil)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS band_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			expiration   TEXT,
			price        REAL,
			move         REAL,
			band1_low    REAL,
			band1_high   REAL,
			band2_low    REAL,
			band2_high   REAL,
			distance_pct REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_band_symbol_ts ON band_snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS symbol_failures (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			stage     TEXT,
			reason    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failure_ts ON symbol_failures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores every result of the run in one transaction.
func (r *SQLiteRecorder) RecordRun(run *model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ts := run.StartedAt.Unix()
	for _, res := range run.Results {
		if res.OK() {
			b := res.Band
			if _, err := tx.Exec(`INSERT INTO band_snapshots
				(run_id, timestamp, symbol, expiration, price, move,
				 band1_low, band1_high, band2_low, band2_high, distance_pct)
				VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
				run.ID, ts, b.Symbol, b.Expiration.Format("2006-01-02"), b.Price, b.Move,
				b.Band1Low, b.Band1High, b.Band2Low, b.Band2High, b.DistancePct,
			); err != nil {
				return fmt.Errorf("insert band %s: %w", b.Symbol, err)
			}
			continue
		}

		stage := ""
		var fe *collector.FetchError
		if errors.As(res.Err, &fe) {
			stage = string(fe.Stage)
		}
		reason := ""
		if res.Err != nil {
			reason = res.Err.Error()
		}
		if _, err := tx.Exec(`INSERT INTO symbol_failures
			(run_id, timestamp, symbol, stage, reason)
			VALUES (?,?,?,?,?)`,
			run.ID, ts, res.Symbol, stage, reason,
		); err != nil {
			return fmt.Errorf("insert failure %s: %w", res.Symbol, err)
		}
	}
	return tx.Commit()
}

// LatestBand returns the most recently recorded band for symbol and the start
// time of the run that produced it, or nil if none exists.
func (r *SQLiteRecorder) LatestBand(symbol string) (*model.SymbolBand, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRow(`SELECT timestamp, symbol, expiration, price, move, band1_low, band1_high, band2_low, band2_high, distance_pct
		FROM band_snapshots WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, symbol)
	var (
		b   model.SymbolBand
		ts  int64
		exp sql.NullString
	)
	err := row.Scan(&ts, &b.Symbol, &exp, &b.Price, &b.Move, &b.Band1Low, &b.Band1High, &b.Band2Low, &b.Band2High, &b.DistancePct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("latest band %s: %w", symbol, err)
	}
	if exp.Valid && exp.String != "" {
		if t, err := time.Parse("2006-01-02", exp.String); err == nil {
			b.Expiration = t
		}
	}
	return &b, time.Unix(ts, 0).UTC(), nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite recorder")
	return r.db.Close()
}
