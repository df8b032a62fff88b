package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"LevelSentinel/internal/logger"
	"LevelSentinel/internal/model"
)

// SQLiteRecorder persists analysis runs to a SQLite database.
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

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id                 TEXT PRIMARY KEY,
			timestamp          INTEGER NOT NULL,
			symbol             TEXT NOT NULL,
			interval           TEXT,
			bars               INTEGER,
			current_price      REAL,
			support_count      INTEGER,
			resistance_count   INTEGER,
			nearest_support    REAL,
			nearest_resistance REAL,
			duration_ms        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON analysis_runs(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS levels (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL REFERENCES analysis_runs(id),
			kind    TEXT NOT NULL,
			price   REAL NOT NULL,
			method  TEXT,
			label   TEXT,
			score   REAL,
			members INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_levels_run ON levels(run_id)`,

		`CREATE TABLE IF NOT EXISTS method_results (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL REFERENCES analysis_runs(id),
			method    TEXT NOT NULL,
			available INTEGER NOT NULL,
			reason    TEXT,
			raw       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_method_results_run ON method_results(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordAnalysis stores the run, its merged levels and every method's raw
// output in one transaction.
func (r *SQLiteRecorder) RecordAnalysis(a *model.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var nearestS, nearestR float64
	if l, ok := a.Levels.NearestSupport(a.CurrentPrice); ok {
		nearestS = l.Price
	}
	if l, ok := a.Levels.NearestResistance(a.CurrentPrice); ok {
		nearestR = l.Price
	}

	_, err = tx.Exec(`INSERT INTO analysis_runs
		(id, timestamp, symbol, interval, bars, current_price,
		 support_count, resistance_count, nearest_support, nearest_resistance, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.StartedAt.Unix(), a.Symbol, a.Interval, a.Bars, a.CurrentPrice,
		len(a.Levels.Support), len(a.Levels.Resistance), nearestS, nearestR,
		a.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, side := range [][]model.MergedLevel{a.Levels.Support, a.Levels.Resistance} {
		for _, l := range side {
			if _, err := tx.Exec(`INSERT INTO levels
				(run_id, kind, price, method, label, score, members)
				VALUES (?,?,?,?,?,?,?)`,
				a.ID, strings.ToLower(l.Kind.String()), l.Price, l.Method.String(), l.Label, l.Score, l.Members,
			); err != nil {
				return fmt.Errorf("insert level: %w", err)
			}
		}
	}

	for _, res := range a.Diagnostics {
		if _, err := tx.Exec(`INSERT INTO method_results
			(run_id, method, available, reason, raw)
			VALUES (?,?,?,?,?)`,
			a.ID, res.Method.String(), res.Available, res.Reason, res.String(),
		); err != nil {
			return fmt.Errorf("insert method result: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs for symbol, newest first.
func (r *SQLiteRecorder) RecentRuns(symbol string, limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, symbol, interval, bars, current_price,
			support_count, resistance_count, nearest_support, nearest_resistance
		FROM analysis_runs WHERE symbol = ?
		ORDER BY timestamp DESC, rowid DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var ts int64
		if err := rows.Scan(&s.ID, &ts, &s.Symbol, &s.Interval, &s.Bars, &s.CurrentPrice,
			&s.SupportCount, &s.ResistanceCount, &s.NearestSupport, &s.NearestResistance); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Infof("closing sqlite recorder")
	return r.db.Close()
}
