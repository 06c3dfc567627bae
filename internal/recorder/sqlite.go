package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so report readers do not block the daily writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			started_at       INTEGER NOT NULL,
			finished_at      INTEGER NOT NULL,
			symbol           TEXT,
			status           TEXT,
			bar_date         TEXT,
			attempts         INTEGER,
			not_found        INTEGER,
			failures         INTEGER,
			open_price       TEXT,
			close_price      TEXT,
			verdict          INTEGER,
			verdict_note     TEXT,
			corpus_posts     INTEGER,
			prior_experiment TEXT,
			prior_control    TEXT,
			experiment_total TEXT,
			control_total    TEXT,
			error            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS probes (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL,
			seq     INTEGER NOT NULL,
			date    TEXT,
			outcome TEXT,
			error   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_probes_run ON probes(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(id, started_at, finished_at, symbol, status, bar_date,
		 attempts, not_found, failures, open_price, close_price,
		 verdict, verdict_note, corpus_posts,
		 prior_experiment, prior_control, experiment_total, control_total, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.StartedAt.Unix(), evt.FinishedAt.Unix(), evt.Symbol, evt.Status, evt.BarDate,
		evt.Attempts, evt.NotFound, evt.Failures, evt.Open.String(), evt.Close.String(),
		evt.Verdict, evt.VerdictNote, evt.CorpusPosts,
		evt.PriorExperiment.String(), evt.PriorControl.String(),
		evt.Experiment.String(), evt.Control.String(), evt.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordProbes(runID string, probes []ProbeEvent) error {
	if len(probes) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO probes (run_id, seq, date, outcome, error) VALUES (?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, p := range probes {
		if _, err := stmt.Exec(runID, i+1, p.Date, p.Outcome, p.Error); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert probe %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunEvent, error) {
	rows, err := r.db.Query(`SELECT id, started_at, finished_at, symbol, status, bar_date,
		attempts, not_found, failures, open_price, close_price, verdict, verdict_note,
		corpus_posts, prior_experiment, prior_control, experiment_total, control_total, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunEvent
	for rows.Next() {
		var (
			e                 RunEvent
			started, finished int64
			prices            [6]string
		)
		if err := rows.Scan(&e.ID, &started, &finished, &e.Symbol, &e.Status, &e.BarDate,
			&e.Attempts, &e.NotFound, &e.Failures, &prices[0], &prices[1], &e.Verdict, &e.VerdictNote,
			&e.CorpusPosts, &prices[2], &prices[3], &prices[4], &prices[5], &e.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.StartedAt = time.Unix(started, 0)
		e.FinishedAt = time.Unix(finished, 0)
		dst := []*decimal.Decimal{&e.Open, &e.Close, &e.PriorExperiment, &e.PriorControl, &e.Experiment, &e.Control}
		for i, p := range prices {
			d, err := decimal.NewFromString(p)
			if err != nil {
				return nil, fmt.Errorf("run %s: decode amount %q: %w", e.ID, p, err)
			}
			*dst[i] = d
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ProbeCount returns the number of probes stored for runID.
func (r *SQLiteRecorder) ProbeCount(runID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM probes WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
