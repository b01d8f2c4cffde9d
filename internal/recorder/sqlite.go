package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"ForecastSentinel/internal/model"
)

// SQLiteRecorder persists run and dispatch history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read history while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			provenance  TEXT,
			timeframe   TEXT,
			rows        INTEGER,
			signal      TEXT,
			close       REAL,
			lower_band  REAL,
			upper_band  REAL,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON pipeline_runs(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS dispatch_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			action     TEXT,
			status     TEXT,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatch_ts ON dispatch_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func unixOrNow(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO pipeline_runs
		(run_id, timestamp, symbol, provenance, timeframe, rows, signal, close, lower_band, upper_band, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, unixOrNow(rec.Timestamp), rec.Symbol, string(rec.Provenance), string(rec.Timeframe),
		rec.Rows, string(rec.Signal), nullable(rec.Close), nullable(rec.Lower), nullable(rec.Upper), rec.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordDispatch(ctx context.Context, evt *DispatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO dispatch_events
		(run_id, timestamp, symbol, action, status, error)
		VALUES (?,?,?,?,?,?)`,
		evt.RunID, unixOrNow(evt.Timestamp), evt.Symbol, string(evt.Action), string(evt.Status), evt.Error,
	)
	return err
}

// RecentRuns returns the newest runs for symbol, newest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, symbol string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, timestamp, symbol, provenance, timeframe, rows,
		signal, close, lower_band, upper_band, error
		FROM pipeline_runs WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec                RunRecord
			ts                 int64
			prov, tf, sig      string
			closeV, lower, upp sql.NullFloat64
		)
		if err := rows.Scan(&rec.RunID, &ts, &rec.Symbol, &prov, &tf, &rec.Rows,
			&sig, &closeV, &lower, &upp, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Timestamp = time.Unix(ts, 0).UTC()
		rec.Provenance = model.Provenance(prov)
		rec.Timeframe = model.Timeframe(tf)
		rec.Signal = model.Signal(sig)
		rec.Close, rec.Lower, rec.Upper = fromNull(closeV), fromNull(lower), fromNull(upp)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float(v.Float64)
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
