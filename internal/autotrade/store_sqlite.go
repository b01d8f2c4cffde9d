package autotrade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"ForecastSentinel/internal/model"
)

// SQLiteStore keeps the state as a single row in an embedded database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and its table.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS autotrade_state (
		id            INTEGER PRIMARY KEY CHECK (id = 1),
		enabled       INTEGER NOT NULL,
		start_message TEXT NOT NULL,
		stop_message  TEXT NOT NULL,
		updated_at    INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (model.AutotradeState, error) {
	var (
		state   model.AutotradeState
		enabled int
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, start_message, stop_message, updated_at FROM autotrade_state WHERE id = 1`,
	).Scan(&enabled, &state.StartMessage, &state.StopMessage, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AutotradeState{}, nil
	}
	if err != nil {
		return model.AutotradeState{}, fmt.Errorf("load autotrade state: %w", err)
	}
	state.Enabled = enabled == 1
	state.UpdatedAt = time.Unix(updated, 0).UTC()
	return state, nil
}

func (s *SQLiteStore) Save(ctx context.Context, state model.AutotradeState) error {
	enabled := 0
	if state.Enabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO autotrade_state
		(id, enabled, start_message, stop_message, updated_at) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled,
			start_message = excluded.start_message,
			stop_message = excluded.stop_message,
			updated_at = excluded.updated_at`,
		enabled, state.StartMessage, state.StopMessage, state.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save autotrade state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
