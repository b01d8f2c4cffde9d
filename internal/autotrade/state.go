package autotrade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ForecastSentinel/internal/model"
)

// Manager guards the autotrade state and writes every change through to the store.
type Manager struct {
	mu     sync.Mutex
	state  model.AutotradeState
	store  Store
	logger *zap.Logger
}

// NewManager creates a Manager, loading the current state from the store.
func NewManager(ctx context.Context, store Store, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load autotrade state: %w", err)
	}
	return &Manager{state: state, store: store, logger: logger}, nil
}

// Snapshot returns a copy of the current state. Pipeline runs call it once
// and never re-read mid-run.
func (m *Manager) Snapshot() model.AutotradeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Update replaces the state. Both messages must parse when autotrade is
// enabled; a rejected update leaves the stored state untouched.
func (m *Manager) Update(ctx context.Context, next model.AutotradeState) (model.AutotradeState, error) {
	return m.Apply(ctx, func(s *model.AutotradeState) { *s = next })
}

// Apply edits a copy of the current state and saves it. The lock is held from
// read to save so concurrent edits never overwrite each other.
func (m *Manager) Apply(ctx context.Context, edit func(*model.AutotradeState)) (model.AutotradeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state
	edit(&next)
	if next.Enabled {
		if _, err := ParseTradeMessage(next.StartMessage); err != nil {
			return model.AutotradeState{}, fmt.Errorf("start message: %w", err)
		}
		if _, err := ParseTradeMessage(next.StopMessage); err != nil {
			return model.AutotradeState{}, fmt.Errorf("stop message: %w", err)
		}
	}
	next.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, next); err != nil {
		return model.AutotradeState{}, fmt.Errorf("save autotrade state: %w", err)
	}
	m.state = next
	m.logger.Info("autotrade state updated", zap.Bool("enabled", next.Enabled))
	return next, nil
}

// SetEnabled flips the toggle and keeps the stored messages.
func (m *Manager) SetEnabled(ctx context.Context, enabled bool) (model.AutotradeState, error) {
	return m.Apply(ctx, func(s *model.AutotradeState) { s.Enabled = enabled })
}
