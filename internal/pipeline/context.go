package pipeline

import (
	"time"

	"github.com/google/uuid"

	"ForecastSentinel/internal/forecast"
	"ForecastSentinel/internal/model"
)

// RunContext is the per-run input shared by every stage. The autotrade state
// is a snapshot taken once when the context is created.
type RunContext struct {
	RunID     string
	Autotrade model.AutotradeState
	Horizon   forecast.Horizon
	StartedAt time.Time
	// SkipDispatch evaluates the signal without acting on it.
	SkipDispatch bool
}

// StateSource provides the autotrade snapshot for a new run.
type StateSource interface {
	Snapshot() model.AutotradeState
}

// NewRunContext snapshots state and assigns a fresh run id.
func NewRunContext(state StateSource, h forecast.Horizon) RunContext {
	var snap model.AutotradeState
	if state != nil {
		snap = state.Snapshot()
	}
	return RunContext{
		RunID:     uuid.NewString(),
		Autotrade: snap,
		Horizon:   h,
		StartedAt: time.Now().UTC(),
	}
}
