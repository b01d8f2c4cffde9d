package autotrade

import (
	"context"

	"ForecastSentinel/internal/model"
)

// Store persists the autotrade state. Load on an empty store returns the
// zero state.
type Store interface {
	Load(ctx context.Context) (model.AutotradeState, error)
	Save(ctx context.Context, state model.AutotradeState) error
}
