package recorder

import (
	"context"
	"time"

	"ForecastSentinel/internal/model"
)

// RunRecord is one row of pipeline run history.
type RunRecord struct {
	RunID      string
	Symbol     string
	Provenance model.Provenance
	Timeframe  model.Timeframe
	Rows       int
	Signal     model.Signal
	Close      *float64
	Lower      *float64
	Upper      *float64
	Error      string
	Timestamp  time.Time
}

// DispatchEvent is one autotrade webhook attempt.
type DispatchEvent struct {
	RunID     string
	Symbol    string
	Action    model.ActionKind
	Status    model.ActionStatus
	Error     string
	Timestamp time.Time
}

// FromResult flattens a run result into its history row.
func FromResult(res model.RunResult) RunRecord {
	return RunRecord{
		RunID:      res.RunID,
		Symbol:     res.Instrument.Symbol,
		Provenance: res.Instrument.Provenance,
		Timeframe:  res.Timeframe,
		Rows:       len(res.Rows),
		Signal:     res.Assessment.Signal,
		Close:      res.Assessment.Close,
		Lower:      res.Assessment.Lower,
		Upper:      res.Assessment.Upper,
		Error:      res.Error,
		Timestamp:  res.StartedAt,
	}
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordRun(ctx context.Context, rec *RunRecord) error
	RecordDispatch(ctx context.Context, evt *DispatchEvent) error
	RecentRuns(ctx context.Context, symbol string, limit int) ([]RunRecord, error)
	Close() error
}
