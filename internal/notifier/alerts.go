package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ForecastSentinel/internal/model"
)

// DefaultAlertQueue is how many undelivered alerts Publish buffers.
const DefaultAlertQueue = 64

type alert struct {
	symbol string
	runID  string
	text   string
}

// Alerts turns run results into operator notifications. Breaches are
// reported when an instrument's signal changes; dispatch failures always are.
// Publish only queues; delivery and its retries happen in Run.
type Alerts struct {
	notifier   Notifier
	maxRetries int
	backoff    time.Duration
	queue      chan alert
	logger     *zap.Logger

	mu   sync.Mutex
	last map[string]model.Signal
}

// NewAlerts creates an alert publisher with bounded retry. Start Run in its
// own goroutine to deliver.
func NewAlerts(n Notifier, maxRetries int, logger *zap.Logger) *Alerts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerts{
		notifier:   n,
		maxRetries: maxRetries,
		backoff:    time.Second,
		queue:      make(chan alert, DefaultAlertQueue),
		logger:     logger,
		last:       make(map[string]model.Signal),
	}
}

// Publish queues the notifications due for res and returns without waiting
// for delivery. Alerts that do not fit in the queue are dropped and logged.
func (a *Alerts) Publish(_ context.Context, res model.RunResult) {
	for _, text := range a.messages(res) {
		al := alert{symbol: res.Instrument.Symbol, runID: res.RunID, text: text}
		select {
		case a.queue <- al:
		default:
			a.logger.Error("alert queue full, dropping alert",
				zap.String("symbol", al.symbol), zap.String("run_id", al.runID))
		}
	}
}

// Run delivers queued alerts one at a time until ctx is done.
func (a *Alerts) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case al := <-a.queue:
			if err := SendWithRetry(ctx, a.notifier, al.text, a.maxRetries, a.backoff, a.logger); err != nil {
				a.logger.Error("alert not delivered",
					zap.String("symbol", al.symbol), zap.String("run_id", al.runID), zap.Error(err))
			}
		}
	}
}

func (a *Alerts) messages(res model.RunResult) []string {
	var out []string
	if res.Error == "" && a.changed(res) {
		switch res.Assessment.Signal {
		case model.SignalBelowLower, model.SignalAboveUpper:
			out = append(out, FormatBreach(res))
		}
	}
	if res.Action.Status == model.StatusFailed {
		out = append(out, FormatDispatchFailure(res))
	}
	return out
}

func (a *Alerts) changed(res model.RunResult) bool {
	key := res.Instrument.Symbol + "/" + string(res.Timeframe)
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, seen := a.last[key]
	a.last[key] = res.Assessment.Signal
	return !seen || prev != res.Assessment.Signal
}
