package autotrade

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ForecastSentinel/internal/model"
)

// Sender delivers a trade message to the external bot.
type Sender interface {
	Post(ctx context.Context, msg TradeMessage) error
}

// Dispatcher turns band signals into start/stop webhook calls for
// allow-listed instruments.
type Dispatcher struct {
	sender Sender
	allow  map[string]struct{}
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. Symbols are matched case-insensitively.
func NewDispatcher(sender Sender, allowList []string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	allow := make(map[string]struct{}, len(allowList))
	for _, s := range allowList {
		allow[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	return &Dispatcher{sender: sender, allow: allow, logger: logger}
}

// Allowed reports whether symbol may be auto-traded.
func (d *Dispatcher) Allowed(symbol string) bool {
	_, ok := d.allow[strings.ToUpper(symbol)]
	return ok
}

// ActionFor maps a signal onto the action it triggers.
func ActionFor(sig model.Signal) model.ActionKind {
	switch sig {
	case model.SignalBelowLower:
		return model.ActionStart
	case model.SignalAboveUpper:
		return model.ActionStop
	default:
		return model.ActionNone
	}
}

// Dispatch acts on one signal using the state snapshot taken at the start of
// the run. A failed call is reported in the result and returned as
// ErrDispatchFailure; it is never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, symbol string, sig model.Signal, state model.AutotradeState) (model.ActionResult, error) {
	action := ActionFor(sig)
	switch {
	case !state.Enabled:
		return skipped(action, "autotrade disabled"), nil
	case !d.Allowed(symbol):
		return skipped(action, "symbol not in allow-list"), nil
	case action == model.ActionNone:
		return skipped(action, fmt.Sprintf("no action for %s", sig)), nil
	}

	raw := state.StartMessage
	if action == model.ActionStop {
		raw = state.StopMessage
	}
	log := d.logger.With(zap.String("symbol", symbol), zap.String("action", string(action)))

	msg, err := ParseTradeMessage(raw)
	if err != nil {
		err = fmt.Errorf("%w: %s message: %w", ErrDispatchFailure, strings.ToLower(string(action)), err)
		log.Error("trade message rejected", zap.Error(err))
		return failed(action, err), err
	}
	if err := d.sender.Post(ctx, msg); err != nil {
		log.Error("webhook dispatch failed", zap.Error(err))
		return failed(action, err), err
	}
	log.Info("webhook dispatched")
	return model.ActionResult{Action: action, Status: model.StatusSent}, nil
}

func skipped(action model.ActionKind, reason string) model.ActionResult {
	return model.ActionResult{Action: action, Status: model.StatusSkipped, Reason: reason}
}

func failed(action model.ActionKind, err error) model.ActionResult {
	return model.ActionResult{Action: action, Status: model.StatusFailed, Error: err.Error()}
}
