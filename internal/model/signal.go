package model

import "time"

// Signal classifies the last observed close against the smoothed band.
type Signal string

const (
	SignalBelowLower Signal = "BELOW_LOWER"
	SignalAboveUpper Signal = "ABOVE_UPPER"
	SignalInBand     Signal = "IN_BAND"
	SignalUndefined  Signal = "UNDEFINED"
)

// ActionKind is the external action taken for a signal.
type ActionKind string

const (
	ActionNone  ActionKind = "NONE"
	ActionStart ActionKind = "START"
	ActionStop  ActionKind = "STOP"
)

// ActionStatus reports what happened to a dispatch.
type ActionStatus string

const (
	StatusSkipped ActionStatus = "SKIPPED"
	StatusSent    ActionStatus = "SENT"
	StatusFailed  ActionStatus = "FAILED"
)

// ActionResult is the outcome of one dispatch attempt.
type ActionResult struct {
	Action ActionKind   `json:"action"`
	Status ActionStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Assessment is the evaluated merged row together with its classification.
type Assessment struct {
	Signal Signal    `json:"signal"`
	Time   time.Time `json:"time"`
	Close  *float64  `json:"close"`
	Lower  *float64  `json:"lower_band"`
	Upper  *float64  `json:"upper_band"`
}

// RunResult is the outcome of one pipeline run for one instrument.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Instrument Instrument    `json:"instrument"`
	Timeframe  Timeframe     `json:"timeframe"`
	Rows       []MergedRow   `json:"rows,omitempty"`
	Assessment Assessment    `json:"assessment"`
	Action     ActionResult  `json:"action"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// Failed reports whether the run produced no merged series.
func (r RunResult) Failed() bool { return r.Error != "" && len(r.Rows) == 0 }
