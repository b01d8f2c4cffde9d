package model

import "time"

// AutotradeState is the persisted autotrade toggle and its trade messages.
type AutotradeState struct {
	Enabled      bool      `json:"enabled"`
	StartMessage string    `json:"start_message"`
	StopMessage  string    `json:"stop_message"`
	UpdatedAt    time.Time `json:"updated_at"`
}
