package model

import (
	"fmt"
	"strings"
)

// Provenance identifies where an instrument's prices come from.
type Provenance string

const (
	ProvenanceEquity    Provenance = "equity"
	ProvenanceCrypto    Provenance = "crypto"
	ProvenanceLocalFeed Provenance = "localfeed"
)

// ParseProvenance maps a config string onto a known provenance.
func ParseProvenance(s string) (Provenance, error) {
	switch p := Provenance(strings.ToLower(strings.TrimSpace(s))); p {
	case ProvenanceEquity, ProvenanceCrypto, ProvenanceLocalFeed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provenance %q", s)
	}
}

// Timeframe is the bar size requested from a source.
type Timeframe string

const (
	TimeframeDaily  Timeframe = "daily"
	TimeframeHourly Timeframe = "hourly"
)

// ParseTimeframe accepts "daily"/"hourly" (case-insensitive); empty means daily.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(s))); tf {
	case "", TimeframeDaily:
		return TimeframeDaily, nil
	case TimeframeHourly:
		return TimeframeHourly, nil
	default:
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
}

// Instrument is one entry of the watch list.
type Instrument struct {
	Symbol     string     `json:"symbol" yaml:"symbol"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
	Name       string     `json:"name,omitempty" yaml:"name"`
}

// DisplayName returns Name when set, otherwise the symbol.
func (i Instrument) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Symbol
}
