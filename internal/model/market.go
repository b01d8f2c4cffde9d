package model

import "time"

// Bar represents a single OHLC candlestick bar.
type Bar struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// PriceSeries holds the bars of one instrument in strictly increasing time order.
type PriceSeries struct {
	Symbol    string
	Timeframe Timeframe
	Bars      []Bar
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes returns the close prices in chronological order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar and false when the series is empty.
func (s PriceSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// IndexSummary is one tile of the market overview strip.
type IndexSummary struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	LastClose    float64 `json:"last_close"`
	AverageClose float64 `json:"average_close"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Error        string  `json:"error,omitempty"`
}
