package model

import "time"

// Point is one (date, value) observation fed to a forecast engine.
type Point struct {
	Time  time.Time
	Value float64
}

// ForecastPoint is one row of raw forecast output.
// Lower <= Estimate <= Upper is expected but not guaranteed.
type ForecastPoint struct {
	Time     time.Time
	Estimate float64
	Lower    float64
	Upper    float64
	Trend    float64
}

// SmoothedPoint is a post-processed forecast row. Nil fields are undefined.
type SmoothedPoint struct {
	Time      time.Time `json:"time"`
	Predicted *float64  `json:"predicted_price"`
	LowerBand *float64  `json:"lower_band"`
	UpperBand *float64  `json:"upper_band"`
	Trend     *float64  `json:"trend"`
}

// MergedRow is one row of the outer join between bars and smoothed forecast.
type MergedRow struct {
	Time      time.Time `json:"time"`
	Open      *float64  `json:"open"`
	High      *float64  `json:"high"`
	Low       *float64  `json:"low"`
	Close     *float64  `json:"close"`
	Predicted *float64  `json:"predicted_price"`
	LowerBand *float64  `json:"lower_band"`
	UpperBand *float64  `json:"upper_band"`
	Trend     *float64  `json:"trend"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
