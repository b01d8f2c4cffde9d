package calculator

import (
	"errors"
	"math"

	"ForecastSentinel/internal/model"
)

// CalculateRange scans the bars and returns the highest high and lowest low.
func CalculateRange(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// Summarize builds an overview tile (last close, average close, range) for a series.
func Summarize(series model.PriceSeries) (model.IndexSummary, error) {
	last, ok := series.Last()
	if !ok {
		return model.IndexSummary{}, errors.New("empty series")
	}
	avg, err := Mean(series.Closes())
	if err != nil {
		return model.IndexSummary{}, err
	}
	high, low, err := CalculateRange(series.Bars)
	if err != nil {
		return model.IndexSummary{}, err
	}
	return model.IndexSummary{
		Symbol:       series.Symbol,
		LastClose:    last.Close,
		AverageClose: avg,
		High:         high,
		Low:          low,
	}, nil
}
