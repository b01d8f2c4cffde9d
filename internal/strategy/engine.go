package strategy

import (
	"ForecastSentinel/internal/forecast"
	"ForecastSentinel/internal/model"
)

// LookbackOffset is the distance from the end of a merged series to the last
// row that still carries an observed close: the forecast tail plus one.
func LookbackOffset(h forecast.Horizon) int {
	return h.Periods + 1
}

// Assess selects rows[len(rows)-offset] and classifies its close against the
// smoothed band. An offset outside the series yields SignalUndefined.
func Assess(rows []model.MergedRow, offset int) model.Assessment {
	idx := len(rows) - offset
	if offset <= 0 || idx < 0 {
		return model.Assessment{Signal: model.SignalUndefined}
	}
	row := rows[idx]
	a := model.Assessment{
		Time:  row.Time,
		Close: row.Close,
		Lower: row.LowerBand,
		Upper: row.UpperBand,
	}
	a.Signal = classify(row.Close, row.LowerBand, row.UpperBand)
	return a
}

// Evaluate returns only the classification of Assess.
func Evaluate(rows []model.MergedRow, offset int) model.Signal {
	return Assess(rows, offset).Signal
}

func classify(price, lower, upper *float64) model.Signal {
	if price == nil || lower == nil || upper == nil {
		return model.SignalUndefined
	}
	switch {
	case *price < *lower:
		return model.SignalBelowLower
	case *price > *upper:
		return model.SignalAboveUpper
	default:
		return model.SignalInBand
	}
}
