// Package series joins observed bars with the smoothed forecast.
package series

import (
	"sort"
	"time"

	"ForecastSentinel/internal/model"
)

// Merge outer-joins bars and smoothed points on time. The key set is the
// union of both sides and rows come out in ascending time order. A timestamp
// repeated on one side collapses into a single row holding the later values.
func Merge(bars []model.Bar, smoothed []model.SmoothedPoint) []model.MergedRow {
	rows := make(map[int64]*model.MergedRow, len(bars)+len(smoothed))
	row := func(t time.Time) *model.MergedRow {
		key := t.UnixNano()
		r, ok := rows[key]
		if !ok {
			r = &model.MergedRow{Time: t}
			rows[key] = r
		}
		return r
	}

	for _, b := range bars {
		r := row(b.Time)
		r.Open = model.Float(b.Open)
		r.High = model.Float(b.High)
		r.Low = model.Float(b.Low)
		r.Close = model.Float(b.Close)
	}
	for _, p := range smoothed {
		r := row(p.Time)
		r.Predicted = p.Predicted
		r.LowerBand = p.LowerBand
		r.UpperBand = p.UpperBand
		r.Trend = p.Trend
	}

	out := make([]model.MergedRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// LastObserved returns the index of the newest row carrying a close, or -1.
func LastObserved(rows []model.MergedRow) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Close != nil {
			return i
		}
	}
	return -1
}
