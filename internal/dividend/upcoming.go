package dividend

import (
	"sort"
	"time"

	"ForecastSentinel/internal/model"
)

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Upcoming keeps entries whose pay date falls within [start, end] by calendar
// date, ordered by pay date. Entries without a pay date are dropped.
func Upcoming(entries []model.Dividend, start, end time.Time) []model.Dividend {
	from, to := dateOf(start), dateOf(end)
	out := make([]model.Dividend, 0, len(entries))
	for _, e := range entries {
		if e.PayDate.IsZero() {
			continue
		}
		pay := dateOf(e.PayDate)
		if pay.Before(from) || pay.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PayDate.Before(out[j].PayDate) })
	return out
}
