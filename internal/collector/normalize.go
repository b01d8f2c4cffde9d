package collector

import (
	"fmt"
	"sort"

	"ForecastSentinel/internal/model"
)

// Normalize sorts bars ascending and collapses duplicate timestamps, keeping
// the bar that appeared last in the input.
func Normalize(bars []model.Bar) []model.Bar {
	if len(bars) == 0 {
		return bars
	}
	out := make([]model.Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:1]
	for _, b := range out[1:] {
		last := &dedup[len(dedup)-1]
		if b.Time.Equal(last.Time) {
			*last = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// Validate checks that bar timestamps are strictly increasing.
func Validate(bars []model.Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d at %s not after %s", i, bars[i].Time, bars[i-1].Time)
		}
	}
	return nil
}
