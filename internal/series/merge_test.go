package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastSentinel/internal/model"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func bars(days ...int) []model.Bar {
	out := make([]model.Bar, len(days))
	for i, d := range days {
		v := float64(100 + d)
		out[i] = model.Bar{Time: day(d), Open: v, High: v + 1, Low: v - 1, Close: v}
	}
	return out
}

func smoothed(days ...int) []model.SmoothedPoint {
	out := make([]model.SmoothedPoint, len(days))
	for i, d := range days {
		v := float64(100 + d)
		out[i] = model.SmoothedPoint{Time: day(d), Predicted: model.Float(v), LowerBand: model.Float(v - 2), UpperBand: model.Float(v + 2)}
	}
	return out
}

func TestMerge_OuterJoinKeepsBothTails(t *testing.T) {
	rows := Merge(bars(0, 1, 2, 3), smoothed(2, 3, 4, 5))
	require.Len(t, rows, 6)

	for i, r := range rows {
		assert.Equal(t, day(i), r.Time)
	}
	assert.NotNil(t, rows[0].Close)
	assert.Nil(t, rows[0].Predicted, "history before the forecast has no band")
	assert.NotNil(t, rows[2].Close)
	assert.NotNil(t, rows[2].LowerBand)
	assert.Nil(t, rows[5].Close, "future tail has no OHLC")
	assert.NotNil(t, rows[5].UpperBand)
}

func TestMerge_KeySetIsUnionAndCommutative(t *testing.T) {
	a := Merge(bars(0, 2, 4), smoothed(1, 2, 3))
	b := Merge(nil, smoothed(1, 2, 3))
	c := Merge(bars(0, 2, 4), nil)

	keys := func(rows []model.MergedRow) []time.Time {
		out := make([]time.Time, len(rows))
		for i, r := range rows {
			out[i] = r.Time
		}
		return out
	}
	assert.Equal(t, []time.Time{day(0), day(1), day(2), day(3), day(4)}, keys(a))
	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, keys(b))
	assert.Equal(t, []time.Time{day(0), day(2), day(4)}, keys(c))

	// Input order does not change the result.
	reversedBars := bars(4, 2, 0)
	reversedPts := smoothed(3, 2, 1)
	assert.Equal(t, a, Merge(reversedBars, reversedPts))
}

func TestMerge_SelfMergeHasNoDuplicates(t *testing.T) {
	in := bars(0, 1, 2)
	rows := Merge(append(in, in...), append(smoothed(0, 1, 2), smoothed(0, 1, 2)...))
	assert.Len(t, rows, 3)
	assert.Equal(t, Merge(in, smoothed(0, 1, 2)), rows)
}

func TestLastObserved(t *testing.T) {
	rows := Merge(bars(0, 1), smoothed(0, 1, 2, 3))
	assert.Equal(t, 1, LastObserved(rows))
	assert.Equal(t, -1, LastObserved(Merge(nil, smoothed(0))))
}
