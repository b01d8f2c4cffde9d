package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastSentinel/internal/model"
)

type engineFunc func(ctx context.Context, points []model.Point, h Horizon) ([]model.ForecastPoint, error)

func (f engineFunc) Forecast(ctx context.Context, points []model.Point, h Horizon) ([]model.ForecastPoint, error) {
	return f(ctx, points, h)
}

func dailyPoints(n int, value func(i int) float64) []model.Point {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]model.Point, n)
	for i := range points {
		points[i] = model.Point{Time: start.AddDate(0, 0, i), Value: value(i)}
	}
	return points
}

func TestFutureTimes(t *testing.T) {
	last := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC) // Wednesday

	days := FutureTimes(last, Horizon{Periods: 3, Unit: UnitDay})
	assert.Equal(t, []time.Time{last.AddDate(0, 0, 1), last.AddDate(0, 0, 2), last.AddDate(0, 0, 3)}, days)

	hours := FutureTimes(last, Horizon{Periods: 2, Unit: UnitHour})
	assert.Equal(t, last.Add(2*time.Hour), hours[1])

	weeks := FutureTimes(last, Horizon{Periods: 2, Unit: UnitWeek})
	assert.Equal(t, last.AddDate(0, 0, 14), weeks[1])

	sunday := time.Sunday
	anchored := FutureTimes(last, Horizon{Periods: 2, Unit: UnitWeek, Weekday: &sunday})
	require.Len(t, anchored, 2)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), anchored[0])
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), anchored[1])

	wednesday := time.Wednesday
	same := FutureTimes(last, Horizon{Periods: 1, Unit: UnitWeek, Weekday: &wednesday})
	assert.Equal(t, last.AddDate(0, 0, 7), same[0], "anchor is strictly after the last point")
}

func TestHorizon_ForTimeframe(t *testing.T) {
	h := DefaultHorizon()
	assert.Equal(t, UnitHour, h.ForTimeframe(model.TimeframeHourly).Unit)
	assert.Equal(t, UnitDay, h.ForTimeframe(model.TimeframeDaily).Unit)
	w := Horizon{Periods: 4, Unit: UnitWeek}
	assert.Equal(t, UnitWeek, w.ForTimeframe(model.TimeframeHourly).Unit)
}

func TestParseUnitAndWeekday(t *testing.T) {
	u, err := ParseUnit("")
	require.NoError(t, err)
	assert.Equal(t, UnitDay, u)
	_, err = ParseUnit("month")
	assert.Error(t, err)

	d, err := ParseWeekday("Mon")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)
	d, err = ParseWeekday("saturday")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)
	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func TestRun_RejectsBadOutput(t *testing.T) {
	ctx := context.Background()
	points := dailyPoints(5, func(i int) float64 { return float64(i) })
	h := Horizon{Periods: 2, Unit: UnitDay}

	short := engineFunc(func(context.Context, []model.Point, Horizon) ([]model.ForecastPoint, error) {
		return make([]model.ForecastPoint, 3), nil
	})
	_, err := Run(ctx, short, points, h)
	assert.ErrorIs(t, err, ErrForecastFailure)

	unordered := engineFunc(func(_ context.Context, pts []model.Point, h Horizon) ([]model.ForecastPoint, error) {
		out := make([]model.ForecastPoint, len(pts)+h.Periods)
		for i := range out {
			out[i].Time = pts[0].Time // all equal
		}
		return out, nil
	})
	_, err = Run(ctx, unordered, points, h)
	assert.ErrorIs(t, err, ErrForecastFailure)

	boom := errors.New("model exploded")
	failing := engineFunc(func(context.Context, []model.Point, Horizon) ([]model.ForecastPoint, error) {
		return nil, boom
	})
	_, err = Run(ctx, failing, points, h)
	assert.ErrorIs(t, err, ErrForecastFailure)
	assert.ErrorIs(t, err, boom)

	_, err = Run(ctx, NewLinearEngine(0), points[:1], h)
	assert.ErrorIs(t, err, ErrForecastFailure)

	_, err = Run(ctx, NewLinearEngine(0), points, Horizon{Unit: UnitDay})
	assert.ErrorIs(t, err, ErrForecastFailure)
}

func TestLinearEngine_ExtendsTrend(t *testing.T) {
	points := dailyPoints(30, func(i int) float64 { return 10 + 2*float64(i) })
	h := Horizon{Periods: 5, Unit: UnitDay}

	out, err := Run(context.Background(), NewLinearEngine(0.8), points, h)
	require.NoError(t, err)
	require.Len(t, out, 35)

	assert.Equal(t, points[29].Time.AddDate(0, 0, 5), out[34].Time)
	assert.InDelta(t, 10+2*34.0, out[34].Estimate, 1e-6)
	assert.InDelta(t, out[34].Estimate, out[34].Lower, 1e-6)
	assert.InDelta(t, out[34].Estimate, out[34].Upper, 1e-6)
	assert.Equal(t, out[34].Estimate, out[34].Trend)
}

func TestLinearEngine_BandCoversNoise(t *testing.T) {
	points := dailyPoints(40, func(i int) float64 {
		if i%2 == 0 {
			return 100 + 3
		}
		return 100 - 3
	})
	out, err := Run(context.Background(), NewLinearEngine(0.8), points, DefaultHorizon())
	require.NoError(t, err)
	require.Len(t, out, 40+DefaultPeriods)
	for _, p := range out {
		assert.Less(t, p.Lower, p.Estimate)
		assert.Greater(t, p.Upper, p.Estimate)
	}
}

func TestLinearEngine_BadInterval(t *testing.T) {
	points := dailyPoints(5, func(i int) float64 { return 1 })
	_, err := Run(context.Background(), NewLinearEngine(1.5), points, Horizon{Periods: 1, Unit: UnitDay})
	assert.ErrorIs(t, err, ErrForecastFailure)
}

func TestPointsFromCloses(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := PointsFromCloses([]model.Bar{{Time: ts, Open: 1, Close: 2}})
	assert.Equal(t, []model.Point{{Time: ts, Value: 2}}, points)
}
