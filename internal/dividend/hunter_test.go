package dividend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastSentinel/internal/forecast"
	"ForecastSentinel/internal/model"
)

type fakeLister struct {
	divs []model.Dividend
	err  error
}

func (f fakeLister) ByExDate(context.Context, time.Time) ([]model.Dividend, error) {
	return f.divs, f.err
}

type band struct {
	price float64
	lower float64
}

type fakeBands map[string]band

func (f fakeBands) Smoothed(_ context.Context, _ forecast.Horizon, inst model.Instrument, tf model.Timeframe, _ forecast.Smoothing) (model.PriceSeries, []model.SmoothedPoint, error) {
	b, ok := f[inst.Symbol]
	if !ok {
		return model.PriceSeries{}, nil, errors.New("no prices")
	}
	ts := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
	ps := model.PriceSeries{Symbol: inst.Symbol, Timeframe: tf, Bars: []model.Bar{{Time: ts, Close: b.price}}}
	pts := []model.SmoothedPoint{
		{Time: ts, LowerBand: model.Float(b.lower)},
		{Time: ts.AddDate(0, 0, 1), LowerBand: model.Float(0)},
	}
	return ps, pts, nil
}

func div(ticker, cash string, freq int) model.Dividend {
	return model.Dividend{Ticker: ticker, CashAmount: decimal.RequireFromString(cash), Frequency: freq}
}

func TestCandidate(t *testing.T) {
	c := Candidate(div("AAA", "0.5", 4), decimal.NewFromInt(30), decimal.NewFromInt(100))
	assert.Equal(t, "1.6667", c.Percentage.Round(4).String())
	assert.Equal(t, int64(3), c.Shares)
	assert.Equal(t, "90", c.PurchaseCost.String())
	assert.Equal(t, "1.5", c.NextDividendPay.String())
	assert.Equal(t, "6", c.YearlyDividend.String())
}

func TestHunter_Hunt(t *testing.T) {
	lister := fakeLister{divs: []model.Dividend{
		div("LOWYIELD", "0.1", 4), // 1% x4 = 4% yearly, below floor
		div("ABOVEBAND", "1", 4),  // 10% x4, close above band
		div("GOOD", "1", 4),       // 10% x4 = 40%
		div("BETTER", "1", 12),    // 5% x12 = 60%
		div("MISSING", "5", 12),   // no prices
	}}
	bands := fakeBands{
		"LOWYIELD":  {price: 10, lower: 20},
		"ABOVEBAND": {price: 10, lower: 9},
		"GOOD":      {price: 10, lower: 11},
		"BETTER":    {price: 20, lower: 21},
	}

	h := NewHunter(lister, bands, 5, nil)
	got, err := h.Hunt(context.Background(), time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "BETTER", got[0].Ticker)
	assert.Equal(t, "60", got[0].YearlyPercentage.String())
	assert.Equal(t, int64(5), got[0].Shares)
	assert.Equal(t, "GOOD", got[1].Ticker)
	assert.Equal(t, "40", got[1].YearlyPercentage.String())
	assert.Equal(t, int64(10), got[1].Shares)
	assert.Equal(t, "40", got[1].YearlyDividend.String())
}

func TestHunter_ListerError(t *testing.T) {
	h := NewHunter(fakeLister{err: ErrNoAPIKey}, fakeBands{}, 0, nil)
	_, err := h.Hunt(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
