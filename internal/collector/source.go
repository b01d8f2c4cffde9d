package collector

import (
	"context"

	"ForecastSentinel/internal/model"
)

// Source fetches the OHLC history of one instrument.
type Source interface {
	Fetch(ctx context.Context, inst model.Instrument, tf model.Timeframe) (model.PriceSeries, error)
	Name() string
}
