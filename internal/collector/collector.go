package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ForecastSentinel/internal/calculator"
	"ForecastSentinel/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
type MockSource struct {
	Price float64
	Bars  []model.Bar
	Err   error
	Calls int
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fetch(_ context.Context, inst model.Instrument, tf model.Timeframe) (model.PriceSeries, error) {
	m.Calls++
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	bars := m.Bars
	if bars == nil {
		bars = generateMockBars(m.Price, 300, time.Now())
	}
	return model.PriceSeries{Symbol: inst.Symbol, Timeframe: tf, Bars: bars, FetchedAt: time.Now()}, nil
}

func generateMockBars(basePrice float64, count int, end time.Time) []model.Bar {
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:  end.AddDate(0, 0, -(count - 1 - i)),
			Open:  p * 0.999,
			High:  p * 1.005,
			Low:   p * 0.995,
			Close: p,
		}
	}
	return bars
}

// ChartFetcher is the subset of YahooFetcher the overview needs.
type ChartFetcher interface {
	FetchChart(ctx context.Context, symbol, interval, rng string) ([]model.Bar, error)
}

// DefaultOverviewSymbols are the index strip tickers: volatility, S&P 500, crude, gold.
var DefaultOverviewSymbols = map[string]string{
	"^VIX":  "VIX Volatility Index",
	"^GSPC": "S&P 500 Index",
	"CL=F":  "Crude Oil",
	"GC=F":  "Gold",
}

// Collector builds the market overview strip from one year of daily bars.
type Collector struct {
	Fetcher ChartFetcher
	Symbols []string
	Names   map[string]string
	logger  *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher ChartFetcher, symbols []string, names map[string]string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Symbols: symbols, Names: names, logger: logger}
}

// Overview fetches each symbol and summarises it. A failed symbol yields a
// tile carrying the error instead of failing the whole strip.
func (c *Collector) Overview(ctx context.Context) []model.IndexSummary {
	out := make([]model.IndexSummary, 0, len(c.Symbols))
	for _, sym := range c.Symbols {
		tile, err := c.summary(ctx, sym)
		if err != nil {
			c.logger.Warn("overview symbol failed", zap.String("symbol", sym), zap.Error(err))
			tile = model.IndexSummary{Symbol: sym, Error: err.Error()}
		}
		tile.Name = c.Names[sym]
		out = append(out, tile)
	}
	return out
}

func (c *Collector) summary(ctx context.Context, symbol string) (model.IndexSummary, error) {
	bars, err := c.Fetcher.FetchChart(ctx, symbol, "1d", "1y")
	if err != nil {
		return model.IndexSummary{}, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return calculator.Summarize(model.PriceSeries{Symbol: symbol, Bars: bars})
}
