package dividend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ForecastSentinel/internal/forecast"
	"ForecastSentinel/internal/model"
)

// ExDateLister lists cash dividends by ex-dividend date.
type ExDateLister interface {
	ByExDate(ctx context.Context, date time.Time) ([]model.Dividend, error)
}

// BandSource fetches an instrument and returns its smoothed forecast band.
type BandSource interface {
	Smoothed(ctx context.Context, h forecast.Horizon, inst model.Instrument, tf model.Timeframe, s forecast.Smoothing) (model.PriceSeries, []model.SmoothedPoint, error)
}

var hundred = decimal.NewFromInt(100)

// Hunter finds high-yield dividends trading below their forecast band.
type Hunter struct {
	Dividends      ExDateLister
	Bands          BandSource
	Horizon        forecast.Horizon
	Smoothing      forecast.Smoothing
	MinYearlyYield decimal.Decimal
	// Budget is the notional investment per candidate (default 100).
	Budget      decimal.Decimal
	Concurrency int
	logger      *zap.Logger
}

// NewHunter creates a hunter with daily savgol smoothing and a 5% yield floor.
func NewHunter(divs ExDateLister, bands BandSource, minYearlyYield float64, logger *zap.Logger) *Hunter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minYearlyYield <= 0 {
		minYearlyYield = 5
	}
	return &Hunter{
		Dividends:      divs,
		Bands:          bands,
		Horizon:        forecast.DefaultHorizon(),
		Smoothing:      forecast.DefaultSavGol(),
		MinYearlyYield: decimal.NewFromFloat(minYearlyYield),
		Budget:         hundred,
		Concurrency:    4,
		logger:         logger,
	}
}

// Hunt returns the dividends going ex on date whose yearly yield exceeds the
// floor and whose latest close is below the smoothed lower band, sorted by
// yearly yield descending. Tickers whose prices or forecast fail are skipped.
func (h *Hunter) Hunt(ctx context.Context, date time.Time) ([]model.YieldCandidate, error) {
	divs, err := h.Dividends.ByExDate(ctx, date)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out []model.YieldCandidate
		g   errgroup.Group
	)
	if h.Concurrency > 0 {
		g.SetLimit(h.Concurrency)
	}
	for _, d := range divs {
		d := d
		g.Go(func() error {
			c, ok := h.evaluate(ctx, d)
			if ok {
				mu.Lock()
				out = append(out, c)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].YearlyPercentage.Equal(out[j].YearlyPercentage) {
			return out[i].YearlyPercentage.GreaterThan(out[j].YearlyPercentage)
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out, nil
}

func (h *Hunter) evaluate(ctx context.Context, d model.Dividend) (model.YieldCandidate, bool) {
	log := h.logger.With(zap.String("ticker", d.Ticker))
	inst := model.Instrument{Symbol: d.Ticker, Provenance: model.ProvenanceEquity}
	ps, smoothed, err := h.Bands.Smoothed(ctx, h.Horizon, inst, model.TimeframeDaily, h.Smoothing)
	if err != nil {
		log.Warn("yield hunter skipped ticker", zap.Error(err))
		return model.YieldCandidate{}, false
	}
	last, ok := ps.Last()
	if !ok || last.Close <= 0 {
		return model.YieldCandidate{}, false
	}

	c := Candidate(d, decimal.NewFromFloat(last.Close), h.Budget)
	if !c.YearlyPercentage.GreaterThan(h.MinYearlyYield) {
		return model.YieldCandidate{}, false
	}
	lower := lowerBandAt(smoothed, last.Time)
	if lower == nil || last.Close >= *lower {
		log.Debug("yield candidate not below band", zap.Float64("close", last.Close))
		return model.YieldCandidate{}, false
	}
	return c, true
}

// Candidate computes the yield figures and the position a budget buys.
func Candidate(d model.Dividend, closePrice, budget decimal.Decimal) model.YieldCandidate {
	pct := d.CashAmount.Div(closePrice).Mul(hundred)
	freq := decimal.NewFromInt(int64(d.Frequency))
	shares := budget.Div(closePrice).Floor()
	next := shares.Mul(d.CashAmount)
	return model.YieldCandidate{
		Dividend:         d,
		ClosePrice:       closePrice,
		Percentage:       pct,
		YearlyPercentage: pct.Mul(freq),
		Shares:           shares.IntPart(),
		PurchaseCost:     shares.Mul(closePrice),
		NextDividendPay:  next,
		YearlyDividend:   next.Mul(freq),
	}
}

func lowerBandAt(points []model.SmoothedPoint, t time.Time) *float64 {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Time.Equal(t) {
			return points[i].LowerBand
		}
	}
	return nil
}
