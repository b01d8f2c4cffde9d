package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ForecastSentinel/internal/model"
)

const (
	defaultKucoinBaseURL = "https://api.kucoin.com"
	kucoinSuccessCode    = "200000"
	// kucoinMaxCandles is the per-request candle cap of the public endpoint.
	kucoinMaxCandles = 1500
)

// KucoinFetcher fetches crypto candles from the KuCoin public market API.
type KucoinFetcher struct {
	BaseURL string
	Client  *http.Client
	// HistoryDays is the trailing window requested (default 730).
	HistoryDays int

	limiter *rate.Limiter
	now     func() time.Time
	logger  *zap.Logger
}

// KucoinOption customises a KucoinFetcher.
type KucoinOption func(*KucoinFetcher)

// WithKucoinBaseURL overrides the API host.
func WithKucoinBaseURL(u string) KucoinOption {
	return func(f *KucoinFetcher) {
		if u != "" {
			f.BaseURL = u
		}
	}
}

// WithKucoinHTTPClient injects a custom http.Client.
func WithKucoinHTTPClient(c *http.Client) KucoinOption {
	return func(f *KucoinFetcher) {
		if c != nil {
			f.Client = c
		}
	}
}

// WithKucoinClock overrides the time source used for the request window.
func WithKucoinClock(now func() time.Time) KucoinOption {
	return func(f *KucoinFetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithKucoinLogger injects a logger.
func WithKucoinLogger(l *zap.Logger) KucoinOption {
	return func(f *KucoinFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewKucoinFetcher creates a fetcher limited to the public VIP0 budget
// (2000 requests per 30 seconds).
func NewKucoinFetcher(proxyURL string, timeout time.Duration, opts ...KucoinOption) *KucoinFetcher {
	f := &KucoinFetcher{
		BaseURL:     defaultKucoinBaseURL,
		Client:      newHTTPClient(proxyURL, timeout),
		HistoryDays: 730,
		limiter:     rate.NewLimiter(rate.Limit(2000.0/30.0), 20),
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *KucoinFetcher) Name() string { return "kucoin" }

// kucoinCandles is the candles endpoint envelope. Each row is
// [time, open, close, high, low, volume, turnover] encoded as strings.
type kucoinCandles struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

func candleType(tf model.Timeframe) (string, time.Duration) {
	if tf == model.TimeframeHourly {
		return "1hour", time.Hour
	}
	return "1day", 24 * time.Hour
}

// Fetch returns the trailing window of candles, paging backwards when the
// window exceeds the per-request cap.
func (f *KucoinFetcher) Fetch(ctx context.Context, inst model.Instrument, tf model.Timeframe) (model.PriceSeries, error) {
	kind, step := candleType(tf)
	end := f.now().UTC()
	start := end.AddDate(0, 0, -f.HistoryDays)

	var bars []model.Bar
	span := step * kucoinMaxCandles
	for chunkEnd := end; chunkEnd.After(start); chunkEnd = chunkEnd.Add(-span) {
		chunkStart := chunkEnd.Add(-span)
		if chunkStart.Before(start) {
			chunkStart = start
		}
		chunk, err := f.fetchChunk(ctx, inst.Symbol, kind, chunkStart, chunkEnd)
		if err != nil {
			return model.PriceSeries{}, err
		}
		bars = append(bars, chunk...)
	}

	bars = Normalize(bars)
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: kucoin: no candles for %s", ErrDataUnavailable, inst.Symbol)
	}
	return model.PriceSeries{
		Symbol:    inst.Symbol,
		Timeframe: tf,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}

func (f *KucoinFetcher) fetchChunk(ctx context.Context, symbol, kind string, start, end time.Time) ([]model.Bar, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: kucoin rate limit: %w", ErrDataUnavailable, err)
	}

	q := url.Values{}
	q.Set("type", kind)
	q.Set("symbol", symbol)
	q.Set("startAt", strconv.FormatInt(start.Unix(), 10))
	q.Set("endAt", strconv.FormatInt(end.Unix(), 10))
	endpoint := f.BaseURL + "/api/v1/market/candles?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: kucoin fetch %s: %w", ErrDataUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: kucoin read body: %w", ErrDataUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: kucoin %s: status %d, body: %s", ErrDataUnavailable, symbol, resp.StatusCode, string(body))
	}

	var payload kucoinCandles
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: kucoin decode: %w", ErrDataUnavailable, err)
	}
	if payload.Code != kucoinSuccessCode {
		return nil, fmt.Errorf("%w: kucoin api code %s: %s", ErrDataUnavailable, payload.Code, payload.Msg)
	}

	bars := make([]model.Bar, 0, len(payload.Data))
	for i, row := range payload.Data {
		bar, err := parseKucoinRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: kucoin row %d: %w", ErrDataUnavailable, i, err)
		}
		bars = append(bars, bar)
	}
	f.logger.Debug("kucoin chunk fetched",
		zap.String("symbol", symbol), zap.String("type", kind), zap.Int("candles", len(bars)))
	return bars, nil
}

// parseKucoinRow remaps [time, open, close, high, low, ...] into a Bar.
func parseKucoinRow(row []string) (model.Bar, error) {
	if len(row) < 5 {
		return model.Bar{}, fmt.Errorf("expected at least 5 fields, got %d", len(row))
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return model.Bar{}, fmt.Errorf("time %q: %w", row[0], err)
	}
	vals := make([]float64, 4)
	for i, s := range row[1:5] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("field %d %q: %w", i+1, s, err)
		}
		vals[i] = v
	}
	return model.Bar{
		Time:  time.Unix(ts, 0).UTC(),
		Open:  vals[0],
		Close: vals[1],
		High:  vals[2],
		Low:   vals[3],
	}, nil
}
