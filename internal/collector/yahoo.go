package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"ForecastSentinel/internal/model"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher fetches equity and index bars from the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	logger    *zap.Logger
}

// YahooOption customises a YahooFetcher.
type YahooOption func(*YahooFetcher)

// WithYahooBaseURL overrides the API host.
func WithYahooBaseURL(u string) YahooOption {
	return func(f *YahooFetcher) {
		if u != "" {
			f.BaseURL = u
		}
	}
}

// WithYahooHTTPClient injects a custom http.Client.
func WithYahooHTTPClient(c *http.Client) YahooOption {
	return func(f *YahooFetcher) {
		if c != nil {
			f.Client = c
		}
	}
}

// WithYahooLogger injects a logger.
func WithYahooLogger(l *zap.Logger) YahooOption {
	return func(f *YahooFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration, opts ...YahooOption) *YahooFetcher {
	f := &YahooFetcher{
		BaseURL: defaultYahooBaseURL,
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns two years of daily bars, or the last 730 days of hourly bars.
func (f *YahooFetcher) Fetch(ctx context.Context, inst model.Instrument, tf model.Timeframe) (model.PriceSeries, error) {
	interval, rng := "1d", "2y"
	if tf == model.TimeframeHourly {
		interval, rng = "1h", "730d"
	}
	bars, err := f.FetchChart(ctx, inst.Symbol, interval, rng)
	if err != nil {
		return model.PriceSeries{}, err
	}
	return model.PriceSeries{
		Symbol:    inst.Symbol,
		Timeframe: tf,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}

// FetchChart requests bars at the given Yahoo interval and range ("1d", "1y").
// Daily bars are keyed by exchange-local calendar date at UTC midnight.
func (f *YahooFetcher) FetchChart(ctx context.Context, symbol, interval, rng string) ([]model.Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch %s: %w", ErrDataUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %w", ErrDataUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo %s: status %d, body: %s", ErrDataUnavailable, symbol, resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %w", ErrDataUnavailable, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error: %s", ErrDataUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no data returned for %s", ErrDataUnavailable, symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	daily := interval == "1d" || interval == "1wk" || interval == "1mo"
	bars := make([]model.Bar, 0, len(result.Timestamp))

	skipped := 0
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			skipped++ // null bars (holidays, halted sessions)
			continue
		}
		t := time.Unix(ts, 0).UTC()
		if daily {
			local := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
			t = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		}
		bars = append(bars, model.Bar{Time: t, Open: *o, High: *h, Low: *l, Close: *c})
	}
	if skipped > 0 {
		f.logger.Debug("yahoo skipped null bars", zap.String("symbol", symbol), zap.Int("count", skipped))
	}

	bars = Normalize(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: yahoo: only null bars for %s", ErrDataUnavailable, symbol)
	}
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
