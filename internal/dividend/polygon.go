package dividend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ForecastSentinel/internal/model"
)

const (
	defaultPolygonBaseURL = "https://api.polygon.io"
	dateLayout            = "2006-01-02"
	// maxPages bounds next_url pagination for one ex-date query.
	maxPages = 10
)

var (
	ErrNoAPIKey = errors.New("polygon api key not configured")
	ErrLookup   = errors.New("dividend lookup failed")
)

// Client queries the Polygon.io dividends reference endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a Polygon client with optional proxy support.
func NewClient(baseURL, apiKey, proxyURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultPolygonBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout, Transport: transport},
		logger:  logger,
	}
}

type polygonDividend struct {
	Ticker         string          `json:"ticker"`
	CashAmount     decimal.Decimal `json:"cash_amount"`
	ExDividendDate string          `json:"ex_dividend_date"`
	PayDate        string          `json:"pay_date"`
	Frequency      int             `json:"frequency"`
}

type polygonPage struct {
	Status  string            `json:"status"`
	Error   string            `json:"error"`
	Results []polygonDividend `json:"results"`
	NextURL string            `json:"next_url"`
}

// ByTicker returns the most recent dividend for ticker, or none.
func (c *Client) ByTicker(ctx context.Context, ticker string) ([]model.Dividend, error) {
	q := url.Values{}
	q.Set("ticker", strings.ToUpper(ticker))
	q.Set("limit", "1")
	q.Set("order", "desc")
	q.Set("sort", "ex_dividend_date")
	page, err := c.get(ctx, c.BaseURL+"/v3/reference/dividends?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return convert(page.Results)
}

// TickerTable is ByTicker with the table fallback: any failure yields an
// empty table and a warning.
func (c *Client) TickerTable(ctx context.Context, ticker string) []model.Dividend {
	divs, err := c.ByTicker(ctx, ticker)
	if err != nil {
		c.logger.Warn("dividend table lookup failed, showing empty table",
			zap.String("ticker", ticker), zap.Error(err))
		return []model.Dividend{}
	}
	return divs
}

// ByExDate returns every cash dividend going ex on date, in ticker order as
// served by the API.
func (c *Client) ByExDate(ctx context.Context, date time.Time) ([]model.Dividend, error) {
	q := url.Values{}
	q.Set("ex_dividend_date", date.Format(dateLayout))
	q.Set("dividend_type", "CD")
	q.Set("order", "asc")
	q.Set("limit", "1000")
	q.Set("sort", "ex_dividend_date")
	next := c.BaseURL + "/v3/reference/dividends?" + q.Encode()

	var out []model.Dividend
	for i := 0; next != "" && i < maxPages; i++ {
		page, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		divs, err := convert(page.Results)
		if err != nil {
			return nil, err
		}
		out = append(out, divs...)
		next = page.NextURL
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (polygonPage, error) {
	if c.APIKey == "" {
		return polygonPage{}, ErrNoAPIKey
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return polygonPage{}, err
	}
	q := u.Query()
	q.Set("apiKey", c.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return polygonPage{}, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return polygonPage{}, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return polygonPage{}, fmt.Errorf("%w: read body: %w", ErrLookup, err)
	}
	if resp.StatusCode != http.StatusOK {
		return polygonPage{}, fmt.Errorf("%w: status %d, body: %s", ErrLookup, resp.StatusCode, string(body))
	}
	var page polygonPage
	if err := json.Unmarshal(body, &page); err != nil {
		return polygonPage{}, fmt.Errorf("%w: decode: %w", ErrLookup, err)
	}
	if page.Status == "ERROR" {
		return polygonPage{}, fmt.Errorf("%w: %s", ErrLookup, page.Error)
	}
	return page, nil
}

func convert(in []polygonDividend) ([]model.Dividend, error) {
	out := make([]model.Dividend, 0, len(in))
	for _, d := range in {
		ex, err := parseDate(d.ExDividendDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %s ex_dividend_date: %w", ErrLookup, d.Ticker, err)
		}
		pay, err := parseDate(d.PayDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %s pay_date: %w", ErrLookup, d.Ticker, err)
		}
		out = append(out, model.Dividend{
			Ticker:         d.Ticker,
			CashAmount:     d.CashAmount,
			ExDividendDate: ex,
			PayDate:        pay,
			Frequency:      d.Frequency,
		})
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// ParseDate parses a YYYY-MM-DD query parameter.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
