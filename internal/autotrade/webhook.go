package autotrade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultWebhookURL is the 3Commas TradingView signal endpoint.
const DefaultWebhookURL = "https://3commas.io/trade_signal/trading_view"

// ErrDispatchFailure is returned when the webhook does not accept a message.
var ErrDispatchFailure = errors.New("dispatch failure")

// Webhook posts trade messages to the trading-bot endpoint. It never retries.
type Webhook struct {
	URL    string
	Client *http.Client
	logger *zap.Logger
}

// NewWebhook creates a webhook client with optional proxy support.
func NewWebhook(endpoint, proxyURL string, timeout time.Duration, logger *zap.Logger) *Webhook {
	if endpoint == "" {
		endpoint = DefaultWebhookURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
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
	return &Webhook{
		URL:    endpoint,
		Client: &http.Client{Timeout: timeout, Transport: transport},
		logger: logger,
	}
}

// Post sends msg as JSON. Only 200 OK counts as success.
func (w *Webhook) Post(ctx context.Context, msg TradeMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", ErrDispatchFailure, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrDispatchFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post webhook: %w", ErrDispatchFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: webhook status %d, body: %s", ErrDispatchFailure, resp.StatusCode, string(respBody))
	}
	w.logger.Debug("webhook accepted", zap.String("url", w.URL))
	return nil
}
