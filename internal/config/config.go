package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ForecastSentinel/internal/autotrade"
	"ForecastSentinel/internal/forecast"
	"ForecastSentinel/internal/model"
	"ForecastSentinel/internal/scheduler"
)

// Autotrade state backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Instruments []model.Instrument `yaml:"instruments"`
	Forecast    struct {
		Horizon int    `yaml:"horizon"`
		Unit    string `yaml:"unit"`
		Weekday string `yaml:"weekday"`
	} `yaml:"forecast"`
	Smoothing map[model.Provenance]forecast.Smoothing `yaml:"smoothing"`
	Sources   struct {
		YahooBaseURL  string        `yaml:"yahoo_base_url"`
		KucoinBaseURL string        `yaml:"kucoin_base_url"`
		MT4BaseDir    string        `yaml:"mt4_base_dir"`
		Timeout       time.Duration `yaml:"timeout"`
		HistoryDays   int           `yaml:"history_days"`
	} `yaml:"sources"`
	Autotrade struct {
		WebhookURL string        `yaml:"webhook_url"`
		AllowList  []string      `yaml:"allow_list"`
		Timeout    time.Duration `yaml:"timeout"`
		Store      string        `yaml:"store"`
		StateFile  string        `yaml:"state_file"`
	} `yaml:"autotrade"`
	Dividends struct {
		PolygonBaseURL string  `yaml:"polygon_base_url"`
		APIKey         string  `yaml:"api_key"`
		MinYearlyYield float64 `yaml:"min_yearly_yield"`
	} `yaml:"dividends"`
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DefaultInstruments is the dashboard watch list.
func DefaultInstruments() []model.Instrument {
	return []model.Instrument{
		{Symbol: "BTC-USDC", Provenance: model.ProvenanceCrypto, Name: "Bitcoin"},
		{Symbol: "ETH-USDC", Provenance: model.ProvenanceCrypto, Name: "Ethereum"},
		{Symbol: "SPLG", Provenance: model.ProvenanceEquity, Name: "S&P 500 ETF"},
		{Symbol: "GLD", Provenance: model.ProvenanceEquity, Name: "Gold ETF"},
		{Symbol: "EURUSD", Provenance: model.ProvenanceLocalFeed, Name: "EUR/USD"},
		{Symbol: "XAUUSD", Provenance: model.ProvenanceLocalFeed, Name: "Gold Futures"},
	}
}

// Load reads .env, the YAML file, then applies environment variable overrides
// and defaults. A missing file yields an all-default config.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalizeInstruments()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"POLYGON_IO_API":        &c.Dividends.APIKey,
		"TELEGRAM_BOT_TOKEN":    &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":      &c.Telegram.ChatID,
		"AUTOTRADE_WEBHOOK_URL": &c.Autotrade.WebhookURL,
		"HTTPS_PROXY":           &c.Proxy,
		"SQLITE_PATH":           &c.Database.SQLitePath,
		"REDIS_ADDR":            &c.Redis.Addr,
		"HTTP_ADDR":             &c.HTTP.Addr,
		"MT4_BASE_DIR":          &c.Sources.MT4BaseDir,
		"REFRESH_CRON":          &c.Schedule.RefreshCron,
		"LOG_LEVEL":             &c.Log.Level,
	}
	for env, field := range overrides {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if len(c.Instruments) == 0 {
		c.Instruments = DefaultInstruments()
	}
	if c.Forecast.Horizon == 0 {
		c.Forecast.Horizon = forecast.DefaultPeriods
	}
	if c.Smoothing == nil {
		c.Smoothing = make(map[model.Provenance]forecast.Smoothing)
	}
	for _, p := range []model.Provenance{model.ProvenanceEquity, model.ProvenanceCrypto, model.ProvenanceLocalFeed} {
		if _, ok := c.Smoothing[p]; !ok {
			c.Smoothing[p] = forecast.DefaultSMA()
		}
	}
	for p, s := range c.Smoothing {
		c.Smoothing[p] = s.Normalize()
	}
	if c.Sources.MT4BaseDir == "" {
		c.Sources.MT4BaseDir = "data/mt4"
	}
	if c.Sources.Timeout == 0 {
		c.Sources.Timeout = 30 * time.Second
	}
	if c.Sources.HistoryDays == 0 {
		c.Sources.HistoryDays = 730
	}
	if c.Autotrade.WebhookURL == "" {
		c.Autotrade.WebhookURL = autotrade.DefaultWebhookURL
	}
	if len(c.Autotrade.AllowList) == 0 {
		c.Autotrade.AllowList = []string{"BTC-USDC"}
	}
	if c.Autotrade.Timeout == 0 {
		c.Autotrade.Timeout = 10 * time.Second
	}
	if c.Autotrade.Store == "" {
		c.Autotrade.Store = StoreFile
	}
	if c.Autotrade.StateFile == "" {
		c.Autotrade.StateFile = "data/autotrade_state.json"
	}
	if c.Dividends.MinYearlyYield == 0 {
		c.Dividends.MinYearlyYield = 5
	}
	if c.Telegram.MaxRetries == 0 {
		c.Telegram.MaxRetries = 3
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/forecast_sentinel.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = scheduler.DefaultRefreshCron
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Horizon builds the forecast horizon from the forecast section.
func (c *Config) Horizon() (forecast.Horizon, error) {
	unit, err := forecast.ParseUnit(c.Forecast.Unit)
	if err != nil {
		return forecast.Horizon{}, err
	}
	h := forecast.Horizon{Periods: c.Forecast.Horizon, Unit: unit}
	if c.Forecast.Weekday != "" {
		wd, err := forecast.ParseWeekday(c.Forecast.Weekday)
		if err != nil {
			return forecast.Horizon{}, err
		}
		h.Weekday = &wd
	}
	return h, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Forecast.Horizon <= 0 {
		return fmt.Errorf("forecast.horizon must be positive, got %d", c.Forecast.Horizon)
	}
	if _, err := c.Horizon(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}

	watched := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if strings.TrimSpace(inst.Symbol) == "" {
			return fmt.Errorf("instruments[%d]: symbol is required", i)
		}
		if _, err := model.ParseProvenance(string(inst.Provenance)); err != nil {
			return fmt.Errorf("instruments[%d] %s: %w", i, inst.Symbol, err)
		}
		watched[strings.ToUpper(inst.Symbol)] = true
	}

	for p, s := range c.Smoothing {
		if _, err := model.ParseProvenance(string(p)); err != nil {
			return fmt.Errorf("smoothing: %w", err)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("smoothing.%s: %w", p, err)
		}
	}

	switch c.Autotrade.Store {
	case StoreFile, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("autotrade.store: unknown backend %q", c.Autotrade.Store)
	}
	if c.Autotrade.Store == StoreRedis && c.Redis.Addr == "" {
		return fmt.Errorf("autotrade.store redis requires redis.addr")
	}
	for _, sym := range c.Autotrade.AllowList {
		if !watched[strings.ToUpper(sym)] {
			return fmt.Errorf("autotrade.allow_list: %s is not on the watch list", sym)
		}
	}
	return nil
}

// normalizeInstruments lower-cases provenance values read from YAML.
func (c *Config) normalizeInstruments() {
	for i, inst := range c.Instruments {
		if p, err := model.ParseProvenance(string(inst.Provenance)); err == nil {
			c.Instruments[i].Provenance = p
		}
	}
}
