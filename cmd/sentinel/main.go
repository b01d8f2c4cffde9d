package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ForecastSentinel/internal/api"
	"ForecastSentinel/internal/autotrade"
	"ForecastSentinel/internal/collector"
	"ForecastSentinel/internal/config"
	"ForecastSentinel/internal/dividend"
	"ForecastSentinel/internal/forecast"
	"ForecastSentinel/internal/logging"
	"ForecastSentinel/internal/model"
	"ForecastSentinel/internal/notifier"
	"ForecastSentinel/internal/pipeline"
	"ForecastSentinel/internal/recorder"
	"ForecastSentinel/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "forecast-sentinel: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	horizon, err := cfg.Horizon()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("forecast sentinel starting",
		zap.Int("instruments", len(cfg.Instruments)),
		zap.Int("horizon", horizon.Periods),
		zap.String("unit", string(horizon.Unit)))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := collector.NewRouter().
		Register(model.ProvenanceEquity, collector.NewYahooFetcher(cfg.Proxy, cfg.Sources.Timeout,
			collector.WithYahooBaseURL(cfg.Sources.YahooBaseURL),
			collector.WithYahooLogger(logger))).
		Register(model.ProvenanceCrypto, newKucoin(cfg, logger)).
		Register(model.ProvenanceLocalFeed, collector.NewMT4Fetcher(cfg.Sources.MT4BaseDir))

	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, closeStore, err := newStateStore(cfg)
	if err != nil {
		return fmt.Errorf("init autotrade store: %w", err)
	}
	defer closeStore()
	state, err := autotrade.NewManager(ctx, store, logger)
	if err != nil {
		return err
	}
	webhook := autotrade.NewWebhook(cfg.Autotrade.WebhookURL, cfg.Proxy, cfg.Autotrade.Timeout, logger)
	dispatcher := autotrade.NewDispatcher(webhook, cfg.Autotrade.AllowList, logger)

	var tn notifier.Notifier = notifier.NewNoopNotifier()
	var telegram *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		tn = telegram
	} else {
		logger.Warn("telegram not configured, alerts disabled")
	}

	var rec recorder.Recorder
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		rec = recorder.NewNoopRecorder()
	} else {
		rec = sr
	}
	defer rec.Close()

	alerts := notifier.NewAlerts(tn, cfg.Telegram.MaxRetries, logger)
	go alerts.Run(ctx)

	p := pipeline.New(cfg.Instruments, router, forecast.NewLinearEngine(0), dispatcher, state,
		pipeline.Config{Horizon: horizon, Smoothing: cfg.Smoothing},
		pipeline.WithRecorder(rec),
		pipeline.WithPublisher(alerts),
		pipeline.WithLogger(logger))

	polygon := dividend.NewClient(cfg.Dividends.PolygonBaseURL, cfg.Dividends.APIKey, cfg.Proxy, cfg.Sources.Timeout, logger)
	hunter := dividend.NewHunter(polygon, p, cfg.Dividends.MinYearlyYield, logger)
	yahoo := collector.NewYahooFetcher(cfg.Proxy, cfg.Sources.Timeout,
		collector.WithYahooBaseURL(cfg.Sources.YahooBaseURL),
		collector.WithYahooLogger(logger))
	overview := collector.NewCollector(yahoo, []string{"^VIX", "^GSPC", "CL=F", "GC=F"}, collector.DefaultOverviewSymbols, logger)

	sched := scheduler.NewScheduler(ctx, p, state, tn, nil, logger)
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if telegram != nil {
		go telegram.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	srv := api.NewServer(api.Deps{
		Forecasts: p,
		Autotrade: state,
		Dividends: polygon,
		Hunter:    hunter,
		Overview:  overview,
	}, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.HTTP.Addr) }()

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, refreshing watch list now")
		go sched.RunNow()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("forecast sentinel stopped")
	return nil
}

func newKucoin(cfg *config.Config, logger *zap.Logger) *collector.KucoinFetcher {
	f := collector.NewKucoinFetcher(cfg.Proxy, cfg.Sources.Timeout,
		collector.WithKucoinBaseURL(cfg.Sources.KucoinBaseURL),
		collector.WithKucoinLogger(logger))
	f.HistoryDays = cfg.Sources.HistoryDays
	return f
}

func newStateStore(cfg *config.Config) (autotrade.Store, func(), error) {
	switch cfg.Autotrade.Store {
	case config.StoreSQLite:
		s, err := autotrade.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return autotrade.NewRedisStore(client, autotrade.DefaultRedisKey), func() { _ = client.Close() }, nil
	default:
		return autotrade.NewFileStore(cfg.Autotrade.StateFile), func() {}, nil
	}
}
