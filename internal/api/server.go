package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ForecastSentinel/internal/model"
	"ForecastSentinel/internal/pipeline"
)

// Forecasts is the pipeline surface served by the API.
type Forecasts interface {
	Instruments() []model.Instrument
	Latest(ctx context.Context, symbol string, tf model.Timeframe, refresh bool) (model.RunResult, error)
	Cache() *pipeline.ResultCache
}

// AutotradeState reads and edits the persisted autotrade state.
type AutotradeState interface {
	Snapshot() model.AutotradeState
	Apply(ctx context.Context, edit func(*model.AutotradeState)) (model.AutotradeState, error)
}

// Dividends looks up dividend reference data.
type Dividends interface {
	ByTicker(ctx context.Context, ticker string) ([]model.Dividend, error)
	TickerTable(ctx context.Context, ticker string) []model.Dividend
}

// Hunter runs the dividend yield hunter for an ex-dividend date.
type Hunter interface {
	Hunt(ctx context.Context, date time.Time) ([]model.YieldCandidate, error)
}

// Overview builds the market index strip.
type Overview interface {
	Overview(ctx context.Context) []model.IndexSummary
}

// Deps are the services behind the HTTP handlers.
type Deps struct {
	Forecasts Forecasts
	Autotrade AutotradeState
	Dividends Dividends
	Hunter    Hunter
	Overview  Overview
}

// Server exposes forecasts, autotrade state and dividend data over HTTP.
type Server struct {
	deps   Deps
	engine *gin.Engine
	srv    *http.Server
	now    func() time.Time
	logger *zap.Logger
}

// NewServer builds the gin router.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, now: time.Now, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.GET("/healthz", handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/instruments", s.listInstruments)
	// Served from cache; a miss runs without dispatch. refresh=1 runs the
	// full pipeline and may post a trade signal.
	api.GET("/instruments/:symbol/forecast", s.getForecast)
	api.GET("/autotrade", s.getAutotrade)
	api.PUT("/autotrade", s.putAutotrade)
	api.GET("/dividends/upcoming", s.upcomingDividends)
	api.GET("/dividends/hunt", s.huntDividends)
	api.GET("/dividends/:ticker", s.tickerDividends)
	api.GET("/overview", s.getOverview)

	s.engine = r
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "forecast-sentinel",
		"timestamp": time.Now().UTC(),
	})
}
