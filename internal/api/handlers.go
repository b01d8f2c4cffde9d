package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ForecastSentinel/internal/autotrade"
	"ForecastSentinel/internal/dividend"
	"ForecastSentinel/internal/model"
	"ForecastSentinel/internal/pipeline"
)

const defaultUpcomingDays = 30

func (s *Server) listInstruments(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Forecasts.Instruments())
}

func (s *Server) getForecast(c *gin.Context) {
	tf, err := model.ParseTimeframe(c.Query("timeframe"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	refresh := c.Query("refresh") == "1" || strings.EqualFold(c.Query("refresh"), "true")

	res, err := s.deps.Forecasts.Latest(c.Request.Context(), c.Param("symbol"), tf, refresh)
	switch {
	case errors.Is(err, pipeline.ErrUnknownInstrument):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "result": res})
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) getAutotrade(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Autotrade.Snapshot())
}

type autotradeRequest struct {
	Enabled      *bool   `json:"enabled"`
	StartMessage *string `json:"start_message"`
	StopMessage  *string `json:"stop_message"`
}

// putAutotrade applies the fields present in the body on top of the current
// state and invalidates cached results.
func (s *Server) putAutotrade(c *gin.Context) {
	var req autotradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := s.deps.Autotrade.Apply(c.Request.Context(), func(next *model.AutotradeState) {
		if req.Enabled != nil {
			next.Enabled = *req.Enabled
		}
		if req.StartMessage != nil {
			next.StartMessage = *req.StartMessage
		}
		if req.StopMessage != nil {
			next.StopMessage = *req.StopMessage
		}
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, autotrade.ErrInvalidMessage) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.deps.Forecasts.Cache().InvalidateAll("toggle")
	c.JSON(http.StatusOK, state)
}

func (s *Server) tickerDividends(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Dividends.TickerTable(c.Request.Context(), c.Param("ticker")))
}

// upcomingDividends collects the latest dividend of each ticker and keeps
// those paying within [start, end]. Tickers default to the equity watch list.
func (s *Server) upcomingDividends(c *gin.Context) {
	today := s.now().UTC()
	start, ok := s.dateParam(c, "start", today)
	if !ok {
		return
	}
	end, ok := s.dateParam(c, "end", start.AddDate(0, 0, defaultUpcomingDays))
	if !ok {
		return
	}

	var tickers []string
	for _, t := range strings.Split(c.Query("tickers"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, strings.ToUpper(t))
		}
	}
	if len(tickers) == 0 {
		for _, inst := range s.deps.Forecasts.Instruments() {
			if inst.Provenance == model.ProvenanceEquity {
				tickers = append(tickers, inst.Symbol)
			}
		}
	}

	var entries []model.Dividend
	for _, t := range tickers {
		divs, err := s.deps.Dividends.ByTicker(c.Request.Context(), t)
		if errors.Is(err, dividend.ErrNoAPIKey) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			s.logger.Warn("upcoming dividend lookup failed", zap.String("ticker", t), zap.Error(err))
			continue
		}
		entries = append(entries, divs...)
	}
	c.JSON(http.StatusOK, dividend.Upcoming(entries, start, end))
}

func (s *Server) huntDividends(c *gin.Context) {
	date, ok := s.dateParam(c, "date", s.now().UTC())
	if !ok {
		return
	}
	found, err := s.deps.Hunter.Hunt(c.Request.Context(), date)
	switch {
	case errors.Is(err, dividend.ErrNoAPIKey):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		if found == nil {
			found = []model.YieldCandidate{}
		}
		c.JSON(http.StatusOK, found)
	}
}

func (s *Server) getOverview(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Overview.Overview(c.Request.Context()))
}

func (s *Server) dateParam(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	d, err := dividend.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + ": " + err.Error()})
		return time.Time{}, false
	}
	return d, true
}
