package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ForecastSentinel/internal/model"
	"ForecastSentinel/internal/notifier"
	"ForecastSentinel/internal/pipeline"
)

// DefaultRefreshCron refreshes the watch list every 15 minutes.
const DefaultRefreshCron = "0 */15 * * * *"

// AutotradeToggle is the part of the autotrade manager commands need.
type AutotradeToggle interface {
	Snapshot() model.AutotradeState
	SetEnabled(ctx context.Context, enabled bool) (model.AutotradeState, error)
}

// Scheduler manages the periodic refresh and operator commands.
type Scheduler struct {
	Cron       *cron.Cron
	Pipeline   *pipeline.Pipeline
	Autotrade  AutotradeToggle
	Notifier   notifier.Notifier
	Timeframes []model.Timeframe
	Ctx        context.Context
	logger     *zap.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, at AutotradeToggle, n notifier.Notifier, timeframes []model.Timeframe, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if n == nil {
		n = notifier.NewNoopNotifier()
	}
	if len(timeframes) == 0 {
		timeframes = []model.Timeframe{model.TimeframeDaily}
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Pipeline:   p,
		Autotrade:  at,
		Notifier:   n,
		Timeframes: timeframes,
		Ctx:        ctx,
		logger:     logger,
	}
}

// RegisterAll registers the refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if refreshCron == "" {
		refreshCron = DefaultRefreshCron
	}
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes the refresh immediately (RUN_ON_START).
func (s *Scheduler) RunNow() []model.RunResult {
	return s.refresh(s.Ctx)
}

func (s *Scheduler) refreshTask() {
	s.refresh(s.Ctx)
}

func (s *Scheduler) refresh(ctx context.Context) []model.RunResult {
	var all []model.RunResult
	for _, tf := range s.Timeframes {
		s.logger.Info("running scheduled refresh", zap.String("timeframe", string(tf)))
		results := s.Pipeline.RunAll(ctx, tf)
		failed := 0
		for _, r := range results {
			if r.Failed() {
				failed++
			}
		}
		if failed > 0 {
			s.logger.Warn("refresh finished with failures",
				zap.String("timeframe", string(tf)), zap.Int("failed", failed), zap.Int("total", len(results)))
		}
		all = append(all, results...)
	}
	return all
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/status":
		return notifier.FormatStatus(s.Autotrade.Snapshot(), s.Pipeline.Cache().All())
	case "/autotrade":
		return s.toggle(ctx, fields[1:])
	case "/refresh":
		return s.refreshCommand(ctx, fields[1:])
	default:
		return helpText
	}
}

const helpText = "Commands:\n• /status\n• /autotrade on|off\n• /refresh SYMBOL [daily|hourly]"

func (s *Scheduler) toggle(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return notifier.FormatAutotrade(s.Autotrade.Snapshot())
	}
	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return "Usage: /autotrade on|off"
	}
	state, err := s.Autotrade.SetEnabled(ctx, enabled)
	if err != nil {
		s.logger.Error("autotrade toggle failed", zap.Error(err))
		return fmt.Sprintf("❌ Toggle failed: %v", err)
	}
	s.Pipeline.Cache().InvalidateAll("toggle")
	return notifier.FormatAutotrade(state)
}

func (s *Scheduler) refreshCommand(ctx context.Context, args []string) string {
	if len(args) == 0 || len(args) > 2 {
		return "Usage: /refresh SYMBOL [daily|hourly]"
	}
	tf := model.TimeframeDaily
	if len(args) == 2 {
		parsed, err := model.ParseTimeframe(args[1])
		if err != nil {
			return err.Error()
		}
		tf = parsed
	}
	res, err := s.Pipeline.Refresh(ctx, args[0], tf)
	if err != nil {
		return fmt.Sprintf("❌ %s: %v", args[0], err)
	}
	return notifier.FormatStatus(s.Autotrade.Snapshot(), []model.RunResult{res})
}
