package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ForecastSentinel/internal/autotrade"
	"ForecastSentinel/internal/collector"
	"ForecastSentinel/internal/forecast"
	"ForecastSentinel/internal/metrics"
	"ForecastSentinel/internal/model"
	"ForecastSentinel/internal/recorder"
	"ForecastSentinel/internal/series"
	"ForecastSentinel/internal/strategy"
)

// Publisher receives every finished run, e.g. to raise alerts. Publish is
// called on the run's goroutine and must not wait on delivery.
type Publisher interface {
	Publish(ctx context.Context, res model.RunResult)
}

// Dispatcher acts on a signal with the run's autotrade snapshot.
type Dispatcher interface {
	Dispatch(ctx context.Context, symbol string, sig model.Signal, state model.AutotradeState) (model.ActionResult, error)
}

var _ Dispatcher = (*autotrade.Dispatcher)(nil)

// Config holds the pipeline parameters.
type Config struct {
	Horizon     forecast.Horizon
	Smoothing   map[model.Provenance]forecast.Smoothing
	Concurrency int
}

// Pipeline runs fetch, forecast, smoothing, merge, evaluation and dispatch
// for the watch list.
type Pipeline struct {
	instruments []model.Instrument
	source      collector.Source
	engine      forecast.Engine
	dispatcher  Dispatcher
	state       StateSource
	cfg         Config

	cache     *ResultCache
	recorder  recorder.Recorder
	publisher Publisher
	logger    *zap.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

func WithRecorder(r recorder.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

func WithCache(c *ResultCache) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.cache = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline over the given watch list.
func New(instruments []model.Instrument, source collector.Source, engine forecast.Engine,
	dispatcher Dispatcher, state StateSource, cfg Config, opts ...Option) *Pipeline {
	if cfg.Horizon.Periods == 0 {
		cfg.Horizon = forecast.DefaultHorizon()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	p := &Pipeline{
		instruments: instruments,
		source:      source,
		engine:      engine,
		dispatcher:  dispatcher,
		state:       state,
		cfg:         cfg,
		cache:       NewResultCache(),
		recorder:    recorder.NewNoopRecorder(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cache exposes the result cache for explicit invalidation.
func (p *Pipeline) Cache() *ResultCache { return p.cache }

// Instruments returns the watch list.
func (p *Pipeline) Instruments() []model.Instrument {
	return append([]model.Instrument(nil), p.instruments...)
}

// Instrument looks up a watched symbol, case-insensitively.
func (p *Pipeline) Instrument(symbol string) (model.Instrument, bool) {
	for _, inst := range p.instruments {
		if strings.EqualFold(inst.Symbol, symbol) {
			return inst, true
		}
	}
	return model.Instrument{}, false
}

// NewRunContext snapshots the autotrade state for a new run.
func (p *Pipeline) NewRunContext() RunContext {
	return NewRunContext(p.state, p.cfg.Horizon)
}

func (p *Pipeline) smoothing(prov model.Provenance) forecast.Smoothing {
	if s, ok := p.cfg.Smoothing[prov]; ok {
		return s
	}
	return forecast.DefaultSMA()
}

// Smoothed fetches an instrument and returns its bars and smoothed forecast
// without evaluating or dispatching.
func (p *Pipeline) Smoothed(ctx context.Context, h forecast.Horizon, inst model.Instrument, tf model.Timeframe, s forecast.Smoothing) (model.PriceSeries, []model.SmoothedPoint, error) {
	ps, err := p.source.Fetch(ctx, inst, tf)
	if err != nil {
		return model.PriceSeries{}, nil, fmt.Errorf("fetch %s: %w", inst.Symbol, err)
	}
	raw, err := forecast.Run(ctx, p.engine, forecast.PointsFromCloses(ps.Bars), h)
	if err != nil {
		return ps, nil, err
	}
	smoothed, err := forecast.Process(raw, s)
	if err != nil {
		return ps, nil, fmt.Errorf("%w: post-process: %w", forecast.ErrForecastFailure, err)
	}
	return ps, smoothed, nil
}

// Run executes the pipeline for one instrument. A source or forecast failure
// yields a result without rows and a non-nil error. A dispatch failure keeps
// the rows and is reported through the action result only.
func (p *Pipeline) Run(ctx context.Context, rc RunContext, inst model.Instrument, tf model.Timeframe) (model.RunResult, error) {
	start := time.Now()
	log := p.logger.With(
		zap.String("run_id", rc.RunID),
		zap.String("symbol", inst.Symbol),
		zap.String("provenance", string(inst.Provenance)),
		zap.String("timeframe", string(tf)),
	)
	res := model.RunResult{
		RunID:      rc.RunID,
		Instrument: inst,
		Timeframe:  tf,
		StartedAt:  start.UTC(),
		Assessment: model.Assessment{Signal: model.SignalUndefined},
		Action:     model.ActionResult{Action: model.ActionNone, Status: model.StatusSkipped},
	}

	h := rc.Horizon.ForTimeframe(tf)
	ps, smoothed, err := p.Smoothed(ctx, h, inst, tf, p.smoothing(inst.Provenance))
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		log.Error("pipeline run failed", zap.Error(err))
		p.finish(ctx, res, "failed")
		return res, err
	}

	res.Rows = series.Merge(ps.Bars, smoothed)
	offset := strategy.LookbackOffset(h)
	res.Assessment = strategy.Assess(res.Rows, offset)
	behind := series.LastObserved(res.Rows) - (len(res.Rows) - offset)
	if behind != 0 {
		log.Warn("assessed row is not the last observed bar",
			zap.Int("rows_behind_last_close", behind),
			zap.Int("offset", offset))
	}
	metrics.SignalsTotal.WithLabelValues(inst.Symbol, string(res.Assessment.Signal)).Inc()

	if !rc.SkipDispatch {
		p.dispatch(ctx, log, rc, &res)
	}

	res.Duration = time.Since(start)
	log.Info("pipeline run finished",
		zap.Int("rows", len(res.Rows)),
		zap.String("signal", string(res.Assessment.Signal)),
		zap.String("action", string(res.Action.Action)),
		zap.String("action_status", string(res.Action.Status)),
		zap.Int("rows_behind_last_close", behind),
		zap.Duration("duration", res.Duration))
	p.cache.Put(res)
	p.finish(ctx, res, "ok")
	return res, nil
}

func (p *Pipeline) dispatch(ctx context.Context, log *zap.Logger, rc RunContext, res *model.RunResult) {
	symbol := res.Instrument.Symbol
	action, err := p.dispatcher.Dispatch(ctx, symbol, res.Assessment.Signal, rc.Autotrade)
	res.Action = action
	if action.Status != model.StatusSkipped {
		metrics.DispatchesTotal.WithLabelValues(string(action.Action), string(action.Status)).Inc()
		if rerr := p.recorder.RecordDispatch(ctx, &recorder.DispatchEvent{
			RunID:     rc.RunID,
			Symbol:    symbol,
			Action:    action.Action,
			Status:    action.Status,
			Error:     action.Error,
			Timestamp: time.Now(),
		}); rerr != nil {
			log.Error("record dispatch failed", zap.Error(rerr))
		}
	}
	if err != nil {
		log.Warn("dispatch failed, keeping merged series", zap.Error(err))
	}
}

func (p *Pipeline) finish(ctx context.Context, res model.RunResult, status string) {
	prov := string(res.Instrument.Provenance)
	metrics.PipelineRunsTotal.WithLabelValues(prov, status).Inc()
	metrics.PipelineRunDuration.WithLabelValues(prov).Observe(res.Duration.Seconds())

	rec := recorder.FromResult(res)
	if err := p.recorder.RecordRun(ctx, &rec); err != nil {
		p.logger.Error("record run failed", zap.String("run_id", res.RunID), zap.Error(err))
	}
	if p.publisher != nil {
		p.publisher.Publish(ctx, res)
	}
}

// RunAll runs every instrument concurrently under one autotrade snapshot.
// A failing instrument never cancels the others. Results keep watch-list order.
func (p *Pipeline) RunAll(ctx context.Context, tf model.Timeframe) []model.RunResult {
	rc := p.NewRunContext()
	p.logger.Info("pipeline run started",
		zap.String("run_id", rc.RunID),
		zap.Int("instruments", len(p.instruments)),
		zap.Bool("autotrade", rc.Autotrade.Enabled))

	results := make([]model.RunResult, len(p.instruments))
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, inst := range p.instruments {
		i, inst := i, inst
		g.Go(func() error {
			results[i], _ = p.Run(ctx, rc, inst, tf)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Refresh reruns one watched instrument with a fresh snapshot.
func (p *Pipeline) Refresh(ctx context.Context, symbol string, tf model.Timeframe) (model.RunResult, error) {
	inst, ok := p.Instrument(symbol)
	if !ok {
		return model.RunResult{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
	}
	p.cache.Invalidate(inst.Symbol, "refresh")
	return p.Run(ctx, p.NewRunContext(), inst, tf)
}

// Latest returns the cached result. A cache miss runs the pipeline without
// dispatching so that reading a chart never sends a trade signal; refresh
// runs it in full, dispatch included.
func (p *Pipeline) Latest(ctx context.Context, symbol string, tf model.Timeframe, refresh bool) (model.RunResult, error) {
	if refresh {
		return p.Refresh(ctx, symbol, tf)
	}
	if res, ok := p.cache.Get(symbol, tf); ok {
		return res, nil
	}
	inst, ok := p.Instrument(symbol)
	if !ok {
		return model.RunResult{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
	}
	rc := p.NewRunContext()
	rc.SkipDispatch = true
	return p.Run(ctx, rc, inst, tf)
}
