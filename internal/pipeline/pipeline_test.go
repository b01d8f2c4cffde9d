package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ForecastSentinel/internal/autotrade"
	"ForecastSentinel/internal/collector"
	"ForecastSentinel/internal/forecast"
	"ForecastSentinel/internal/model"
	"ForecastSentinel/internal/notifier"
	"ForecastSentinel/internal/recorder"
)

const (
	startMsg = `{"action":"start","bot_id":1}`
	stopMsg  = `{"action":"stop","bot_id":1}`
)

var (
	btc    = model.Instrument{Symbol: "BTC-USDC", Provenance: model.ProvenanceCrypto, Name: "Bitcoin"}
	spy    = model.Instrument{Symbol: "SPLG", Provenance: model.ProvenanceEquity}
	eurusd = model.Instrument{Symbol: "EURUSD", Provenance: model.ProvenanceLocalFeed}
)

func dailyBars(closes []float64) []model.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Bar, len(closes))
	for i, c := range closes {
		out[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// crash is a noisy flat series whose final close collapses.
func crash(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 1
		if i%2 == 1 {
			out[i] = 100 - 1
		}
	}
	out[n-1] = 50
	return out
}

type stubState struct {
	mu    sync.Mutex
	state model.AutotradeState
	calls int
}

func (s *stubState) Snapshot() model.AutotradeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.state
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []autotrade.TradeMessage
	err  error
}

func (s *recordingSender) Post(_ context.Context, msg autotrade.TradeMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

type memRecorder struct {
	recorder.NoopRecorder
	mu         sync.Mutex
	runs       []recorder.RunRecord
	dispatches []recorder.DispatchEvent
}

func (m *memRecorder) RecordRun(_ context.Context, r *recorder.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *r)
	return nil
}

func (m *memRecorder) RecordDispatch(_ context.Context, e *recorder.DispatchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, *e)
	return nil
}

type memPublisher struct {
	mu      sync.Mutex
	results []model.RunResult
}

func (m *memPublisher) Publish(_ context.Context, res model.RunResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
}

type downNotifier struct {
	mu    sync.Mutex
	calls int
}

func (d *downNotifier) Send(context.Context, string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return errors.New("telegram down")
}

func (d *downNotifier) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fixture struct {
	p      *Pipeline
	state  *stubState
	sender *recordingSender
	rec    *memRecorder
	pub    *memPublisher
	crypto *collector.MockSource
	equity *collector.MockSource
	local  *collector.MockSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:  &stubState{state: model.AutotradeState{Enabled: true, StartMessage: startMsg, StopMessage: stopMsg}},
		sender: &recordingSender{},
		rec:    &memRecorder{},
		pub:    &memPublisher{},
		crypto: &collector.MockSource{Bars: dailyBars(crash(60))},
		equity: &collector.MockSource{Bars: dailyBars(flat(60, 10))},
		local:  &collector.MockSource{Err: collector.ErrFileNotFound},
	}
	router := collector.NewRouter().
		Register(model.ProvenanceCrypto, f.crypto).
		Register(model.ProvenanceEquity, f.equity).
		Register(model.ProvenanceLocalFeed, f.local)

	cfg := Config{
		Horizon: forecast.Horizon{Periods: 10, Unit: forecast.UnitDay},
		Smoothing: map[model.Provenance]forecast.Smoothing{
			model.ProvenanceEquity: forecast.DefaultSMA(),
			model.ProvenanceCrypto: forecast.DefaultSMA(),
		},
		Concurrency: 2,
	}
	f.p = New([]model.Instrument{btc, spy, eurusd}, router, forecast.NewLinearEngine(0.8),
		autotrade.NewDispatcher(f.sender, []string{"BTC-USDC"}, nil), f.state, cfg,
		WithRecorder(f.rec), WithPublisher(f.pub))
	return f
}

func TestRun_BelowLowerDispatchesStartOnce(t *testing.T) {
	f := newFixture(t)
	res, err := f.p.Run(context.Background(), f.p.NewRunContext(), btc, model.TimeframeDaily)
	require.NoError(t, err)

	assert.Len(t, res.Rows, 70, "history plus horizon")
	assert.Equal(t, model.SignalBelowLower, res.Assessment.Signal)
	require.NotNil(t, res.Assessment.Close)
	assert.Equal(t, 50.0, *res.Assessment.Close)
	assert.Equal(t, model.ActionResult{Action: model.ActionStart, Status: model.StatusSent}, res.Action)

	require.Len(t, f.sender.msgs, 1)
	assert.Equal(t, "start", f.sender.msgs[0]["action"])
	require.Len(t, f.rec.dispatches, 1)
	assert.Equal(t, res.RunID, f.rec.dispatches[0].RunID)
}

func TestRun_FlatSeriesInBandNoAction(t *testing.T) {
	f := newFixture(t)
	res, err := f.p.Run(context.Background(), f.p.NewRunContext(), spy, model.TimeframeDaily)
	require.NoError(t, err)
	assert.Equal(t, model.SignalInBand, res.Assessment.Signal)
	assert.Equal(t, model.StatusSkipped, res.Action.Status)
	assert.Empty(t, f.sender.msgs)
	assert.Empty(t, f.rec.dispatches)
}

func TestRun_SourceFailureHasNoRows(t *testing.T) {
	f := newFixture(t)
	res, err := f.p.Run(context.Background(), f.p.NewRunContext(), eurusd, model.TimeframeDaily)
	require.Error(t, err)
	assert.True(t, errors.Is(err, collector.ErrFileNotFound))
	assert.True(t, res.Failed())
	assert.Equal(t, model.SignalUndefined, res.Assessment.Signal)

	_, cached := f.p.Cache().Get("EURUSD", model.TimeframeDaily)
	assert.False(t, cached)
	require.Len(t, f.rec.runs, 1)
	assert.NotEmpty(t, f.rec.runs[0].Error)
}

func TestRun_ForecastFailure(t *testing.T) {
	f := newFixture(t)
	f.equity.Bars = dailyBars([]float64{10})
	_, err := f.p.Run(context.Background(), f.p.NewRunContext(), spy, model.TimeframeDaily)
	assert.ErrorIs(t, err, forecast.ErrForecastFailure)
}

func TestRun_DispatchFailureKeepsSeries(t *testing.T) {
	f := newFixture(t)
	f.sender.err = autotrade.ErrDispatchFailure
	res, err := f.p.Run(context.Background(), f.p.NewRunContext(), btc, model.TimeframeDaily)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Rows)
	assert.Equal(t, model.StatusFailed, res.Action.Status)
	assert.Len(t, f.sender.msgs, 1, "no retry")

	require.Len(t, f.pub.results, 1)
	assert.Equal(t, model.StatusFailed, f.pub.results[0].Action.Status)
}

func TestRun_UndeliverableAlertsDoNotDelayResult(t *testing.T) {
	f := newFixture(t)
	f.sender.err = autotrade.ErrDispatchFailure
	down := &downNotifier{}
	alerts := notifier.NewAlerts(down, 3, nil)
	WithPublisher(alerts)(f.p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go alerts.Run(ctx)

	start := time.Now()
	res, err := f.p.Run(ctx, f.p.NewRunContext(), btc, model.TimeframeDaily)
	took := time.Since(start)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 70)
	assert.Equal(t, model.StatusFailed, res.Action.Status)
	assert.Less(t, took, time.Second, "run waited on alert retries")

	require.Eventually(t, func() bool { return down.count() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestRun_LogsAssessedRowDistance(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	WithLogger(zap.New(core))(f.p)

	_, err := f.p.Run(context.Background(), f.p.NewRunContext(), btc, model.TimeframeDaily)
	require.NoError(t, err)

	finished := logs.FilterMessage("pipeline run finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, int64(0), finished[0].ContextMap()["rows_behind_last_close"])
	assert.Zero(t, logs.FilterMessage("assessed row is not the last observed bar").Len())
}

func TestRunAll_IsolatesFailuresAndSnapshotsOnce(t *testing.T) {
	f := newFixture(t)
	results := f.p.RunAll(context.Background(), model.TimeframeDaily)
	require.Len(t, results, 3)

	assert.Equal(t, 1, f.state.calls, "state read once per run")
	assert.Equal(t, "BTC-USDC", results[0].Instrument.Symbol)
	assert.Equal(t, model.SignalBelowLower, results[0].Assessment.Signal)
	assert.Equal(t, model.SignalInBand, results[1].Assessment.Signal)
	assert.True(t, results[2].Failed())

	for _, r := range results {
		assert.Equal(t, results[0].RunID, r.RunID)
	}
	assert.Len(t, f.pub.results, 3)
	assert.Len(t, f.p.Cache().All(), 2)
}

func TestRunAll_SnapshotNotAffectedByToggleMidRun(t *testing.T) {
	f := newFixture(t)
	rc := f.p.NewRunContext()
	f.state.mu.Lock()
	f.state.state.Enabled = false
	f.state.mu.Unlock()

	res, err := f.p.Run(context.Background(), rc, btc, model.TimeframeDaily)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, res.Action.Status, "uses the snapshot taken before the toggle")
}

func TestLatest_UsesCacheUntilRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.p.Latest(ctx, "splg", model.TimeframeDaily, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.equity.Calls)

	again, err := f.p.Latest(ctx, "SPLG", model.TimeframeDaily, false)
	require.NoError(t, err)
	assert.Equal(t, first.RunID, again.RunID)
	assert.Equal(t, 1, f.equity.Calls)

	fresh, err := f.p.Latest(ctx, "SPLG", model.TimeframeDaily, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, fresh.RunID)
	assert.Equal(t, 2, f.equity.Calls)

	f.p.Cache().InvalidateAll("toggle")
	_, err = f.p.Latest(ctx, "SPLG", model.TimeframeDaily, false)
	require.NoError(t, err)
	assert.Equal(t, 3, f.equity.Calls)

	_, err = f.p.Latest(ctx, "NOPE", model.TimeframeDaily, false)
	assert.ErrorIs(t, err, ErrUnknownInstrument)
}

func TestLatest_CacheMissDoesNotDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.p.Latest(ctx, "BTC-USDC", model.TimeframeDaily, false)
	require.NoError(t, err)
	assert.Equal(t, model.SignalBelowLower, res.Assessment.Signal)
	assert.Equal(t, model.ActionResult{Action: model.ActionNone, Status: model.StatusSkipped}, res.Action)
	assert.Empty(t, f.sender.msgs)
	assert.Empty(t, f.rec.dispatches)

	res, err = f.p.Latest(ctx, "BTC-USDC", model.TimeframeDaily, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, res.Action.Status)
	assert.Len(t, f.sender.msgs, 1)
}

func TestResultCache_InvalidateSymbol(t *testing.T) {
	c := NewResultCache()
	c.Put(model.RunResult{Instrument: btc, Timeframe: model.TimeframeDaily})
	c.Put(model.RunResult{Instrument: btc, Timeframe: model.TimeframeHourly})
	c.Put(model.RunResult{Instrument: spy, Timeframe: model.TimeframeDaily})

	c.Invalidate("btc-usdc", "refresh")
	_, ok := c.Get("BTC-USDC", model.TimeframeDaily)
	assert.False(t, ok)
	_, ok = c.Get("BTC-USDC", model.TimeframeHourly)
	assert.False(t, ok)
	_, ok = c.Get("SPLG", model.TimeframeDaily)
	assert.True(t, ok)
}
