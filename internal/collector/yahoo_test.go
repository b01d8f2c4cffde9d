package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastSentinel/internal/model"
)

const yahooFixture = `{"chart":{"result":[{"meta":{"gmtoffset":-18000},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{
"open":[470.1,null,472.0],
"high":[474.0,null,475.5],
"low":[468.2,null,470.3],
"close":[472.6,null,474.9]}]}}],"error":null}}`

func TestYahooFetcher_FetchDaily(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second, WithYahooBaseURL(srv.URL))
	series, err := f.Fetch(context.Background(), model.Instrument{Symbol: "SPX500", Provenance: model.ProvenanceEquity}, model.TimeframeDaily)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)
	assert.Equal(t, "interval=1d&range=2y", gotQuery)
	require.Len(t, series.Bars, 2, "null bar skipped")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series.Bars[0].Time)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), series.Bars[1].Time)
	assert.Equal(t, 474.9, series.Bars[1].Close)
	assert.NoError(t, Validate(series.Bars))
}

func TestYahooFetcher_HourlyKeepsTimestamps(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second, WithYahooBaseURL(srv.URL))
	series, err := f.Fetch(context.Background(), model.Instrument{Symbol: "SPLG"}, model.TimeframeHourly)
	require.NoError(t, err)
	assert.Equal(t, "interval=1h&range=730d", gotQuery)
	assert.Equal(t, time.Unix(1704205800, 0).UTC(), series.Bars[0].Time)
}

func TestYahooFetcher_NoDataIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second, WithYahooBaseURL(srv.URL))
	_, err := f.Fetch(context.Background(), model.Instrument{Symbol: "NOPE"}, model.TimeframeDaily)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

func TestYahooFetcher_EmptyResultIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second, WithYahooBaseURL(srv.URL))
	_, err := f.FetchChart(context.Background(), "EMPTY", "1d", "1y")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestYahooFetcher_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 20*time.Millisecond, WithYahooBaseURL(srv.URL))
	_, err := f.FetchChart(context.Background(), "SLOW", "1d", "1y")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}
