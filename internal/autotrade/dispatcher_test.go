package autotrade

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastSentinel/internal/model"
)

const (
	startMsg = `{"message_type":"bot","bot_id":42,"action":"start"}`
	stopMsg  = `{"message_type":"bot","bot_id":42,"action":"stop"}`
)

type recordingSender struct {
	msgs []TradeMessage
	err  error
}

func (s *recordingSender) Post(_ context.Context, msg TradeMessage) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

func enabledState() model.AutotradeState {
	return model.AutotradeState{Enabled: true, StartMessage: startMsg, StopMessage: stopMsg}
}

func TestDispatch_BelowLowerSendsStartOnce(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, []string{"btc-usdc"}, nil)

	res, err := d.Dispatch(context.Background(), "BTC-USDC", model.SignalBelowLower, enabledState())
	require.NoError(t, err)
	assert.Equal(t, model.ActionResult{Action: model.ActionStart, Status: model.StatusSent}, res)
	require.Len(t, sender.msgs, 1)
	assert.Equal(t, "start", sender.msgs[0]["action"])
}

func TestDispatch_AboveUpperSendsStop(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, []string{"BTC-USDC"}, nil)

	res, err := d.Dispatch(context.Background(), "BTC-USDC", model.SignalAboveUpper, enabledState())
	require.NoError(t, err)
	assert.Equal(t, model.ActionStop, res.Action)
	require.Len(t, sender.msgs, 1)
	assert.Equal(t, "stop", sender.msgs[0]["action"])
}

func TestDispatch_Skips(t *testing.T) {
	disabled := enabledState()
	disabled.Enabled = false

	tests := []struct {
		name   string
		symbol string
		signal model.Signal
		state  model.AutotradeState
	}{
		{"disabled", "BTC-USDC", model.SignalBelowLower, disabled},
		{"not allow-listed", "ETH-USDC", model.SignalBelowLower, enabledState()},
		{"in band", "BTC-USDC", model.SignalInBand, enabledState()},
		{"undefined", "BTC-USDC", model.SignalUndefined, enabledState()},
		{"undefined while disabled", "BTC-USDC", model.SignalUndefined, disabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			d := NewDispatcher(sender, []string{"BTC-USDC"}, nil)
			res, err := d.Dispatch(context.Background(), tt.symbol, tt.signal, tt.state)
			require.NoError(t, err)
			assert.Equal(t, model.StatusSkipped, res.Status)
			assert.NotEmpty(t, res.Reason)
			assert.Empty(t, sender.msgs)
		})
	}
}

func TestDispatch_InvalidMessageNeverSent(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, []string{"BTC-USDC"}, nil)
	state := enabledState()
	state.StartMessage = `{'pair': 'USDC_BTC'}`

	res, err := d.Dispatch(context.Background(), "BTC-USDC", model.SignalBelowLower, state)
	assert.ErrorIs(t, err, ErrDispatchFailure)
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Empty(t, sender.msgs)
}

func TestDispatch_SenderFailureReported(t *testing.T) {
	sender := &recordingSender{err: errors.Join(ErrDispatchFailure, errors.New("status 500"))}
	d := NewDispatcher(sender, []string{"BTC-USDC"}, nil)

	res, err := d.Dispatch(context.Background(), "BTC-USDC", model.SignalAboveUpper, enabledState())
	assert.ErrorIs(t, err, ErrDispatchFailure)
	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Contains(t, res.Error, "status 500")
	assert.Len(t, sender.msgs, 1, "no retry")
}

func TestWebhook_PostsJSON(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "start", got["action"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(NewWebhook(srv.URL, "", time.Second, nil), []string{"BTC-USDC"}, nil)
	res, err := d.Dispatch(context.Background(), "BTC-USDC", model.SignalBelowLower, enabledState())
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, res.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestWebhook_Failures(t *testing.T) {
	msg := TradeMessage{"action": "start"}

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()
	err := NewWebhook(srv.URL, "", time.Second, nil).Post(context.Background(), msg)
	assert.ErrorIs(t, err, ErrDispatchFailure, "only 200 is success")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()
	err = NewWebhook(slow.URL, "", 20*time.Millisecond, nil).Post(context.Background(), msg)
	assert.ErrorIs(t, err, ErrDispatchFailure)

	err = NewWebhook("http://127.0.0.1:1", "", time.Second, nil).Post(context.Background(), msg)
	assert.ErrorIs(t, err, ErrDispatchFailure)
}

func TestNewWebhook_Defaults(t *testing.T) {
	w := NewWebhook("", "", 0, nil)
	assert.Equal(t, DefaultWebhookURL, w.URL)
	assert.Equal(t, 10*time.Second, w.Client.Timeout)
}
