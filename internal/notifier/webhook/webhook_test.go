package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ notifier.Notifier = (*Webhook)(nil)

type capture struct {
	event   Event
	headers http.Header
	calls   int
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		c.headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&c.event)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newWebhook(url string, headers map[string]string) *Webhook {
	w := New(url, headers)
	w.now = func() time.Time { return time.Date(2025, 3, 14, 21, 30, 0, 0, time.UTC) }
	return w
}

func TestWebhook_Init(t *testing.T) {
	w := &Webhook{}
	assert.Error(t, w.Init(notifier.Config{Params: map[string]any{}}))

	require.NoError(t, w.Init(notifier.Config{Params: map[string]any{"url": "http://example.com/hook"}}))
	assert.Equal(t, "http://example.com/hook", w.url)
	assert.NotNil(t, w.client)
	assert.NotNil(t, w.now)
}

func TestWebhook_SendForecast(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, "")
	w := newWebhook(srv.URL, map[string]string{"Authorization": "Bearer hook-token"})

	err := w.SendForecast(context.Background(), core.Forecast{
		Ticker:     "SPY",
		Date:       "2025-03-14",
		Prediction: core.Outlook{Direction: core.DirectionDown, Confidence: 20, SignalStrength: -4},
	})
	require.NoError(t, err)

	assert.Equal(t, "forecast", got.event.Type)
	assert.Equal(t, time.Date(2025, 3, 14, 21, 30, 0, 0, time.UTC), got.event.SentAt)
	require.NotNil(t, got.event.Forecast)
	assert.Equal(t, "SPY", got.event.Forecast.Ticker)
	assert.Equal(t, core.DirectionDown, got.event.Forecast.Prediction.Direction)
	assert.Equal(t, "forecast", got.headers.Get("X-Augur-Event"))
	assert.Equal(t, "Bearer hook-token", got.headers.Get("Authorization"))
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
}

func TestWebhook_SendResolution(t *testing.T) {
	srv, got := newServer(t, http.StatusNoContent, "")
	w := newWebhook(srv.URL, nil)

	err := w.SendResolution(context.Background(), notifier.Resolution{
		Resolved:   []core.Prediction{{ID: 1}, {ID: 2}},
		Statistics: core.Statistics{TotalPredictions: 4, EvaluatedPredictions: 2, Accuracy: 50},
	})
	require.NoError(t, err)

	assert.Equal(t, "resolution", got.event.Type)
	assert.Equal(t, 2, got.event.Count)
	assert.Len(t, got.event.Predictions, 2)
	require.NotNil(t, got.event.Statistics)
	assert.Equal(t, 50.0, got.event.Statistics.Accuracy)
	assert.Nil(t, got.event.Forecast)
}

func TestWebhook_SendResolution_EmptyBatchSendsNothing(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, "")
	w := newWebhook(srv.URL, nil)

	require.NoError(t, w.SendResolution(context.Background(), notifier.Resolution{}))
	assert.Zero(t, got.calls)
}

func TestWebhook_SendAlert(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, "")
	w := newWebhook(srv.URL, nil)

	require.NoError(t, w.SendAlert(context.Background(), "[CRITICAL] lookups: Price lookups failing"))
	assert.Equal(t, "alert", got.event.Type)
	assert.Equal(t, "[CRITICAL] lookups: Price lookups failing", got.event.Message)
	assert.Equal(t, "alert", got.headers.Get("X-Augur-Event"))
}

func TestWebhook_ServerErrorIncludesBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway, "upstream down\n")
	w := newWebhook(srv.URL, nil)

	err := w.SendForecast(context.Background(), core.Forecast{Ticker: "SPY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestWebhook_CancelledContext(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, "")
	w := newWebhook(srv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.SendAlert(ctx, "x"), context.Canceled)
}
