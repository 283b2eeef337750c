// Package webhook posts forecasts, gradings and alerts as JSON events.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/notifier"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody caps how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// Event is the body of every webhook call. Type is one of "forecast",
// "resolution" or "alert" and selects which of the other fields is set.
type Event struct {
	Type        string            `json:"type"`
	SentAt      time.Time         `json:"sent_at"`
	Forecast    *core.Forecast    `json:"forecast,omitempty"`
	Count       int               `json:"count,omitempty"`
	Predictions []core.Prediction `json:"predictions,omitempty"`
	Statistics  *core.Statistics  `json:"statistics,omitempty"`
	Message     string            `json:"message,omitempty"`
}

// Webhook delivers events to a single HTTP endpoint.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
	now     func() time.Time
}

// New creates a webhook notifier posting to url with the extra headers.
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
		now:     time.Now,
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = url
	}
	if headers, ok := cfg.Params["headers"].(map[string]string); ok {
		w.headers = headers
	}
	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}
	if w.client == nil {
		w.client = &http.Client{Timeout: defaultTimeout}
	}
	if w.now == nil {
		w.now = time.Now
	}
	return nil
}

// SendForecast posts the forecast in its stored JSON layout.
func (w *Webhook) SendForecast(ctx context.Context, f core.Forecast) error {
	return w.post(ctx, Event{Type: "forecast", Forecast: &f})
}

// SendResolution posts graded predictions with the ledger statistics. An
// empty batch sends nothing.
func (w *Webhook) SendResolution(ctx context.Context, r notifier.Resolution) error {
	if len(r.Resolved) == 0 {
		return nil
	}
	return w.post(ctx, Event{
		Type:        "resolution",
		Count:       len(r.Resolved),
		Predictions: r.Resolved,
		Statistics:  &r.Statistics,
	})
}

func (w *Webhook) SendAlert(ctx context.Context, msg string) error {
	return w.post(ctx, Event{Type: "alert", Message: msg})
}

func (w *Webhook) post(ctx context.Context, ev Event) error {
	ev.SentAt = w.now().UTC()
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: marshal %s event: %w", ev.Type, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Augur-Event", ev.Type)
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post %s event: %w", ev.Type, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
