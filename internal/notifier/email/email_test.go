package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/notifier"
)

type captured struct {
	addr string
	to   []string
	msg  string
}

func newCapturing() (*Email, *captured) {
	e := New("smtp.example.com", 587, "", "", "augur@example.com", []string{"to@example.com"})
	c := &captured{}
	e.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.to, c.msg = addr, to, string(msg)
		return nil
	}
	return e, c
}

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestEmail_Name(t *testing.T) {
	e := New("smtp.example.com", 587, "", "", "from@example.com", []string{"to@example.com"})
	if e.Name() != "email" {
		t.Errorf("expected 'email', got %s", e.Name())
	}
}

func TestEmail_Init_RequiredFields(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{Params: map[string]any{}})
	if err == nil {
		t.Error("expected error for missing required fields")
	}
}

func TestEmail_Init_WithConfig(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{
		Params: map[string]any{
			"host": "smtp.example.com",
			"port": 587,
			"from": "augur@example.com",
			"to":   []string{"user@example.com"},
		},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if e.host != "smtp.example.com" {
		t.Errorf("expected host smtp.example.com, got %s", e.host)
	}
	if e.send == nil {
		t.Error("expected default sender")
	}
}

func TestEmail_SendForecast(t *testing.T) {
	e, c := newCapturing()

	err := e.SendForecast(context.Background(), core.Forecast{
		Ticker:     "SPY",
		Prediction: core.Outlook{Direction: core.DirectionUp, Confidence: 35, SignalStrength: 7},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.addr != "smtp.example.com:587" {
		t.Errorf("unexpected addr %s", c.addr)
	}
	if !strings.Contains(c.msg, "Subject: AUGUR Forecast: SPY UP (35.0%)") {
		t.Errorf("unexpected subject in:\n%s", c.msg)
	}
	if !strings.Contains(c.msg, "Content-Type: text/plain") {
		t.Error("forecast mail should be plain text")
	}
}

func TestEmail_SendForecast_CancelledContext(t *testing.T) {
	e, c := newCapturing()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.SendForecast(ctx, core.Forecast{}); err == nil {
		t.Error("expected error for cancelled context")
	}
	if c.msg != "" {
		t.Error("nothing should be sent")
	}
}

func TestEmail_SendResolution(t *testing.T) {
	e, c := newCapturing()
	up, down := core.DirectionUp, core.DirectionDown
	correct, wrong := true, false

	err := e.SendResolution(context.Background(), notifier.Resolution{
		Resolved: []core.Prediction{
			{ID: 1, Ticker: "SPY", PredictedDirection: up, ActualDirection: &up, Evaluated: true, Correct: &correct},
			{ID: 2, Ticker: "SPY", PredictedDirection: up, ActualDirection: &down, Evaluated: true, Correct: &wrong},
		},
		Statistics: core.Statistics{Accuracy: 50, Correct: 1, Incorrect: 1, TotalPredictions: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(c.msg, "Content-Type: text/html") {
		t.Error("digest should be html")
	}
	if !strings.Contains(c.msg, "#28a745") || !strings.Contains(c.msg, "#dc3545") {
		t.Error("digest should color hits green and misses red")
	}
	if !strings.Contains(c.msg, "2 Prediction(s) Evaluated, Accuracy 50.00%") {
		t.Errorf("unexpected subject in:\n%s", c.msg)
	}
}

func TestEmail_SendResolution_Empty(t *testing.T) {
	e, c := newCapturing()

	err := e.SendResolution(context.Background(), notifier.Resolution{})
	if err != nil {
		t.Errorf("empty resolution should not error: %v", err)
	}
	if c.msg != "" {
		t.Error("nothing should be sent")
	}
}

func TestEmail_SendAlert(t *testing.T) {
	e, c := newCapturing()

	if err := e.SendAlert(context.Background(), "[WARNING] backlog: Too many pending predictions"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(c.msg, "Subject: AUGUR Alert") {
		t.Errorf("unexpected subject in:\n%s", c.msg)
	}
	if !strings.Contains(c.msg, "backlog") {
		t.Error("alert body missing")
	}
}

func TestEmail_SendForecast_Commentary(t *testing.T) {
	e, c := newCapturing()

	err := e.SendForecast(context.Background(), core.Forecast{
		Ticker:     "SPY",
		Prediction: core.Outlook{Direction: core.DirectionDown, Confidence: 20},
		Commentary: &core.Commentary{Summary: "Momentum rolled over.", Risks: []string{"RSI back above 50"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(c.msg, "Commentary: Momentum rolled over.") || !strings.Contains(c.msg, "  - RSI back above 50") {
		t.Errorf("commentary missing in:\n%s", c.msg)
	}
}
