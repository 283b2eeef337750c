package commentary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	content string
	err     error
	got     llm.ChatRequest
	ctxErr  error
}

func (m *mockProvider) Name() string  { return "mock" }
func (m *mockProvider) Model() string { return "mock-1" }
func (m *mockProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.got = req
	if _, ok := ctx.Deadline(); !ok {
		m.ctxErr = errors.New("no deadline")
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResponse{Content: m.content}, nil
}

func sampleForecast() core.Forecast {
	return core.Forecast{
		Ticker:         "SPY",
		Date:           "2025-03-14",
		CurrentPrice:   562.81,
		PriceChange:    11.39,
		PriceChangePct: 2.07,
		Prediction:     core.Outlook{Direction: core.DirectionUp, Confidence: 35, SignalStrength: 7},
		Signals:        core.CategoryScores{Trend: 4, Momentum: 2, Volatility: -1, Volume: 2},
		Indicators:     core.DisplayIndicators{RSI: 61.2, MACD: 1.2345, ADX: 27.5},
	}
}

func TestAnnotate_JSON(t *testing.T) {
	p := &mockProvider{content: `{"summary":"Trend and volume agree.","risks":["close below SMA20"]}`}
	c := New(p, Config{Timeout: time.Second}, nil)

	got, err := c.Annotate(context.Background(), sampleForecast())
	require.NoError(t, err)
	assert.Equal(t, "Trend and volume agree.", got.Summary)
	assert.Equal(t, []string{"close below SMA20"}, got.Risks)
	assert.Equal(t, "mock-1", got.Model)

	assert.True(t, p.got.JSONMode)
	assert.Equal(t, 400, p.got.MaxTokens)
	assert.NoError(t, p.ctxErr, "timeout should bound the request")
}

func TestAnnotate_PlainTextFallback(t *testing.T) {
	p := &mockProvider{content: "  Momentum is fading.  "}
	c := New(p, Config{}, nil)

	got, err := c.Annotate(context.Background(), sampleForecast())
	require.NoError(t, err)
	assert.Equal(t, "Momentum is fading.", got.Summary)
	assert.Empty(t, got.Risks)
}

func TestAnnotate_Errors(t *testing.T) {
	_, err := New(&mockProvider{err: errors.New("rate limited")}, Config{}, nil).
		Annotate(context.Background(), sampleForecast())
	assert.Error(t, err)

	_, err = New(&mockProvider{content: "   "}, Config{}, nil).
		Annotate(context.Background(), sampleForecast())
	assert.Error(t, err, "empty reply is an error")
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(sampleForecast())

	for _, want := range []string{
		"SPY forecast for the session after 2025-03-14",
		"Direction: UP",
		"Confidence: 35.0%",
		"trend: +4",
		"volatility: -1",
		"RSI 61.20",
	} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q:\n%s", want, prompt)
	}
}
