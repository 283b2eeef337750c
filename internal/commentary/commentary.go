// Package commentary asks a language model for a short reading of a
// forecast: what the category scores say and what could invalidate them.
package commentary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/llm"
	"go.uber.org/zap"
)

// Config tunes the model request.
type Config struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Commentator annotates forecasts using an LLM provider.
type Commentator struct {
	llm    llm.Provider
	cfg    Config
	logger *zap.Logger
}

// New creates a commentator.
func New(provider llm.Provider, cfg Config, logger *zap.Logger) *Commentator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	return &Commentator{llm: provider, cfg: cfg, logger: logger}
}

type reply struct {
	Summary string   `json:"summary"`
	Risks   []string `json:"risks"`
}

// Annotate returns a commentary for f. A reply that is not the requested
// JSON is kept verbatim as the summary.
func (c *Commentator) Annotate(ctx context.Context, f core.Forecast) (*core.Commentary, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: buildPrompt(f)}},
		MaxTokens:    c.cfg.MaxTokens,
		Temperature:  c.cfg.Temperature,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM error: %w", err)
	}
	c.logger.Debug("commentary received",
		zap.String("provider", c.llm.Name()),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)

	out := &core.Commentary{Model: c.llm.Model()}
	var r reply
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &r); err != nil || r.Summary == "" {
		out.Summary = strings.TrimSpace(resp.Content)
	} else {
		out.Summary = r.Summary
		out.Risks = r.Risks
	}
	if out.Summary == "" {
		return nil, fmt.Errorf("empty commentary from %s", c.llm.Name())
	}
	return out, nil
}

func buildPrompt(f core.Forecast) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s forecast for the session after %s\n\n", f.Ticker, f.Date)
	fmt.Fprintf(&sb, "- Close: %.2f (%+.2f, %+.2f%%)\n", f.CurrentPrice, f.PriceChange, f.PriceChangePct)
	fmt.Fprintf(&sb, "- Direction: %s\n", f.Prediction.Direction)
	fmt.Fprintf(&sb, "- Confidence: %.1f%%\n", f.Prediction.Confidence)
	fmt.Fprintf(&sb, "- Signal strength: %d\n\n", f.Prediction.SignalStrength)

	sb.WriteString("## Category scores (positive is bullish):\n")
	for _, cat := range core.Categories {
		fmt.Fprintf(&sb, "- %s: %+d\n", cat, f.Signals.Get(cat))
	}

	ind := f.Indicators
	sb.WriteString("\n## Indicators:\n")
	fmt.Fprintf(&sb, "- RSI %.2f, MACD %.4f, ADX %.2f\n", ind.RSI, ind.MACD, ind.ADX)
	fmt.Fprintf(&sb, "- Stochastic %.2f, MFI %.2f, ATR %.2f\n\n", ind.Stochastic, ind.MFI, ind.ATR)

	sb.WriteString("## Task:\n")
	sb.WriteString("Explain in two or three sentences why the scores lead to this direction, ")
	sb.WriteString("then list up to three conditions that would invalidate it.\n")
	sb.WriteString("\nRespond with JSON containing: summary, risks.\n")

	return sb.String()
}

const systemPrompt = `You are a market technician commenting on a rule-based daily forecast.
The direction and confidence are already decided; do not change or second-guess them.
Describe only what the given scores and indicators show. No investment advice.

Respond in JSON format:
{
  "summary": "two or three sentences",
  "risks": ["condition that would invalidate the call", "..."]
}`
