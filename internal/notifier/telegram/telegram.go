package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/notifier"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}
	if baseURL, ok := cfg.Params["base_url"].(string); ok && baseURL != "" {
		t.baseURL = strings.TrimSuffix(baseURL, "/")
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) SendForecast(ctx context.Context, f core.Forecast) error {
	return t.sendMessage(ctx, t.formatForecast(f))
}

func (t *Telegram) SendResolution(ctx context.Context, r notifier.Resolution) error {
	if len(r.Resolved) == 0 {
		return nil
	}
	return t.sendMessage(ctx, t.formatResolution(r))
}

func (t *Telegram) SendAlert(ctx context.Context, msg string) error {
	return t.sendMessage(ctx, "🚨 "+msg)
}

func directionEmoji(d core.Direction) string {
	switch d {
	case core.DirectionUp:
		return "📈"
	case core.DirectionDown:
		return "📉"
	default:
		return "⏸️"
	}
}

func (t *Telegram) formatForecast(f core.Forecast) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s *%s* - %s\n", directionEmoji(f.Prediction.Direction), f.Ticker, f.Prediction.Direction))
	sb.WriteString(fmt.Sprintf("📊 Confidence: %.1f%%\n", f.Prediction.Confidence))
	sb.WriteString(fmt.Sprintf("🎯 Signal strength: %+d\n", f.Prediction.SignalStrength))
	sb.WriteString(fmt.Sprintf("💡 Trend %+d | Momentum %+d | Volatility %+d | Volume %+d\n",
		f.Signals.Trend, f.Signals.Momentum, f.Signals.Volatility, f.Signals.Volume))
	sb.WriteString(fmt.Sprintf("💰 Price: $%.2f (%+.2f%%)\n", f.CurrentPrice, f.PriceChangePct))
	sb.WriteString(fmt.Sprintf("⏰ Time: %s %s", f.Date, f.Time))
	if f.Commentary != nil {
		sb.WriteString("\n\n💬 " + f.Commentary.Summary)
		for _, r := range f.Commentary.Risks {
			sb.WriteString("\n⚠️ " + r)
		}
	}

	return sb.String()
}

func (t *Telegram) formatResolution(r notifier.Resolution) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🧾 *%d Prediction(s) Evaluated*\n\n", len(r.Resolved)))
	for _, p := range r.Resolved {
		mark := "❌"
		if p.IsCorrect() {
			mark = "✅"
		}
		actual := "-"
		if p.ActualDirection != nil {
			actual = string(*p.ActualDirection)
		}
		change := 0.0
		if p.ActualChangePct != nil {
			change = *p.ActualChangePct
		}
		sb.WriteString(fmt.Sprintf("%s #%d %s %s: predicted %s, actual %s (%+.2f%%)\n",
			mark, p.ID, p.Ticker, p.Date, p.PredictedDirection, actual, change))
	}

	st := r.Statistics
	sb.WriteString(fmt.Sprintf("\n🎯 Accuracy: %.2f%% (%d/%d)", st.Accuracy, st.Correct, st.EvaluatedPredictions))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
