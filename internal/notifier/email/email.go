// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/notifier"
)

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host, ok := cfg.Params["host"].(string); ok {
		e.host = host
	}
	if port, ok := cfg.Params["port"].(int); ok {
		e.port = port
	}
	if username, ok := cfg.Params["username"].(string); ok {
		e.username = username
	}
	if password, ok := cfg.Params["password"].(string); ok {
		e.password = password
	}
	if from, ok := cfg.Params["from"].(string); ok {
		e.from = from
	}
	if to, ok := cfg.Params["to"].([]string); ok {
		e.to = to
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	return nil
}

func (e *Email) SendForecast(ctx context.Context, f core.Forecast) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("AUGUR Forecast: %s %s (%.1f%%)", f.Ticker, f.Prediction.Direction, f.Prediction.Confidence)
	return e.sendEmail(subject, e.formatForecast(f))
}

func (e *Email) SendResolution(ctx context.Context, r notifier.Resolution) error {
	if len(r.Resolved) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("AUGUR Digest: %d Prediction(s) Evaluated, Accuracy %.2f%%",
		len(r.Resolved), r.Statistics.Accuracy)

	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<h2>AUGUR Prediction Results</h2>")
	sb.WriteString("<hr>")

	for _, p := range r.Resolved {
		sb.WriteString(e.formatPredictionHTML(p))
		sb.WriteString("<hr>")
	}

	st := r.Statistics
	sb.WriteString(fmt.Sprintf("<p><strong>Accuracy:</strong> %.2f%% (%d correct, %d incorrect, %d total)</p>",
		st.Accuracy, st.Correct, st.Incorrect, st.TotalPredictions))
	sb.WriteString("</body></html>")

	return e.sendEmail(subject, sb.String())
}

func (e *Email) SendAlert(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.sendEmail("AUGUR Alert", msg)
}

func (e *Email) formatForecast(f core.Forecast) string {
	body := fmt.Sprintf(`
AUGUR Forecast

Ticker: %s
Prediction: %s
Confidence: %.1f%%
Signal strength: %+d
Signals: trend %+d, momentum %+d, volatility %+d, volume %+d
Price: %.2f (%+.2f%%)
Time: %s %s
`,
		f.Ticker,
		f.Prediction.Direction,
		f.Prediction.Confidence,
		f.Prediction.SignalStrength,
		f.Signals.Trend, f.Signals.Momentum, f.Signals.Volatility, f.Signals.Volume,
		f.CurrentPrice, f.PriceChangePct,
		f.Date, f.Time,
	)
	if f.Commentary != nil {
		body += "\nCommentary: " + f.Commentary.Summary + "\n"
		for _, r := range f.Commentary.Risks {
			body += "  - " + r + "\n"
		}
	}
	return body
}

func (e *Email) formatPredictionHTML(p core.Prediction) string {
	color := "#dc3545" // red for a miss
	if p.IsCorrect() {
		color = "#28a745" // green for a hit
	}
	actual := "-"
	if p.ActualDirection != nil {
		actual = string(*p.ActualDirection)
	}
	change := 0.0
	if p.ActualChangePct != nil {
		change = *p.ActualChangePct
	}

	return fmt.Sprintf(`
<div style="margin: 10px 0;">
  <h3 style="color: %s;">#%d %s - %s</h3>
  <p><strong>Predicted:</strong> %s (%.1f%%)</p>
  <p><strong>Actual:</strong> %s (%+.2f%%)</p>
</div>
`,
		color,
		p.ID,
		p.Ticker,
		p.Date,
		p.PredictedDirection,
		p.Confidence,
		actual,
		change,
	)
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	contentType := "text/plain"
	if strings.Contains(body, "<html>") {
		contentType = "text/html"
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		contentType,
		body,
	)

	return e.send(addr, auth, e.from, e.to, []byte(msg))
}
