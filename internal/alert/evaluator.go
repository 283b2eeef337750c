// Package alert raises threshold alerts over ledger health: accuracy,
// pending backlog and realized price lookup failures.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/augur/internal/core"
	"go.uber.org/zap"
)

// Snapshot metric names.
const (
	MetricAccuracy       = "accuracy"
	MetricEvaluated      = "evaluated"
	MetricTotal          = "total"
	MetricPending        = "pending"
	MetricLookupFailures = "lookup_failures"
)

// Sender delivers alert text and reports failures keyed by channel.
type Sender interface {
	NotifyAlert(ctx context.Context, msg string) map[string]error
}

// Snapshot builds the metrics rules are evaluated against. Accuracy is
// only present once something has been evaluated.
func Snapshot(st core.Statistics, lookupFailures int) map[string]float64 {
	m := map[string]float64{
		MetricEvaluated:      float64(st.EvaluatedPredictions),
		MetricTotal:          float64(st.TotalPredictions),
		MetricPending:        float64(st.TotalPredictions - st.EvaluatedPredictions),
		MetricLookupFailures: float64(lookupFailures),
	}
	if st.EvaluatedPredictions > 0 {
		m[MetricAccuracy] = st.Accuracy
	}
	return m
}

// Evaluator evaluates alert rules and sends notifications.
type Evaluator struct {
	sender   Sender
	logger   *zap.Logger
	metrics  map[string]float64
	cooldown time.Duration

	// rule name -> first time the condition held
	pending map[string]time.Time
	// rule name -> last time it fired
	lastFired map[string]time.Time

	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator creates an evaluator delivering through sender. A nil
// sender only logs.
func NewEvaluator(sender Sender, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		sender:    sender,
		logger:    logger,
		metrics:   make(map[string]float64),
		cooldown:  24 * time.Hour,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetMetrics replaces the current snapshot.
func (e *Evaluator) SetMetrics(metrics map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = metrics
}

// SetCooldown sets the minimum time between two firings of one rule.
func (e *Evaluator) SetCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}

// SetClock overrides time.Now.
func (e *Evaluator) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Evaluate checks one rule and notifies when it fires. It returns the
// message sent, or "" when the rule did not fire.
func (e *Evaluator) Evaluate(ctx context.Context, rule Rule) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	if !rule.Evaluate(e.metrics) {
		delete(e.pending, rule.Name)
		return ""
	}

	if rule.For > 0 {
		since, isPending := e.pending[rule.Name]
		if !isPending {
			e.pending[rule.Name] = now
			return ""
		}
		if now.Sub(since) < rule.For {
			return ""
		}
	}

	if last, fired := e.lastFired[rule.Name]; fired && now.Sub(last) < e.cooldown {
		return ""
	}

	msg := rule.FormatMessage(e.metrics)
	if e.sender != nil {
		for name, err := range e.sender.NotifyAlert(ctx, msg) {
			e.logger.Warn("alert delivery failed",
				zap.String("rule", rule.Name),
				zap.String("notifier", name),
				zap.Error(err))
		}
	}
	e.logger.Info("alert fired", zap.String("rule", rule.Name), zap.String("severity", rule.Severity))

	e.lastFired[rule.Name] = now
	delete(e.pending, rule.Name)
	return msg
}

// EvaluateAll evaluates rules in order and returns the messages sent.
func (e *Evaluator) EvaluateAll(ctx context.Context, rules []Rule) []string {
	var fired []string
	for _, rule := range rules {
		if msg := e.Evaluate(ctx, rule); msg != "" {
			fired = append(fired, msg)
		}
	}
	return fired
}
