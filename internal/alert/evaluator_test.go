package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	sent []string
	err  error
}

func (m *mockNotifier) NotifyAlert(ctx context.Context, msg string) map[string]error {
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return map[string]error{"mock": m.err}
	}
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEvaluator(n *mockNotifier) (*Evaluator, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 3, 14, 17, 0, 0, 0, time.UTC)}
	eval := NewEvaluator(n, nil)
	eval.SetClock(clk.now)
	return eval, clk
}

func TestEvaluator_ForDuration(t *testing.T) {
	n := &mockNotifier{}
	eval, clk := newTestEvaluator(n)

	rule := Rule{
		Name:     "low_accuracy",
		Expr:     "accuracy < 50",
		For:      48 * time.Hour,
		Severity: "warning",
		Message:  "Accuracy below coin flip",
	}
	eval.SetMetrics(map[string]float64{MetricAccuracy: 42.5})

	// The first breach only starts the pending timer.
	assert.Empty(t, eval.Evaluate(context.Background(), rule))
	assert.Empty(t, n.sent)

	clk.advance(72 * time.Hour)
	msg := eval.Evaluate(context.Background(), rule)
	assert.Equal(t, "[WARNING] low_accuracy: Accuracy below coin flip (accuracy=42.50)", msg)
	assert.Len(t, n.sent, 1)
}

func TestEvaluator_Cooldown(t *testing.T) {
	n := &mockNotifier{}
	eval, clk := newTestEvaluator(n)
	eval.SetCooldown(24 * time.Hour)

	rule := Rule{Name: "lookups", Expr: "lookup_failures > 0", Severity: "critical", Message: "Price lookups failing"}
	eval.SetMetrics(map[string]float64{MetricLookupFailures: 2})

	ctx := context.Background()
	eval.Evaluate(ctx, rule)
	eval.Evaluate(ctx, rule)
	eval.Evaluate(ctx, rule)
	assert.Len(t, n.sent, 1, "cooldown suppresses repeats")

	clk.advance(25 * time.Hour)
	eval.Evaluate(ctx, rule)
	assert.Len(t, n.sent, 2)
}

func TestEvaluator_DeliveryErrorStillCountsAsFired(t *testing.T) {
	n := &mockNotifier{err: errors.New("unreachable")}
	eval, _ := newTestEvaluator(n)

	rule := Rule{Name: "backlog", Expr: "pending >= 5", Severity: "warning", Message: "Backlog"}
	eval.SetMetrics(map[string]float64{MetricPending: 7})

	assert.NotEmpty(t, eval.Evaluate(context.Background(), rule))
	assert.Empty(t, eval.Evaluate(context.Background(), rule))
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	n := &mockNotifier{}
	eval, _ := newTestEvaluator(n)

	rules := []Rule{
		{Name: "lookups", Expr: "lookup_failures > 0", Severity: "critical", Message: "Down"},
		{Name: "backlog", Expr: "pending > 10", Severity: "warning", Message: "Backlog"},
	}
	eval.SetMetrics(map[string]float64{MetricLookupFailures: 1, MetricPending: 3})

	fired := eval.EvaluateAll(context.Background(), rules)
	require.Len(t, fired, 1)
	assert.Contains(t, fired[0], "lookups")
}

func TestEvaluator_PendingClearsWhenRuleNoLongerTriggers(t *testing.T) {
	n := &mockNotifier{}
	eval, clk := newTestEvaluator(n)
	ctx := context.Background()

	rule := Rule{Name: "low_accuracy", Expr: "accuracy < 50", For: time.Hour, Severity: "warning", Message: "Low"}

	eval.SetMetrics(map[string]float64{MetricAccuracy: 40})
	eval.Evaluate(ctx, rule)

	eval.SetMetrics(map[string]float64{MetricAccuracy: 60})
	eval.Evaluate(ctx, rule)

	clk.advance(2 * time.Hour)
	eval.SetMetrics(map[string]float64{MetricAccuracy: 40})
	eval.Evaluate(ctx, rule)

	assert.Empty(t, n.sent, "pending timer restarted")
}

func TestSnapshot(t *testing.T) {
	m := Snapshot(core.Statistics{TotalPredictions: 4}, 1)
	_, hasAccuracy := m[MetricAccuracy]
	assert.False(t, hasAccuracy, "no accuracy before anything is evaluated")
	assert.Equal(t, 4.0, m[MetricPending])
	assert.Equal(t, 1.0, m[MetricLookupFailures])

	m = Snapshot(core.Statistics{TotalPredictions: 4, EvaluatedPredictions: 3, Accuracy: 66.67}, 0)
	assert.Equal(t, 66.67, m[MetricAccuracy])
	assert.Equal(t, 1.0, m[MetricPending])
}

func TestRule_Evaluate(t *testing.T) {
	tests := []struct {
		expr     string
		metrics  map[string]float64
		expected bool
	}{
		{"accuracy < 50", map[string]float64{"accuracy": 42}, true},
		{"accuracy < 50", map[string]float64{"accuracy": 55}, false},
		{"lookup_failures == 0", map[string]float64{"lookup_failures": 0}, true},
		{"pending >= 10", map[string]float64{"pending": 10}, true},
		{"pending >= 10", map[string]float64{"pending": 9}, false},
		{"accuracy <= 40.5", map[string]float64{"accuracy": 40.5}, true},
		{"evaluated != 0", map[string]float64{"evaluated": 3}, true},
		{"delta > -1", map[string]float64{"delta": 0}, true},
		{"missing > 0", map[string]float64{}, false},
		{"not an expression", map[string]float64{"not": 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			rule := Rule{Expr: tt.expr}
			assert.Equal(t, tt.expected, rule.Evaluate(tt.metrics))
		})
	}
}

func TestRule_Validate(t *testing.T) {
	assert.NoError(t, (&Rule{Name: "ok", Expr: "accuracy < 50"}).Validate())
	assert.Error(t, (&Rule{Expr: "accuracy < 50"}).Validate())
	assert.Error(t, (&Rule{Name: "bad", Expr: "accuracy <<< 50"}).Validate())
}

func TestRule_FormatMessage(t *testing.T) {
	rule := Rule{Name: "backlog", Severity: "warning", Message: "Too many pending predictions"}
	assert.Equal(t, "[WARNING] backlog: Too many pending predictions", rule.FormatMessage(nil))
}
