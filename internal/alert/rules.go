package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rule is a threshold check over the ledger health snapshot, written as
// "metric op value", e.g. "accuracy < 50".
type Rule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`
}

var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

type condition struct {
	metric    string
	op        string
	threshold float64
}

func (r *Rule) parse() (condition, error) {
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(m) != 4 {
		return condition{}, fmt.Errorf("rule %q: cannot parse expression %q", r.Name, r.Expr)
	}
	threshold, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("rule %q: bad threshold %q: %w", r.Name, m[3], err)
	}
	return condition{metric: m[1], op: m[2], threshold: threshold}, nil
}

// Validate reports whether the rule is well formed.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	_, err := r.parse()
	return err
}

// Evaluate reports whether the rule holds for metrics. Malformed
// expressions and metrics absent from the snapshot never trigger.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	c, err := r.parse()
	if err != nil {
		return false
	}
	value, ok := metrics[c.metric]
	if !ok {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// FormatMessage renders the alert text, including the observed value.
func (r *Rule) FormatMessage(metrics map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Severity), r.Name, r.Message)
	if c, err := r.parse(); err == nil {
		if v, ok := metrics[c.metric]; ok {
			msg += fmt.Sprintf(" (%s=%.2f)", c.metric, v)
		}
	}
	return msg
}
