package scoring

import "github.com/newthinker/augur/internal/core"

// Hit records a rule branch that fired during scoring
type Hit struct {
	Rule     string
	Branch   string
	Category core.Category
	Delta    int
}

// Scorer turns an indicator snapshot into per-category votes
type Scorer struct {
	rules []Rule
}

// New creates a scorer using DefaultRules
func New() *Scorer {
	return NewWithRules(DefaultRules)
}

// NewWithRules creates a scorer over a custom rulebook
func NewWithRules(rules []Rule) *Scorer {
	return &Scorer{rules: rules}
}

// Score evaluates every rule in order. It is pure and deterministic.
func (sc *Scorer) Score(s core.IndicatorSnapshot) core.CategoryScores {
	scores, _ := sc.Explain(s)
	return scores
}

// Explain scores the snapshot and also returns the branches that fired.
func (sc *Scorer) Explain(s core.IndicatorSnapshot) (core.CategoryScores, []Hit) {
	var scores core.CategoryScores
	hits := make([]Hit, 0, len(sc.rules))
	for _, r := range sc.rules {
		b, ok := r.Fire(s)
		if !ok {
			continue
		}
		scores.Add(r.Category, b.Delta)
		hits = append(hits, Hit{Rule: r.Name, Branch: b.Name, Category: r.Category, Delta: b.Delta})
	}
	return scores, hits
}

// Bound is the largest absolute score the category can reach under this rulebook.
func (sc *Scorer) Bound(c core.Category) int {
	var total int
	for _, r := range sc.rules {
		if r.Category == c {
			total += r.MaxAbs()
		}
	}
	return total
}

// MaxStrength is the largest absolute signal strength the rulebook can produce.
func (sc *Scorer) MaxStrength() int {
	var total int
	for _, c := range core.Categories {
		total += sc.Bound(c)
	}
	return total
}

// Score evaluates DefaultRules against s.
func Score(s core.IndicatorSnapshot) core.CategoryScores {
	return New().Score(s)
}
