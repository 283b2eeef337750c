package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/augur/internal/core"
	"go.uber.org/zap"
)

// PriceLookup returns realized closes for ticker starting at date
// (YYYY-MM-DD), ascending. An empty result means nothing is known yet.
type PriceLookup interface {
	LookupRealizedPrices(ctx context.Context, ticker, date string) ([]float64, error)
}

// Policy is the resolution window and dead zone.
type Policy struct {
	// MinAge is how long after its timestamp a prediction becomes eligible.
	MinAge time.Duration
	// Sessions is how many realized closes, counted from the prediction
	// date, must exist. The last of them is the realized price.
	Sessions int
	// DeadZonePct is the absolute move, in percent, still classed NEUTRAL.
	DeadZonePct float64
}

// DefaultPolicy is 24 hours, two sessions and a ±0.1% dead zone.
func DefaultPolicy() Policy {
	return Policy{MinAge: 24 * time.Hour, Sessions: 2, DeadZonePct: 0.1}
}

// Classify maps a realized percentage move to a direction.
func Classify(changePct, deadZonePct float64) core.Direction {
	switch {
	case changePct > deadZonePct:
		return core.DirectionUp
	case changePct < -deadZonePct:
		return core.DirectionDown
	default:
		return core.DirectionNeutral
	}
}

// ResolveReport summarizes one resolution pass.
type ResolveReport struct {
	Resolved []core.Prediction
	Waiting  int
	Failed   int
}

// ResolvePending evaluates every pending prediction that has aged past the
// policy window and has enough realized prices. A failed lookup is logged
// and leaves that prediction pending; the pass continues. Evaluated
// predictions are never touched.
func (l *Ledger) ResolvePending(ctx context.Context, now time.Time, lookup PriceLookup, policy Policy, logger *zap.Logger) ResolveReport {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := policy.Sessions
	if sessions < 1 {
		sessions = 1
	}

	var report ResolveReport
	for i := range l.Predictions {
		p := &l.Predictions[i]
		if p.Evaluated {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if now.Sub(p.Timestamp.Time) < policy.MinAge {
			report.Waiting++
			continue
		}

		closes, err := lookup.LookupRealizedPrices(ctx, p.Ticker, p.Date)
		if err != nil {
			report.Failed++
			logger.Warn("resolution lookup failed",
				zap.Int("id", p.ID),
				zap.String("ticker", p.Ticker),
				zap.String("date", p.Date),
				zap.Error(core.WrapError(core.ErrResolutionLookup, err)),
			)
			continue
		}
		if len(closes) < sessions {
			report.Waiting++
			continue
		}
		if p.PriceAtPrediction <= 0 {
			report.Failed++
			logger.Warn("prediction has no reference price",
				zap.Int("id", p.ID),
				zap.Error(core.WrapError(core.ErrResolutionLookup, fmt.Errorf("price_at_prediction %v", p.PriceAtPrediction))),
			)
			continue
		}

		after := closes[sessions-1]
		changePct := (after - p.PriceAtPrediction) / p.PriceAtPrediction * 100
		actual := Classify(changePct, policy.DeadZonePct)
		correct := p.PredictedDirection == actual
		roundedPct := core.Round(changePct, 2)
		roundedAfter := core.Round(after, 2)

		p.Evaluated = true
		p.ActualDirection = &actual
		p.ActualChangePct = &roundedPct
		p.Correct = &correct
		p.PriceAfterWindow = &roundedAfter
		report.Resolved = append(report.Resolved, *p)

		logger.Info("prediction resolved",
			zap.Int("id", p.ID),
			zap.String("predicted", string(p.PredictedDirection)),
			zap.String("actual", string(actual)),
			zap.Float64("change_pct", roundedPct),
			zap.Bool("correct", correct),
		)
	}
	return report
}
