// Package ledger records forecasts as predictions, resolves them against
// realized prices and keeps accuracy statistics.
package ledger

import (
	"fmt"

	"github.com/newthinker/augur/internal/core"
)

// Ledger owns the ordered prediction history and its derived statistics.
// Insertion order is id order.
type Ledger struct {
	Predictions []core.Prediction `json:"predictions"`
	Statistics  core.Statistics   `json:"statistics"`
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{Predictions: []core.Prediction{}}
}

// Record appends f as a pending prediction and returns it.
func (l *Ledger) Record(f core.Forecast) (core.Prediction, error) {
	if !f.Prediction.Direction.IsValid() {
		return core.Prediction{}, fmt.Errorf("forecast for %s has invalid direction %q", f.Date, f.Prediction.Direction)
	}
	if f.RunID != "" {
		for _, p := range l.Predictions {
			if p.ForecastID == f.RunID {
				return core.Prediction{}, core.WrapError(core.ErrDuplicateForecast,
					fmt.Errorf("run %s is prediction #%d", f.RunID, p.ID))
			}
		}
	}

	p := core.Prediction{
		ID:                 len(l.Predictions) + 1,
		ForecastID:         f.RunID,
		Timestamp:          f.Timestamp,
		Date:               f.Date,
		Ticker:             f.Ticker,
		PriceAtPrediction:  f.CurrentPrice,
		PredictedDirection: f.Prediction.Direction,
		Confidence:         f.Prediction.Confidence,
		SignalStrength:     f.Prediction.SignalStrength,
		Signals:            f.Signals,
	}
	l.Predictions = append(l.Predictions, p)
	return p, nil
}

// Pending returns the number of predictions not yet evaluated.
func (l *Ledger) Pending() int {
	var n int
	for _, p := range l.Predictions {
		if !p.Evaluated {
			n++
		}
	}
	return n
}

// Recent returns a copy of the last limit predictions in insertion order;
// limit <= 0 returns them all.
func (l *Ledger) Recent(limit int) []core.Prediction {
	start := len(l.Predictions) - limit
	if start < 0 || limit <= 0 {
		start = 0
	}
	out := make([]core.Prediction, len(l.Predictions)-start)
	copy(out, l.Predictions[start:])
	return out
}
