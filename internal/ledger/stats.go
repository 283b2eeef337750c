package ledger

import (
	"time"

	"github.com/newthinker/augur/internal/core"
)

// ComputeStatistics recomputes accuracy from scratch over preds. Buckets
// with no evaluated predictions report zero accuracy.
func ComputeStatistics(preds []core.Prediction, now time.Time) core.Statistics {
	st := core.Statistics{
		TotalPredictions: len(preds),
		LastUpdated:      core.NewTimestamp(now),
	}

	for _, p := range preds {
		if !p.Evaluated {
			continue
		}
		st.EvaluatedPredictions++
		correct := p.IsCorrect()
		if correct {
			st.Correct++
		} else {
			st.Incorrect++
		}

		if b := st.ByDirection.For(p.PredictedDirection); b != nil {
			b.Total++
			if correct {
				b.Correct++
			}
		}
	}

	st.Accuracy = percent(st.Correct, st.EvaluatedPredictions)
	for _, d := range []core.Direction{core.DirectionUp, core.DirectionDown, core.DirectionNeutral} {
		b := st.ByDirection.For(d)
		b.Accuracy = percent(b.Correct, b.Total)
	}
	return st
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return core.Round(float64(part)/float64(whole)*100, 2)
}

// Export is the read-only view written for dashboards.
type Export struct {
	Statistics        core.Statistics   `json:"statistics"`
	RecentPredictions []core.Prediction `json:"recent_predictions"`
	LastUpdated       core.Timestamp    `json:"last_updated"`
}

// DefaultRecentLimit is how many predictions an export carries.
const DefaultRecentLimit = 30

// Export refreshes l.Statistics and returns the export view holding at most
// limit of the most recent predictions.
func (l *Ledger) Export(now time.Time, limit int) Export {
	l.Statistics = ComputeStatistics(l.Predictions, now)
	return Export{
		Statistics:        l.Statistics,
		RecentPredictions: l.Recent(limit),
		LastUpdated:       core.NewTimestamp(now),
	}
}
