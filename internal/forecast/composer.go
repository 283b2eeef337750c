package forecast

import (
	"math"
	"time"

	"github.com/newthinker/augur/internal/core"
)

// MaxScore is the signal strength at which confidence saturates at 100.
const MaxScore = 20

// PriceInfo is the price context of the bar being forecast.
type PriceInfo struct {
	Ticker    string
	At        time.Time
	Close     float64
	PrevClose float64
}

// Direction maps a signal strength to its directional call.
func Direction(strength int) core.Direction {
	return core.DirectionOf(strength)
}

// Confidence normalizes |strength| against MaxScore, saturating at 100.
func Confidence(strength int) float64 {
	c := math.Abs(float64(strength)) / MaxScore * 100
	return core.Round(math.Min(100, c), 2)
}

// DisplayFrom selects the raw indicator values shown next to a forecast.
func DisplayFrom(s core.IndicatorSnapshot) core.DisplayIndicators {
	return core.DisplayIndicators{
		RSI:        core.Round(s.RSI, 2),
		MACD:       core.Round(s.MACD, 4),
		ADX:        core.Round(s.ADX, 2),
		Stochastic: core.Round(s.Stoch, 2),
		MFI:        core.Round(s.MFI, 2),
		ATR:        core.Round(s.ATR, 2),
	}
}

// Compose turns category scores into a forecast. It has no side effects.
func Compose(scores core.CategoryScores, price PriceInfo, display core.DisplayIndicators) core.Forecast {
	strength := scores.Sum()

	change := price.Close - price.PrevClose
	var changePct float64
	if price.PrevClose != 0 {
		changePct = change / price.PrevClose * 100
	}

	return core.Forecast{
		Timestamp:      core.NewTimestamp(price.At),
		Date:           price.At.Format("2006-01-02"),
		Time:           price.At.Format("15:04:05"),
		Ticker:         price.Ticker,
		CurrentPrice:   core.Round(price.Close, 2),
		PriceChange:    core.Round(change, 2),
		PriceChangePct: core.Round(changePct, 2),
		Prediction: core.Outlook{
			Direction:      Direction(strength),
			Confidence:     Confidence(strength),
			SignalStrength: strength,
		},
		Signals:    scores,
		Indicators: display,
	}
}
