package scoring

import "github.com/newthinker/augur/internal/core"

// Branch is one guarded adjustment inside a rule.
type Branch struct {
	Name  string
	When  func(s core.IndicatorSnapshot) bool
	Delta int
}

// Rule is an ordered cascade of branches. The first branch whose guard holds
// fires; if none holds the rule contributes nothing.
type Rule struct {
	Name     string
	Category core.Category
	Branches []Branch
}

// Fire returns the first matching branch of the rule.
func (r Rule) Fire(s core.IndicatorSnapshot) (Branch, bool) {
	for _, b := range r.Branches {
		if b.When(s) {
			return b, true
		}
	}
	return Branch{}, false
}

// MaxAbs is the largest absolute delta the rule can contribute.
func (r Rule) MaxAbs() int {
	var m int
	for _, b := range r.Branches {
		d := b.Delta
		if d < 0 {
			d = -d
		}
		if d > m {
			m = d
		}
	}
	return m
}

func always(core.IndicatorSnapshot) bool { return true }

func closeUp(s core.IndicatorSnapshot) bool { return s.Close > s.PrevClose }

// DefaultRules is the forecaster's rulebook. Order matters both across rules
// (evaluation order) and within a rule (first match wins).
var DefaultRules = []Rule{
	// Trend
	{
		Name:     "sma_alignment",
		Category: core.CategoryTrend,
		Branches: []Branch{
			{"above_sma20_above_sma50", func(s core.IndicatorSnapshot) bool { return s.Close > s.SMA20 && s.SMA20 > s.SMA50 }, 2},
			{"above_sma20", func(s core.IndicatorSnapshot) bool { return s.Close > s.SMA20 }, 1},
			{"below_sma20_below_sma50", func(s core.IndicatorSnapshot) bool { return s.Close < s.SMA20 && s.SMA20 < s.SMA50 }, -2},
			{"below_sma20", func(s core.IndicatorSnapshot) bool { return s.Close < s.SMA20 }, -1},
		},
	},
	{
		Name:     "macd_cross",
		Category: core.CategoryTrend,
		Branches: []Branch{
			{"macd_above_signal", func(s core.IndicatorSnapshot) bool { return s.MACD > s.MACDSignal }, 1},
			{"macd_not_above_signal", always, -1},
		},
	},
	{
		Name:     "adx_strength",
		Category: core.CategoryTrend,
		Branches: []Branch{
			{"strong_trend_up_day", func(s core.IndicatorSnapshot) bool { return s.ADX > 25 && closeUp(s) }, 1},
			{"strong_trend_down_day", func(s core.IndicatorSnapshot) bool { return s.ADX > 25 }, -1},
		},
	},

	// Momentum
	{
		Name:     "rsi_zone",
		Category: core.CategoryMomentum,
		Branches: []Branch{
			{"overbought", func(s core.IndicatorSnapshot) bool { return s.RSI > 70 }, -2},
			{"bullish", func(s core.IndicatorSnapshot) bool { return s.RSI > 60 }, 1},
			{"oversold", func(s core.IndicatorSnapshot) bool { return s.RSI < 30 }, 2},
			{"bearish", func(s core.IndicatorSnapshot) bool { return s.RSI < 40 }, -1},
		},
	},
	{
		Name:     "stochastic_cross",
		Category: core.CategoryMomentum,
		Branches: []Branch{
			{"k_above_d_not_overbought", func(s core.IndicatorSnapshot) bool { return s.Stoch > s.StochSignal && s.Stoch < 80 }, 1},
			{"k_below_d_not_oversold", func(s core.IndicatorSnapshot) bool { return s.Stoch < s.StochSignal && s.Stoch > 20 }, -1},
		},
	},
	{
		Name:     "rate_of_change",
		Category: core.CategoryMomentum,
		Branches: []Branch{
			{"positive_roc", func(s core.IndicatorSnapshot) bool { return s.ROC > 0 }, 1},
			{"non_positive_roc", always, -1},
		},
	},

	// Volatility
	{
		Name:     "bollinger_position",
		Category: core.CategoryVolatility,
		Branches: []Branch{
			{"above_upper_band", func(s core.IndicatorSnapshot) bool { return s.Close > s.BBUpper }, -1},
			{"below_lower_band", func(s core.IndicatorSnapshot) bool { return s.Close < s.BBLower }, 1},
			{"upper_half", func(s core.IndicatorSnapshot) bool { return s.Close > s.BBMiddle }, 1},
			{"lower_half", always, -1},
		},
	},
	{
		Name:     "atr_expansion",
		Category: core.CategoryVolatility,
		Branches: []Branch{
			{"atr_above_mean", func(s core.IndicatorSnapshot) bool { return s.ATR > s.ATRMean20 }, -1},
		},
	},

	// Volume
	{
		Name:     "volume_surge",
		Category: core.CategoryVolume,
		Branches: []Branch{
			{"heavy_buying", func(s core.IndicatorSnapshot) bool { return s.Volume > s.VolumeSMA20 && closeUp(s) }, 2},
			{"heavy_selling", func(s core.IndicatorSnapshot) bool { return s.Volume > s.VolumeSMA20 }, -2},
		},
	},
	{
		Name:     "money_flow",
		Category: core.CategoryVolume,
		Branches: []Branch{
			{"mfi_overbought", func(s core.IndicatorSnapshot) bool { return s.MFI > 80 }, -1},
			{"mfi_oversold", func(s core.IndicatorSnapshot) bool { return s.MFI < 20 }, 1},
		},
	},
	{
		Name:     "obv_trend",
		Category: core.CategoryVolume,
		Branches: []Branch{
			{"obv_rising", func(s core.IndicatorSnapshot) bool { return s.OBVTrend5 > 0 }, 1},
			{"obv_not_rising", always, -1},
		},
	},
}
