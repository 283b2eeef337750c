package indicator

// RSI computes the Wilder-smoothed Relative Strength Index
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	result := nanSeries(n)
	if period <= 0 || n < period+1 {
		return result
	}

	gains := nanSeries(n)
	losses := nanSeries(n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gains[i], losses[i] = 0, 0
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := Wilder(gains, period)
	avgLoss := Wilder(losses, period)
	for i := period; i < n; i++ {
		switch {
		case avgGain[i] == 0 && avgLoss[i] == 0:
			result[i] = 50
		case avgLoss[i] == 0:
			result[i] = 100
		default:
			rs := avgGain[i] / avgLoss[i]
			result[i] = 100 - 100/(1+rs)
		}
	}
	return result
}

// StochasticResult holds %K and its smoothed signal %D
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes the stochastic oscillator over period bars with a
// smooth-bar SMA signal line. A flat window reads 50.
func Stochastic(high, low, close []float64, period, smooth int) StochasticResult {
	n := len(close)
	k := nanSeries(n)
	for i := period - 1; i < n && period > 0; i++ {
		hh, ll := high[i], low[i]
		for j := i - period + 1; j <= i; j++ {
			if high[j] > hh {
				hh = high[j]
			}
			if low[j] < ll {
				ll = low[j]
			}
		}
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = 100 * (close[i] - ll) / (hh - ll)
	}
	return StochasticResult{K: k, D: SMA(k, smooth)}
}

// ROC computes the percentage rate of change over period bars
func ROC(closes []float64, period int) []float64 {
	result := nanSeries(len(closes))
	for i := period; i < len(closes) && period > 0; i++ {
		base := closes[i-period]
		if base == 0 {
			continue
		}
		result[i] = (closes[i] - base) / base * 100
	}
	return result
}
