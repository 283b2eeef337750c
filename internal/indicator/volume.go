package indicator

import "math"

// OBV computes On-Balance Volume starting from zero
func OBV(closes, volumes []float64) []float64 {
	obv := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv[i] = obv[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			obv[i] = obv[i-1] - volumes[i]
		default:
			obv[i] = obv[i-1]
		}
	}
	return obv
}

// MeanDelta returns the mean bar-to-bar change over the last window values
// (window-1 deltas), or NaN if the series is too short.
func MeanDelta(series []float64, window int) float64 {
	n := len(series)
	if window < 2 || n < window {
		return math.NaN()
	}
	return (series[n-1] - series[n-window]) / float64(window-1)
}

// MFI computes the Money Flow Index over period bars
func MFI(high, low, close, volume []float64, period int) []float64 {
	n := len(close)
	result := nanSeries(n)
	if period <= 0 || n < period+1 {
		return result
	}

	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}

	for i := period; i < n; i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			flow := tp[j] * volume[j]
			switch {
			case tp[j] > tp[j-1]:
				pos += flow
			case tp[j] < tp[j-1]:
				neg += flow
			}
		}
		switch {
		case pos == 0 && neg == 0:
			result[i] = 50
		case neg == 0:
			result[i] = 100
		default:
			result[i] = 100 - 100/(1+pos/neg)
		}
	}
	return result
}
