package indicator

import "math"

// All series functions in this package return a slice aligned with their
// input: result[i] belongs to bar i, and bars inside the warm-up window are NaN.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA calculates the Simple Moving Average over period bars
func SMA(values []float64, period int) []float64 {
	result := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return result
	}

	for i := period - 1; i < len(values); i++ {
		var sum float64
		for _, v := range values[i-period+1 : i+1] {
			sum += v
		}
		result[i] = sum / float64(period)
	}
	return result
}

// EMA calculates the Exponential Moving Average, seeded with the SMA of the
// first period valid values. Leading NaNs (e.g. an upstream warm-up) are skipped.
func EMA(values []float64, period int) []float64 {
	return smooth(values, period, 2.0/float64(period+1))
}

// Wilder calculates Wilder's running average (alpha = 1/period), used by RSI, ATR and ADX.
func Wilder(values []float64, period int) []float64 {
	return smooth(values, period, 1.0/float64(period))
}

func smooth(values []float64, period int, alpha float64) []float64 {
	result := nanSeries(len(values))
	if period <= 0 {
		return result
	}

	first := 0
	for first < len(values) && math.IsNaN(values[first]) {
		first++
	}
	seedAt := first + period - 1
	if seedAt >= len(values) {
		return result
	}

	var sum float64
	for _, v := range values[first : seedAt+1] {
		sum += v
	}
	prev := sum / float64(period)
	result[seedAt] = prev

	for i := seedAt + 1; i < len(values); i++ {
		prev = (values[i]-prev)*alpha + prev
		result[i] = prev
	}
	return result
}

// Last returns the final value of a series, or NaN when it is empty
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}
