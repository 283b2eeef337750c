package indicator

import "math"

// BollingerResult holds the three Bollinger bands
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes bands at deviations population standard deviations
// around the period SMA.
func Bollinger(closes []float64, period int, deviations float64) BollingerResult {
	n := len(closes)
	middle := SMA(closes, period)
	upper := nanSeries(n)
	lower := nanSeries(n)

	for i := period - 1; i < n && period > 0; i++ {
		var squares float64
		for _, v := range closes[i-period+1 : i+1] {
			d := v - middle[i]
			squares += d * d
		}
		sd := math.Sqrt(squares / float64(period))
		upper[i] = middle[i] + deviations*sd
		lower[i] = middle[i] - deviations*sd
	}
	return BollingerResult{Upper: upper, Middle: middle, Lower: lower}
}

// TrueRange computes the per-bar true range; the first bar uses high - low.
func TrueRange(high, low, close []float64) []float64 {
	n := len(close)
	tr := nanSeries(n)
	for i := 0; i < n; i++ {
		r := high[i] - low[i]
		if i > 0 {
			r = math.Max(r, math.Abs(high[i]-close[i-1]))
			r = math.Max(r, math.Abs(low[i]-close[i-1]))
		}
		tr[i] = r
	}
	return tr
}

// ATR computes the Wilder-smoothed Average True Range
func ATR(high, low, close []float64, period int) []float64 {
	return Wilder(TrueRange(high, low, close), period)
}
