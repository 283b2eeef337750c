package indicator

import "math"

// MACDResult holds the MACD line, its signal line and the histogram
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes fast EMA - slow EMA and its signal EMA.
// Standard periods are 12, 26, 9.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	line := nanSeries(len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig := EMA(line, signal)

	hist := nanSeries(len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}

// ADX computes the Average Directional Index (trend strength, 0-100)
func ADX(high, low, close []float64, period int) []float64 {
	n := len(close)
	if n < 2 {
		return nanSeries(n)
	}

	tr := TrueRange(high, low, close)
	plusDM := nanSeries(n)
	minusDM := nanSeries(n)
	trFrom1 := nanSeries(n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		plusDM[i], minusDM[i] = 0, 0
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
		trFrom1[i] = tr[i]
	}

	smTR := Wilder(trFrom1, period)
	smPlus := Wilder(plusDM, period)
	smMinus := Wilder(minusDM, period)

	dx := nanSeries(n)
	for i := range dx {
		if math.IsNaN(smTR[i]) {
			continue
		}
		if smTR[i] == 0 {
			dx[i] = 0
			continue
		}
		plusDI := 100 * smPlus[i] / smTR[i]
		minusDI := 100 * smMinus[i] / smTR[i]
		if sum := plusDI + minusDI; sum == 0 {
			dx[i] = 0
		} else {
			dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
		}
	}
	return Wilder(dx, period)
}
