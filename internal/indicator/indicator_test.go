package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticBars builds an oscillating uptrend with varying volume.
func syntheticBars(n int) []core.OHLCV {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)*0.3 + 2*math.Sin(float64(i)/3)
		bars[i] = core.OHLCV{
			Symbol:   "SPY",
			Interval: "1d",
			Open:     c - 0.4,
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
			Volume:   int64(1_000_000 + (i%7)*50_000),
			Time:     start.AddDate(0, 0, i),
		}
	}
	return bars
}

func TestRSI_AllGains(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}
	rsi := RSI(closes, 3)

	assert.True(t, math.IsNaN(rsi[2]))
	assert.Equal(t, 100.0, rsi[3])
	assert.Equal(t, 100.0, rsi[5])
}

func TestRSI_Flat(t *testing.T) {
	rsi := RSI([]float64{5, 5, 5, 5, 5}, 3)
	assert.Equal(t, 50.0, rsi[4])
}

func TestRSI_Bounded(t *testing.T) {
	bars := syntheticBars(80)
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	for i, v := range RSI(closes, 14) {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("rsi[%d] = %f out of [0,100]", i, v)
		}
	}
}

func TestStochastic(t *testing.T) {
	high := []float64{10, 12, 14}
	low := []float64{8, 9, 10}
	closes := []float64{9, 11, 13}

	s := Stochastic(high, low, closes, 3, 1)
	// window high 14, low 8: (13-8)/(14-8)*100
	assert.InDelta(t, 83.3333, s.K[2], 1e-3)
	assert.InDelta(t, s.K[2], s.D[2], 1e-9)
}

func TestStochastic_FlatWindow(t *testing.T) {
	flat := []float64{5, 5, 5}
	s := Stochastic(flat, flat, flat, 3, 1)
	assert.Equal(t, 50.0, s.K[2])
}

func TestROC(t *testing.T) {
	roc := ROC([]float64{100, 105, 110}, 2)
	assert.InDelta(t, 10.0, roc[2], 1e-9)
	assert.True(t, math.IsNaN(roc[1]))
}

func TestBollinger_ConstantSeries(t *testing.T) {
	bb := Bollinger([]float64{4, 4, 4, 4}, 3, 2)
	assert.Equal(t, 4.0, bb.Middle[3])
	assert.Equal(t, 4.0, bb.Upper[3])
	assert.Equal(t, 4.0, bb.Lower[3])
}

func TestBollinger_PopulationStdDev(t *testing.T) {
	// mean 4, population sd of {2,4,6} = sqrt(8/3)
	bb := Bollinger([]float64{2, 4, 6}, 3, 2)
	sd := math.Sqrt(8.0 / 3.0)
	assert.InDelta(t, 4+2*sd, bb.Upper[2], 1e-9)
	assert.InDelta(t, 4-2*sd, bb.Lower[2], 1e-9)
}

func TestTrueRange_UsesPriorClose(t *testing.T) {
	high := []float64{10, 11}
	low := []float64{9, 10.5}
	closes := []float64{9.5, 10.8}

	tr := TrueRange(high, low, closes)
	assert.Equal(t, 1.0, tr[0])
	// max(0.5, |11-9.5|, |10.5-9.5|) = 1.5
	assert.Equal(t, 1.5, tr[1])
}

func TestOBV_AndMeanDelta(t *testing.T) {
	closes := []float64{10, 11, 10, 10, 12}
	volumes := []float64{100, 200, 300, 400, 500}

	obv := OBV(closes, volumes)
	assert.Equal(t, []float64{0, 200, -100, -100, 400}, obv)

	// deltas over last 5: 200, -300, 0, 500 -> mean 100
	assert.Equal(t, 100.0, MeanDelta(obv, 5))
	assert.True(t, math.IsNaN(MeanDelta(obv[:3], 5)))
}

func TestMFI_OnlyInflows(t *testing.T) {
	high := []float64{10, 11, 12, 13}
	low := []float64{9, 10, 11, 12}
	closes := []float64{9.5, 10.5, 11.5, 12.5}
	volume := []float64{1, 1, 1, 1}

	mfi := MFI(high, low, closes, volume, 3)
	assert.Equal(t, 100.0, mfi[3])
}

func TestADX_Bounded(t *testing.T) {
	bars := syntheticBars(80)
	high, low, closes := make([]float64, 80), make([]float64, 80), make([]float64, 80)
	for i, b := range bars {
		high[i], low[i], closes[i] = b.High, b.Low, b.Close
	}

	adx := ADX(high, low, closes, 14)
	assert.True(t, math.IsNaN(adx[26]), "ADX should still be warming up at bar 26")
	last := Last(adx)
	assert.False(t, math.IsNaN(last))
	assert.GreaterOrEqual(t, last, 0.0)
	assert.LessOrEqual(t, last, 100.0)
}

func TestMACD_SignalWarmup(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	m := MACD(closes, 12, 26, 9)

	assert.True(t, math.IsNaN(m.Signal[32]))
	assert.False(t, math.IsNaN(m.Signal[33]))
	assert.Greater(t, m.MACD[39], 0.0, "rising series should have positive MACD")
}

func TestSnapshot_Complete(t *testing.T) {
	bars := syntheticBars(70)

	snap, err := Snapshot(bars)
	require.NoError(t, err)

	assert.Equal(t, bars[69].Close, snap.Close)
	assert.Equal(t, bars[68].Close, snap.PrevClose)
	assert.Equal(t, float64(bars[69].Volume), snap.Volume)
	assert.Greater(t, snap.BBUpper, snap.BBMiddle)
	assert.Less(t, snap.BBLower, snap.BBMiddle)
	assert.NoError(t, snap.Validate())
}

func TestSnapshot_InsufficientHistory(t *testing.T) {
	_, err := Snapshot(syntheticBars(MinBars - 1))
	if !errors.Is(err, core.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	bars := syntheticBars(60)
	a, err := Snapshot(bars)
	require.NoError(t, err)
	b, err := Snapshot(bars)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
