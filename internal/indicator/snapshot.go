package indicator

import (
	"fmt"

	"github.com/newthinker/augur/internal/core"
)

// Standard indicator periods used by the forecaster
const (
	TrendFastPeriod = 20
	TrendSlowPeriod = 50
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	ADXPeriod       = 14
	RSIPeriod       = 14
	StochPeriod     = 14
	StochSmooth     = 3
	ROCPeriod       = 12
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	ATRPeriod       = 14
	ATRMeanPeriod   = 20
	VolumeSMAPeriod = 20
	MFIPeriod       = 14
	OBVTrendWindow  = 5
)

// MinBars is the shortest series Snapshot accepts: the slow trend SMA
// needs the most history of any indicator.
const MinBars = TrendSlowPeriod

// Snapshot computes every indicator the scorer needs for the latest bar of
// an ascending daily series.
func Snapshot(bars []core.OHLCV) (core.IndicatorSnapshot, error) {
	if len(bars) < MinBars {
		return core.IndicatorSnapshot{}, core.WrapError(core.ErrInsufficientHistory,
			fmt.Errorf("need at least %d bars, got %d", MinBars, len(bars)))
	}

	n := len(bars)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	macd := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	stoch := Stochastic(high, low, closes, StochPeriod, StochSmooth)
	bb := Bollinger(closes, BollingerPeriod, BollingerStdDev)
	atr := ATR(high, low, closes, ATRPeriod)

	snap := core.IndicatorSnapshot{
		Close:     closes[n-1],
		PrevClose: closes[n-2],

		SMA20:      Last(SMA(closes, TrendFastPeriod)),
		SMA50:      Last(SMA(closes, TrendSlowPeriod)),
		MACD:       Last(macd.MACD),
		MACDSignal: Last(macd.Signal),
		ADX:        Last(ADX(high, low, closes, ADXPeriod)),

		RSI:         Last(RSI(closes, RSIPeriod)),
		Stoch:       Last(stoch.K),
		StochSignal: Last(stoch.D),
		ROC:         Last(ROC(closes, ROCPeriod)),

		BBUpper:   Last(bb.Upper),
		BBMiddle:  Last(bb.Middle),
		BBLower:   Last(bb.Lower),
		ATR:       Last(atr),
		ATRMean20: Last(SMA(atr, ATRMeanPeriod)),

		Volume:      volumes[n-1],
		VolumeSMA20: Last(SMA(volumes, VolumeSMAPeriod)),
		MFI:         Last(MFI(high, low, closes, volumes, MFIPeriod)),
		OBVTrend5:   MeanDelta(OBV(closes, volumes), OBVTrendWindow),
	}

	if err := snap.Validate(); err != nil {
		return core.IndicatorSnapshot{}, err
	}
	return snap, nil
}
