package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/ledger"
	"github.com/newthinker/augur/internal/storage/journal"
)

func printForecast(w io.Writer, f core.Forecast) {
	fmt.Fprintf(w, "%s %s %s\n", f.Ticker, f.Date, f.Time)
	fmt.Fprintf(w, "  Price:      %.2f (%+.2f, %+.2f%%)\n", f.CurrentPrice, f.PriceChange, f.PriceChangePct)
	fmt.Fprintf(w, "  Prediction: %s\n", f.Prediction.Direction)
	fmt.Fprintf(w, "  Confidence: %.2f%%\n", f.Prediction.Confidence)
	fmt.Fprintf(w, "  Strength:   %+d\n", f.Prediction.SignalStrength)
	fmt.Fprintf(w, "  Signals:    trend %+d, momentum %+d, volatility %+d, volume %+d\n",
		f.Signals.Trend, f.Signals.Momentum, f.Signals.Volatility, f.Signals.Volume)
	fmt.Fprintf(w, "  Indicators: RSI %.2f, MACD %.4f, ADX %.2f, Stoch %.2f, MFI %.2f, ATR %.2f\n",
		f.Indicators.RSI, f.Indicators.MACD, f.Indicators.ADX,
		f.Indicators.Stochastic, f.Indicators.MFI, f.Indicators.ATR)
}

func printRecorded(w io.Writer, p core.Prediction) {
	fmt.Fprintf(w, "Recorded prediction #%d: %s %s on %s (confidence %.2f%%)\n",
		p.ID, p.Ticker, p.PredictedDirection, p.Date, p.Confidence)
}

func printResolution(w io.Writer, r ledger.ResolveReport) {
	fmt.Fprintf(w, "Evaluated %d prediction(s)", len(r.Resolved))
	if r.Waiting > 0 || r.Failed > 0 {
		fmt.Fprintf(w, " (%d waiting, %d failed)", r.Waiting, r.Failed)
	}
	fmt.Fprintln(w)
	for _, p := range r.Resolved {
		mark := "✗"
		if p.IsCorrect() {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s #%d %s: predicted %s, actual %s (%+.2f%%)\n",
			mark, p.ID, p.Date, p.PredictedDirection, deref(p.ActualDirection), derefPct(p.ActualChangePct))
	}
}

func printStatistics(w io.Writer, st core.Statistics) {
	fmt.Fprintf(w, "Predictions: %d total, %d evaluated\n", st.TotalPredictions, st.EvaluatedPredictions)
	fmt.Fprintf(w, "Accuracy:    %.2f%% (%d correct, %d incorrect)\n", st.Accuracy, st.Correct, st.Incorrect)
	for _, d := range []core.Direction{core.DirectionUp, core.DirectionDown, core.DirectionNeutral} {
		b := st.ByDirection.For(d)
		if b.Total == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-8s %.2f%% (%d/%d)\n", d, b.Accuracy, b.Correct, b.Total)
	}
}

func printHistory(w io.Writer, entries []journal.ForecastEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No journaled forecasts")
		return
	}
	fmt.Fprintf(w, "%-10s %-6s %10s %-8s %10s %8s\n", "DATE", "TICKER", "CLOSE", "CALL", "CONFIDENCE", "STRENGTH")
	fmt.Fprintln(w, strings.Repeat("-", 57))
	for _, e := range entries {
		fmt.Fprintf(w, "%-10s %-6s %10.2f %-8s %9.2f%% %+8d\n",
			e.Date, e.Ticker, e.Close, e.Direction, e.Confidence, e.SignalStrength)
	}
}

func deref(d *core.Direction) core.Direction {
	if d == nil {
		return "-"
	}
	return *d
}

func derefPct(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
