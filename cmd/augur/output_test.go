package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/ledger"
	"github.com/newthinker/augur/internal/storage/journal"
)

func TestPrintForecast(t *testing.T) {
	var buf bytes.Buffer
	printForecast(&buf, core.Forecast{
		Ticker:         "SPY",
		Date:           "2025-03-14",
		Time:           "16:30:00",
		CurrentPrice:   562.81,
		PriceChange:    11.39,
		PriceChangePct: 2.07,
		Prediction:     core.Outlook{Direction: core.DirectionUp, Confidence: 35, SignalStrength: 7},
	})

	out := buf.String()
	for _, want := range []string{"SPY 2025-03-14 16:30:00", "562.81 (+11.39, +2.07%)", "Prediction: UP", "Confidence: 35.00%", "Strength:   +7"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintResolution(t *testing.T) {
	up, down := core.DirectionUp, core.DirectionDown
	pct := -0.42
	correct := false

	var buf bytes.Buffer
	printResolution(&buf, ledger.ResolveReport{
		Resolved: []core.Prediction{{
			ID: 3, Date: "2025-03-13", PredictedDirection: up,
			Evaluated: true, ActualDirection: &down, ActualChangePct: &pct, Correct: &correct,
		}},
		Waiting: 1,
	})

	out := buf.String()
	if !strings.Contains(out, "Evaluated 1 prediction(s) (1 waiting, 0 failed)") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "✗ #3 2025-03-13: predicted UP, actual DOWN (-0.42%)") {
		t.Errorf("unexpected detail line:\n%s", out)
	}
}

func TestPrintStatistics_SkipsEmptyDirections(t *testing.T) {
	st := core.Statistics{TotalPredictions: 4, EvaluatedPredictions: 3, Accuracy: 66.67, Correct: 2, Incorrect: 1}
	st.ByDirection.Up = core.DirectionStats{Total: 3, Correct: 2, Accuracy: 66.67}

	var buf bytes.Buffer
	printStatistics(&buf, st)

	out := buf.String()
	if !strings.Contains(out, "Accuracy:    66.67% (2 correct, 1 incorrect)") {
		t.Errorf("unexpected accuracy line:\n%s", out)
	}
	if strings.Contains(out, "NEUTRAL") {
		t.Errorf("empty direction should be skipped:\n%s", out)
	}
}

func TestPrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []journal.ForecastEntry{})
	if buf.String() != "No journaled forecasts\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestBuildVersion_PrefersLinkerValues(t *testing.T) {
	old := GitCommit
	GitCommit = "abc1234"
	defer func() { GitCommit = old }()

	v := buildVersion()
	if v.GitCommit != "abc1234" {
		t.Errorf("expected linker commit, got %s", v.GitCommit)
	}
	if !strings.HasPrefix(v.GoVersion, "go") {
		t.Errorf("unexpected go version %q", v.GoVersion)
	}
}
