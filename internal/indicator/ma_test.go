package indicator

import (
	"math"
	"testing"
)

func TestSMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	sma := SMA(prices, 3)

	// Warm-up bars are NaN, then:
	// [2] = (10+11+12)/3 = 11
	// [3] = (11+12+13)/3 = 12
	// [4] = (12+13+14)/3 = 13
	// [5] = (13+14+15)/3 = 14
	if len(sma) != len(prices) {
		t.Fatalf("expected %d values, got %d", len(prices), len(sma))
	}
	if !math.IsNaN(sma[0]) || !math.IsNaN(sma[1]) {
		t.Errorf("expected NaN warm-up, got %v", sma[:2])
	}

	expected := []float64{11, 12, 13, 14}
	for i, v := range expected {
		if sma[i+2] != v {
			t.Errorf("sma[%d] = %f, want %f", i+2, sma[i+2], v)
		}
	}
}

func TestSMA_NotEnoughData(t *testing.T) {
	sma := SMA([]float64{10, 11}, 5)

	for i, v := range sma {
		if !math.IsNaN(v) {
			t.Errorf("sma[%d] = %f, want NaN", i, v)
		}
	}
}

func TestEMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}
	ema := EMA(prices, 3)

	// First EMA = SMA = 11
	if ema[2] != 11 {
		t.Errorf("first EMA should equal SMA, got %f", ema[2])
	}

	// multiplier 0.5: 11 -> 12 -> 13 -> 14
	want := []float64{12, 13, 14}
	for i, v := range want {
		if ema[i+3] != v {
			t.Errorf("ema[%d] = %f, want %f", i+3, ema[i+3], v)
		}
	}
}

func TestEMA_SkipsLeadingNaN(t *testing.T) {
	values := []float64{math.NaN(), math.NaN(), 2, 4, 6}
	ema := EMA(values, 2)

	if !math.IsNaN(ema[2]) {
		t.Errorf("ema[2] should still be warming up, got %f", ema[2])
	}
	if ema[3] != 3 {
		t.Errorf("ema[3] = %f, want seed 3", ema[3])
	}
}

func TestWilder_Calculate(t *testing.T) {
	values := []float64{2, 4, 6, 8}
	w := Wilder(values, 2)

	// seed (2+4)/2 = 3, then 3 + (6-3)/2 = 4.5, then 4.5 + (8-4.5)/2 = 6.25
	want := []float64{3, 4.5, 6.25}
	for i, v := range want {
		if w[i+1] != v {
			t.Errorf("wilder[%d] = %f, want %f", i+1, w[i+1], v)
		}
	}
}

func TestLast(t *testing.T) {
	if Last([]float64{1, 2, 3}) != 3 {
		t.Error("expected last value 3")
	}
	if !math.IsNaN(Last(nil)) {
		t.Error("expected NaN for empty series")
	}
}
