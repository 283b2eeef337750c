package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDirectionOf(t *testing.T) {
	tests := []struct {
		in   int
		want Direction
	}{
		{5, DirectionUp},
		{1, DirectionUp},
		{0, DirectionNeutral},
		{-1, DirectionDown},
		{-12, DirectionDown},
	}
	for _, tc := range tests {
		if got := DirectionOf(tc.in); got != tc.want {
			t.Errorf("DirectionOf(%d) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestDirection_IsValid(t *testing.T) {
	for _, d := range []Direction{DirectionUp, DirectionDown, DirectionNeutral} {
		if !d.IsValid() {
			t.Errorf("expected %s to be valid", d)
		}
	}
	if Direction("SIDEWAYS").IsValid() {
		t.Error("expected SIDEWAYS to be invalid")
	}
}

func TestCategoryScores_AddGetSum(t *testing.T) {
	var s CategoryScores
	s.Add(CategoryTrend, 2)
	s.Add(CategoryMomentum, -1)
	s.Add(CategoryVolatility, -2)
	s.Add(CategoryVolume, 4)
	s.Add(CategoryTrend, 1)

	if s.Get(CategoryTrend) != 3 {
		t.Errorf("trend = %d, want 3", s.Get(CategoryTrend))
	}
	if s.Sum() != 4 {
		t.Errorf("sum = %d, want 4", s.Sum())
	}
}

func TestCategoryScores_JSONKeys(t *testing.T) {
	data, err := json.Marshal(CategoryScores{Trend: 1, Momentum: -2, Volatility: 0, Volume: 3})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"trend":1,"momentum":-2,"volatility":0,"volume":3}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestIndicatorSnapshot_Validate(t *testing.T) {
	s := IndicatorSnapshot{Close: 100, PrevClose: 99}
	if err := s.Validate(); err != nil {
		t.Fatalf("zero-valued finite snapshot should validate: %v", err)
	}

	s.ADX = math.NaN()
	err := s.Validate()
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	if !strings.Contains(err.Error(), "adx") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestByDirection_For(t *testing.T) {
	var b ByDirection
	b.For(DirectionDown).Total = 3
	if b.Down.Total != 3 {
		t.Errorf("expected DOWN bucket to be updated")
	}
	if b.For(Direction("x")) != nil {
		t.Error("unknown direction should have no bucket")
	}
}

func TestPrediction_PendingJSON(t *testing.T) {
	p := Prediction{
		ID:                 1,
		Timestamp:          NewTimestamp(time.Date(2025, 3, 14, 16, 0, 0, 0, time.UTC)),
		Date:               "2025-03-14",
		Ticker:             "SPY",
		PriceAtPrediction:  560.12,
		PredictedDirection: DirectionUp,
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"actual_direction":null`, `"actual_change_pct":null`, `"correct":null`, `"evaluated":false`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "price_after_24h") {
		t.Errorf("pending prediction should omit price_after_24h: %s", s)
	}
}

func TestTimestamp_RoundTrip(t *testing.T) {
	ts := NewTimestamp(time.Date(2025, 3, 14, 16, 5, 9, 123000000, time.UTC))
	data, err := json.Marshal(ts)
	if err != nil {
		t.Fatal(err)
	}
	var got Timestamp
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(ts.Time) {
		t.Errorf("got %v, want %v", got, ts)
	}
}

func TestTimestamp_ZoneLessISO(t *testing.T) {
	var got Timestamp
	if err := json.Unmarshal([]byte(`"2025-03-14T16:05:09.123456"`), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 3, 14, 16, 5, 9, 123456000, time.Local)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got.Time, want)
	}
}

func TestTimestamp_NullAndInvalid(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil || !ts.IsZero() {
		t.Errorf("null should decode to zero time, err=%v", err)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{1.23456, 2, 1.23},
		{-0.005, 2, -0.01},
		{0.123456, 4, 0.1235},
		{75, 2, 75},
	}
	for _, tc := range tests {
		if got := Round(tc.v, tc.places); got != tc.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tc.v, tc.places, got, tc.want)
		}
	}
}
