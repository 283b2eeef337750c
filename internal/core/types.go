package core

import (
	"fmt"
	"math"
	"time"
)

// OHLCV represents a daily candlestick/bar
type OHLCV struct {
	Symbol   string
	Interval string // "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// Direction is the predicted or realized sign of a price move
type Direction string

const (
	DirectionUp      Direction = "UP"
	DirectionDown    Direction = "DOWN"
	DirectionNeutral Direction = "NEUTRAL"
)

// IsValid reports whether d is one of the three known directions
func (d Direction) IsValid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionNeutral:
		return true
	}
	return false
}

// DirectionOf maps a signed value to a direction; zero is NEUTRAL.
func DirectionOf(v int) Direction {
	switch {
	case v > 0:
		return DirectionUp
	case v < 0:
		return DirectionDown
	default:
		return DirectionNeutral
	}
}

// Category names a family of indicator rules
type Category string

const (
	CategoryTrend      Category = "trend"
	CategoryMomentum   Category = "momentum"
	CategoryVolatility Category = "volatility"
	CategoryVolume     Category = "volume"
)

// Categories lists every scoring category in evaluation order.
var Categories = []Category{CategoryTrend, CategoryMomentum, CategoryVolatility, CategoryVolume}

// CategoryScores holds the signed vote of each indicator family
type CategoryScores struct {
	Trend      int `json:"trend"`
	Momentum   int `json:"momentum"`
	Volatility int `json:"volatility"`
	Volume     int `json:"volume"`
}

// Get returns the score for a category
func (s CategoryScores) Get(c Category) int {
	switch c {
	case CategoryTrend:
		return s.Trend
	case CategoryMomentum:
		return s.Momentum
	case CategoryVolatility:
		return s.Volatility
	case CategoryVolume:
		return s.Volume
	}
	return 0
}

// Add adjusts the score for a category by delta
func (s *CategoryScores) Add(c Category, delta int) {
	switch c {
	case CategoryTrend:
		s.Trend += delta
	case CategoryMomentum:
		s.Momentum += delta
	case CategoryVolatility:
		s.Volatility += delta
	case CategoryVolume:
		s.Volume += delta
	}
}

// Sum is the signal strength: the total of all category scores
func (s CategoryScores) Sum() int {
	return s.Trend + s.Momentum + s.Volatility + s.Volume
}

// IndicatorSnapshot is the technical picture of the latest bar (plus the
// prior close) that the scorer consumes.
type IndicatorSnapshot struct {
	Close     float64
	PrevClose float64

	// Trend
	SMA20      float64
	SMA50      float64
	MACD       float64
	MACDSignal float64
	ADX        float64

	// Momentum
	RSI         float64
	Stoch       float64
	StochSignal float64
	ROC         float64

	// Volatility
	BBUpper   float64
	BBMiddle  float64
	BBLower   float64
	ATR       float64
	ATRMean20 float64

	// Volume
	Volume      float64
	VolumeSMA20 float64
	MFI         float64
	OBVTrend5   float64
}

// Validate returns ErrInsufficientHistory naming the first non-finite field.
func (s IndicatorSnapshot) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"close", s.Close}, {"prev_close", s.PrevClose},
		{"sma20", s.SMA20}, {"sma50", s.SMA50}, {"macd", s.MACD}, {"macd_signal", s.MACDSignal}, {"adx", s.ADX},
		{"rsi", s.RSI}, {"stoch", s.Stoch}, {"stoch_signal", s.StochSignal}, {"roc", s.ROC},
		{"bb_upper", s.BBUpper}, {"bb_middle", s.BBMiddle}, {"bb_lower", s.BBLower}, {"atr", s.ATR}, {"atr_mean20", s.ATRMean20},
		{"volume", s.Volume}, {"volume_sma20", s.VolumeSMA20}, {"mfi", s.MFI}, {"obv_trend5", s.OBVTrend5},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return WrapError(ErrInsufficientHistory, fmt.Errorf("indicator %s is not available", f.name))
		}
	}
	return nil
}

// Outlook is the directional call of a forecast
type Outlook struct {
	Direction      Direction `json:"direction"`
	Confidence     float64   `json:"confidence"`
	SignalStrength int       `json:"signal_strength"`
}

// DisplayIndicators are the raw indicator values shown next to a forecast
type DisplayIndicators struct {
	RSI        float64 `json:"RSI"`
	MACD       float64 `json:"MACD"`
	ADX        float64 `json:"ADX"`
	Stochastic float64 `json:"Stochastic"`
	MFI        float64 `json:"MFI"`
	ATR        float64 `json:"ATR"`
}

// Forecast is the output of one forecasting run. It is immutable once built.
type Forecast struct {
	RunID          string            `json:"run_id,omitempty"`
	Timestamp      Timestamp         `json:"timestamp"`
	Date           string            `json:"date"`
	Time           string            `json:"time"`
	Ticker         string            `json:"ticker"`
	CurrentPrice   float64           `json:"current_price"`
	PriceChange    float64           `json:"price_change"`
	PriceChangePct float64           `json:"price_change_pct"`
	Prediction     Outlook           `json:"prediction"`
	Signals        CategoryScores    `json:"signals"`
	Indicators     DisplayIndicators `json:"indicators"`
	Commentary     *Commentary       `json:"commentary,omitempty"`
}

// Commentary is an optional plain-language reading of a forecast. It is
// attached before the forecast is stored and does not affect the call.
type Commentary struct {
	Summary string   `json:"summary"`
	Risks   []string `json:"risks,omitempty"`
	Model   string   `json:"model,omitempty"`
}

// Prediction is a recorded forecast awaiting (or holding) its realized outcome.
type Prediction struct {
	ID                 int            `json:"id"`
	ForecastID         string         `json:"forecast_id,omitempty"`
	Timestamp          Timestamp      `json:"timestamp"`
	Date               string         `json:"date"`
	Ticker             string         `json:"ticker"`
	PriceAtPrediction  float64        `json:"price_at_prediction"`
	PredictedDirection Direction      `json:"predicted_direction"`
	Confidence         float64        `json:"confidence"`
	SignalStrength     int            `json:"signal_strength"`
	Signals            CategoryScores `json:"signals"`
	Evaluated          bool           `json:"evaluated"`
	ActualDirection    *Direction     `json:"actual_direction"`
	ActualChangePct    *float64       `json:"actual_change_pct"`
	Correct            *bool          `json:"correct"`
	PriceAfterWindow   *float64       `json:"price_after_24h,omitempty"`
}

// IsCorrect reports whether an evaluated prediction matched reality
func (p Prediction) IsCorrect() bool {
	return p.Evaluated && p.Correct != nil && *p.Correct
}

// DirectionStats is the accuracy breakdown for one predicted direction
type DirectionStats struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// ByDirection partitions accuracy by predicted direction
type ByDirection struct {
	Up      DirectionStats `json:"UP"`
	Down    DirectionStats `json:"DOWN"`
	Neutral DirectionStats `json:"NEUTRAL"`
}

// For returns a pointer to the bucket of direction d, or nil if d is unknown.
func (b *ByDirection) For(d Direction) *DirectionStats {
	switch d {
	case DirectionUp:
		return &b.Up
	case DirectionDown:
		return &b.Down
	case DirectionNeutral:
		return &b.Neutral
	}
	return nil
}

// Statistics summarizes forecast accuracy over a ledger
type Statistics struct {
	TotalPredictions     int         `json:"total_predictions"`
	EvaluatedPredictions int         `json:"evaluated_predictions"`
	Accuracy             float64     `json:"accuracy"`
	Correct              int         `json:"correct"`
	Incorrect            int         `json:"incorrect"`
	ByDirection          ByDirection `json:"by_direction"`
	LastUpdated          Timestamp   `json:"last_updated"`
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
