package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/indicator"
	"github.com/newthinker/augur/internal/scoring"
	"go.uber.org/zap"
)

// HistorySource delivers daily bars for a date range, ascending by date.
type HistorySource interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Store holds the latest-forecast slot.
type Store interface {
	SaveLatestForecast(ctx context.Context, f core.Forecast) error
}

// Journal keeps an append-only history of forecasts.
type Journal interface {
	RecordForecast(ctx context.Context, f core.Forecast) error
}

// Observer receives every generated forecast, e.g. for metrics.
type Observer interface {
	ObserveForecast(f core.Forecast)
}

// Annotator attaches commentary to a composed forecast.
type Annotator interface {
	Annotate(ctx context.Context, f core.Forecast) (*core.Commentary, error)
}

// Config controls what is forecast and over how much history.
type Config struct {
	Ticker       string
	LookbackDays int
	Location     *time.Location
}

// Option customizes a Forecaster.
type Option func(*Forecaster)

// WithJournal sets the forecast journal.
func WithJournal(j Journal) Option {
	return func(f *Forecaster) { f.journal = j }
}

// WithObserver sets the forecast observer.
func WithObserver(o Observer) Option {
	return func(f *Forecaster) { f.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) { f.now = now }
}

// WithIDGenerator overrides the run id generator.
func WithIDGenerator(gen func() string) Option {
	return func(f *Forecaster) { f.newID = gen }
}

// WithAnnotator sets the commentary source. Annotation failures are
// logged and the forecast is stored without commentary.
func WithAnnotator(a Annotator) Option {
	return func(f *Forecaster) { f.annotator = a }
}

// WithScorer overrides the default rulebook.
func WithScorer(s *scoring.Scorer) Option {
	return func(f *Forecaster) { f.scorer = s }
}

// Forecaster runs one forecast end to end: fetch, snapshot, score, compose, save.
type Forecaster struct {
	cfg       Config
	source    HistorySource
	store     Store
	journal   Journal
	observer  Observer
	annotator Annotator
	scorer    *scoring.Scorer
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

// New creates a Forecaster.
func New(cfg Config, source HistorySource, store Store, logger *zap.Logger, opts ...Option) *Forecaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	f := &Forecaster{
		cfg:    cfg,
		source: source,
		store:  store,
		scorer: scoring.New(),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Generate produces a forecast for the latest bar and writes it to the
// latest-forecast slot.
func (f *Forecaster) Generate(ctx context.Context) (core.Forecast, error) {
	now := f.now().In(f.cfg.Location)
	start := now.AddDate(0, 0, -f.cfg.LookbackDays)

	bars, err := f.source.FetchHistory(ctx, f.cfg.Ticker, start, now, "1d")
	if err != nil {
		return core.Forecast{}, fmt.Errorf("fetching %s history: %w", f.cfg.Ticker, err)
	}
	if len(bars) == 0 {
		return core.Forecast{}, core.WrapError(core.ErrDataUnavailable,
			fmt.Errorf("%s between %s and %s", f.cfg.Ticker, start.Format("2006-01-02"), now.Format("2006-01-02")))
	}

	snap, err := indicator.Snapshot(bars)
	if err != nil {
		return core.Forecast{}, err
	}

	scores, hits := f.scorer.Explain(snap)
	for _, h := range hits {
		f.logger.Debug("rule fired",
			zap.String("rule", h.Rule),
			zap.String("branch", h.Branch),
			zap.Int("delta", h.Delta),
		)
	}

	fc := Compose(scores, PriceInfo{
		Ticker:    f.cfg.Ticker,
		At:        now,
		Close:     snap.Close,
		PrevClose: snap.PrevClose,
	}, DisplayFrom(snap))
	fc.RunID = f.newID()

	if f.annotator != nil {
		note, err := f.annotator.Annotate(ctx, fc)
		if err != nil {
			f.logger.Warn("forecast commentary failed", zap.String("run_id", fc.RunID), zap.Error(err))
		} else {
			fc.Commentary = note
		}
	}

	if err := f.store.SaveLatestForecast(ctx, fc); err != nil {
		return core.Forecast{}, err
	}

	if f.journal != nil {
		if err := f.journal.RecordForecast(ctx, fc); err != nil {
			f.logger.Warn("journal write failed", zap.String("run_id", fc.RunID), zap.Error(err))
		}
	}
	if f.observer != nil {
		f.observer.ObserveForecast(fc)
	}

	f.logger.Info("forecast generated",
		zap.String("ticker", fc.Ticker),
		zap.String("run_id", fc.RunID),
		zap.String("direction", string(fc.Prediction.Direction)),
		zap.Float64("confidence", fc.Prediction.Confidence),
		zap.Int("signal_strength", fc.Prediction.SignalStrength),
		zap.Int("bars", len(bars)),
	)
	return fc, nil
}
