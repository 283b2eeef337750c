package ledger

import (
	"context"
	"time"

	"github.com/newthinker/augur/internal/core"
	"go.uber.org/zap"
)

// Store is the persistence the service needs. A missing ledger loads as
// empty; a missing forecast is core.ErrNotFound.
type Store interface {
	LoadLedger(ctx context.Context) (*Ledger, error)
	SaveLedger(ctx context.Context, l *Ledger) error
	LoadLatestForecast(ctx context.Context) (core.Forecast, error)
	SaveExport(ctx context.Context, e Export) error
}

// Locker grants single-writer access to the ledger.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Journal keeps an append-only history of resolutions.
type Journal interface {
	RecordResolution(ctx context.Context, p core.Prediction) error
}

// Observer is told about ledger changes, e.g. for metrics.
type Observer interface {
	ObserveRecorded(p core.Prediction)
	ObserveResolution(r ResolveReport)
	ObserveLedger(st core.Statistics, pending int)
}

// Config holds the service's resolution policy and export size.
type Config struct {
	Policy      Policy
	RecentLimit int
}

// Option customizes a Service.
type Option func(*Service)

// WithJournal sets the resolution journal.
func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithObserver sets the ledger observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs each public ledger operation as one locked
// load → mutate → save transaction.
type Service struct {
	cfg      Config
	store    Store
	locker   Locker
	lookup   PriceLookup
	journal  Journal
	observer Observer
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a Service. A nil locker disables locking.
func NewService(cfg Config, store Store, locker Locker, lookup PriceLookup, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = nopLocker{}
	}
	if cfg.RecentLimit == 0 {
		cfg.RecentLimit = DefaultRecentLimit
	}
	s := &Service{
		cfg:    cfg,
		store:  store,
		locker: locker,
		lookup: lookup,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// transact loads the ledger under the lock, applies fn and saves once if
// fn reports a change. after runs, still under the lock, only once the
// ledger is saved; it is how derived artifacts stay behind the ledger.
func (s *Service) transact(ctx context.Context, fn func(l *Ledger) (bool, error), after ...func() error) error {
	release, err := s.locker.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	l, err := s.store.LoadLedger(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(l)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.store.SaveLedger(ctx, l); err != nil {
		return err
	}
	for _, fn := range after {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// RecordCurrentForecast appends the latest forecast as a pending prediction.
func (s *Service) RecordCurrentForecast(ctx context.Context) (core.Prediction, error) {
	var recorded core.Prediction
	err := s.transact(ctx, func(l *Ledger) (bool, error) {
		f, err := s.store.LoadLatestForecast(ctx)
		if err != nil {
			return false, err
		}
		recorded, err = l.Record(f)
		return err == nil, err
	})
	if err != nil {
		return core.Prediction{}, err
	}

	if s.observer != nil {
		s.observer.ObserveRecorded(recorded)
	}
	s.logger.Info("prediction recorded",
		zap.Int("id", recorded.ID),
		zap.String("direction", string(recorded.PredictedDirection)),
		zap.Float64("confidence", recorded.Confidence),
	)
	return recorded, nil
}

// ResolvePendingPredictions evaluates every eligible pending prediction and
// returns the resolution report. The ledger is saved only if something was
// resolved.
func (s *Service) ResolvePendingPredictions(ctx context.Context) (ResolveReport, error) {
	var report ResolveReport
	err := s.transact(ctx, func(l *Ledger) (bool, error) {
		report = l.ResolvePending(ctx, s.now(), s.lookup, s.cfg.Policy, s.logger)
		return len(report.Resolved) > 0, nil
	})
	if err != nil {
		return ResolveReport{}, err
	}

	if s.journal != nil {
		for _, p := range report.Resolved {
			if err := s.journal.RecordResolution(ctx, p); err != nil {
				s.logger.Warn("journal write failed", zap.Int("id", p.ID), zap.Error(err))
			}
		}
	}
	if s.observer != nil {
		s.observer.ObserveResolution(report)
	}
	s.logger.Info("resolution pass complete",
		zap.Int("resolved", len(report.Resolved)),
		zap.Int("waiting", report.Waiting),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// ExportForDisplay recomputes statistics, saves them into the ledger and
// then writes the export artifact. A failed ledger save writes no export.
func (s *Service) ExportForDisplay(ctx context.Context) (Export, error) {
	var (
		export  Export
		pending int
	)
	err := s.transact(ctx, func(l *Ledger) (bool, error) {
		export = l.Export(s.now(), s.cfg.RecentLimit)
		pending = l.Pending()
		return true, nil
	}, func() error {
		return s.store.SaveExport(ctx, export)
	})
	if err != nil {
		return Export{}, err
	}

	if s.observer != nil {
		s.observer.ObserveLedger(export.Statistics, pending)
	}
	s.logger.Info("ledger exported",
		zap.Int("total", export.Statistics.TotalPredictions),
		zap.Int("evaluated", export.Statistics.EvaluatedPredictions),
		zap.Float64("accuracy", export.Statistics.Accuracy),
	)
	return export, nil
}

// Statistics computes current statistics without writing anything.
func (s *Service) Statistics(ctx context.Context) (core.Statistics, error) {
	l, err := s.store.LoadLedger(ctx)
	if err != nil {
		return core.Statistics{}, err
	}
	return ComputeStatistics(l.Predictions, s.now()), nil
}

type nopLocker struct{}

func (nopLocker) Acquire(context.Context) (func(), error) { return func() {}, nil }
