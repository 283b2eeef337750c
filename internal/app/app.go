package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/newthinker/augur/internal/alert"
	"github.com/newthinker/augur/internal/collector"
	"github.com/newthinker/augur/internal/collector/csvfile"
	"github.com/newthinker/augur/internal/collector/yahoo"
	"github.com/newthinker/augur/internal/commentary"
	"github.com/newthinker/augur/internal/config"
	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/forecast"
	"github.com/newthinker/augur/internal/ledger"
	"github.com/newthinker/augur/internal/llm"
	llmfactory "github.com/newthinker/augur/internal/llm/factory"
	"github.com/newthinker/augur/internal/lock"
	"github.com/newthinker/augur/internal/metrics"
	"github.com/newthinker/augur/internal/notifier"
	"github.com/newthinker/augur/internal/notifier/email"
	"github.com/newthinker/augur/internal/notifier/telegram"
	"github.com/newthinker/augur/internal/notifier/webhook"
	"github.com/newthinker/augur/internal/storage/blob"
	"github.com/newthinker/augur/internal/storage/journal"
	"github.com/newthinker/augur/internal/storage/state"
	"go.uber.org/zap"
)

// Option customizes how App is assembled.
type Option func(*options)

type options struct {
	collector collector.Collector
	blob      blob.Storage
	locker    ledger.Locker
	notifiers []notifier.Notifier
	llm       llm.Provider
	now       func() time.Time
}

// WithCollector replaces the configured collector.
func WithCollector(c collector.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithBlob replaces the configured blob storage.
func WithBlob(b blob.Storage) Option {
	return func(o *options) { o.blob = b }
}

// WithLocker replaces the configured ledger lock.
func WithLocker(l ledger.Locker) Option {
	return func(o *options) { o.locker = l }
}

// WithNotifier registers an extra notifier alongside the configured ones.
func WithNotifier(n notifier.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// WithLLM replaces the configured commentary model. It only takes effect
// when commentary is enabled.
func WithLLM(p llm.Provider) Option {
	return func(o *options) { o.llm = p }
}

// WithClock overrides time.Now for forecasts and the ledger.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	location   *time.Location
	collector  collector.Collector
	store      *state.Store
	journal    journal.Journal
	metrics    *metrics.Registry
	forecaster *forecast.Forecaster
	ledger     *ledger.Service
	notifiers  *notifier.Registry
	alerts     *alert.Evaluator
	rules      []alert.Rule
	closers    []func() error

	// lookup failures from the latest resolution pass
	lookupFailures atomic.Int64
}

// DailyResult summarizes one RunDaily pass.
type DailyResult struct {
	Forecast   *core.Forecast
	Prediction *core.Prediction
	Resolution ledger.ResolveReport
	Export     ledger.Export
}

// New builds every component from cfg.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Instrument.Location()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		location: loc,
		metrics:  metrics.NewRegistry(),
	}

	a.collector = o.collector
	if a.collector == nil {
		if a.collector, err = newCollector(cfg.Collector, loc, logger); err != nil {
			return nil, err
		}
	}

	b := o.blob
	if b == nil {
		if b, err = newBlob(cfg.Storage); err != nil {
			return nil, err
		}
	}
	a.store = state.New(b, state.Keys{
		Ledger:   cfg.Storage.LedgerKey,
		Forecast: cfg.Storage.ForecastKey,
		Export:   cfg.Storage.ExportKey,
	})

	if a.notifiers, err = newNotifiers(cfg.Notifiers, o.notifiers); err != nil {
		return nil, err
	}

	a.alerts = alert.NewEvaluator(a.notifiers, logger.Named("alert"))
	a.alerts.SetCooldown(cfg.Alerts.Cooldown)
	a.alerts.SetClock(o.now)
	for _, r := range cfg.Alerts.Rules {
		a.rules = append(a.rules, alert.Rule{
			Name:     r.Name,
			Expr:     r.Expr,
			For:      r.For,
			Severity: r.Severity,
			Message:  r.Message,
		})
	}

	a.journal = journal.Noop{}
	if cfg.Journal.Enabled {
		j, err := journal.OpenSQLite(cfg.Journal.SQLitePath, logger.Named("journal"))
		if err != nil {
			return nil, err
		}
		a.journal = j
		a.closers = append(a.closers, j.Close)
	}

	locker := o.locker
	if locker == nil {
		if locker, err = a.newLocker(cfg.Lock); err != nil {
			a.Close()
			return nil, err
		}
	}

	forecastOpts := []forecast.Option{
		forecast.WithJournal(a.journal),
		forecast.WithObserver(a.metrics),
		forecast.WithClock(o.now),
	}
	if cfg.Commentary.Enabled {
		provider := o.llm
		if provider == nil {
			if provider, err = llmfactory.New(cfg.LLM); err != nil {
				a.Close()
				return nil, core.WrapError(core.ErrConfigInvalid, err)
			}
		}
		forecastOpts = append(forecastOpts, forecast.WithAnnotator(commentary.New(provider, commentary.Config{
			MaxTokens:   cfg.Commentary.MaxTokens,
			Temperature: cfg.Commentary.Temperature,
			Timeout:     cfg.Commentary.Timeout,
		}, logger.Named("commentary"))))
	}

	a.forecaster = forecast.New(
		forecast.Config{
			Ticker:       cfg.Instrument.Ticker,
			LookbackDays: cfg.Instrument.LookbackDays,
			Location:     loc,
		},
		a.collector, a.store, logger.Named("forecast"),
		forecastOpts...,
	)

	a.ledger = ledger.NewService(
		ledger.Config{
			Policy: ledger.Policy{
				MinAge:      cfg.Resolution.MinAge,
				Sessions:    cfg.Resolution.Sessions,
				DeadZonePct: cfg.Resolution.DeadZonePct,
			},
			RecentLimit: cfg.Export.RecentLimit,
		},
		a.store, locker,
		collector.NewPriceLookup(a.collector, loc).WithClock(o.now),
		logger.Named("ledger"),
		ledger.WithJournal(a.journal),
		ledger.WithObserver(a.metrics),
		ledger.WithClock(o.now),
	)

	return a, nil
}

func newCollector(cfg config.CollectorConfig, loc *time.Location, logger *zap.Logger) (collector.Collector, error) {
	registry := collector.NewRegistry(yahoo.New(logger.Named("yahoo")), csvfile.New())
	return registry.Build(cfg.Name, collector.Config{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.Timeout,
		Proxy:         cfg.Proxy,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
		Path:          cfg.CSVPath,
		Location:      loc,
		Breaker: collector.BreakerConfig{
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
		},
	})
}

func newNotifiers(cfg map[string]config.NotifierConfig, extra []notifier.Notifier) (*notifier.Registry, error) {
	registry := notifier.NewRegistry()
	for name, nc := range cfg {
		if !nc.Enabled {
			continue
		}
		var n notifier.Notifier
		params := map[string]any{}
		switch name {
		case "telegram":
			n = telegram.New(nc.BotToken, nc.ChatID)
			if nc.URL != "" {
				params["base_url"] = nc.URL
			}
		case "webhook":
			n = webhook.New(nc.URL, nc.Headers)
		case "email":
			n = email.New(nc.Host, nc.Port, nc.Username, nc.Password, nc.From, nc.To)
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
		}
		if err := n.Init(notifier.Config{Type: name, Params: params}); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := registry.Register(n); err != nil {
			return nil, err
		}
	}
	for _, n := range extra {
		if err := registry.Register(n); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func newBlob(cfg config.StorageConfig) (blob.Storage, error) {
	switch cfg.Type {
	case "s3":
		return blob.NewS3(blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return blob.NewLocalFS(cfg.Path)
	}
}

func (a *App) newLocker(cfg config.LockConfig) (ledger.Locker, error) {
	switch cfg.Type {
	case "file":
		return lock.NewFile(cfg.Path, cfg.TTL, a.logger.Named("lock")), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		return lock.NewRedis(client, cfg.Redis.Key, cfg.TTL, a.logger.Named("lock")), nil
	case "memory":
		return lock.NewMutex(), nil
	default:
		return nil, nil
	}
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Location returns the instrument's timezone.
func (a *App) Location() *time.Location {
	return a.location
}

// Metrics returns the metrics registry.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

func (a *App) observe(operation string, start time.Time, err error) {
	a.metrics.ObserveOperation(operation, time.Since(start), err)
}

// GenerateForecast scores the latest bar and writes the latest forecast.
func (a *App) GenerateForecast(ctx context.Context) (f core.Forecast, err error) {
	defer func(start time.Time) { a.observe("forecast", start, err) }(time.Now())
	f, err = a.forecaster.Generate(ctx)
	if err != nil {
		return f, err
	}
	a.logNotifyErrors("forecast", a.notifiers.NotifyForecast(ctx, f))
	return f, nil
}

// RecordCurrentForecast appends the latest forecast to the ledger.
func (a *App) RecordCurrentForecast(ctx context.Context) (p core.Prediction, err error) {
	defer func(start time.Time) { a.observe("record", start, err) }(time.Now())
	return a.ledger.RecordCurrentForecast(ctx)
}

// ResolvePendingPredictions grades every pending prediction that is due.
func (a *App) ResolvePendingPredictions(ctx context.Context) (r ledger.ResolveReport, err error) {
	defer func(start time.Time) { a.observe("resolve", start, err) }(time.Now())
	r, err = a.ledger.ResolvePendingPredictions(ctx)
	if err != nil {
		return r, err
	}
	a.lookupFailures.Store(int64(r.Failed))
	if len(r.Resolved) == 0 || a.notifiers.Len() == 0 {
		return r, nil
	}

	st, serr := a.ledger.Statistics(ctx)
	if serr != nil {
		a.logger.Warn("statistics for resolution notice failed", zap.Error(serr))
		return r, nil
	}
	a.logNotifyErrors("resolution", a.notifiers.NotifyResolution(ctx, notifier.Resolution{
		Resolved:   r.Resolved,
		Statistics: st,
	}))
	return r, nil
}

// Notification failures never fail the operation that triggered them.
func (a *App) logNotifyErrors(kind string, errs map[string]error) {
	for name, err := range errs {
		a.logger.Warn("notification failed",
			zap.String("kind", kind),
			zap.String("notifier", name),
			zap.Error(err))
	}
}

// ExportForDisplay recomputes statistics and writes the export artifact.
func (a *App) ExportForDisplay(ctx context.Context) (e ledger.Export, err error) {
	defer func(start time.Time) { a.observe("export", start, err) }(time.Now())
	e, err = a.ledger.ExportForDisplay(ctx)
	if err != nil {
		return e, err
	}
	a.CheckAlerts(ctx, e.Statistics)
	return e, nil
}

// CheckAlerts evaluates the configured alert rules against st and returns
// the alerts that fired.
func (a *App) CheckAlerts(ctx context.Context, st core.Statistics) []string {
	if len(a.rules) == 0 {
		return nil
	}
	a.alerts.SetMetrics(alert.Snapshot(st, int(a.lookupFailures.Load())))
	return a.alerts.EvaluateAll(ctx, a.rules)
}

// Statistics computes accuracy over the stored ledger without writing.
func (a *App) Statistics(ctx context.Context) (core.Statistics, error) {
	return a.ledger.Statistics(ctx)
}

// LatestForecast returns the forecast in the latest-forecast slot.
func (a *App) LatestForecast(ctx context.Context) (core.Forecast, error) {
	return a.store.LoadLatestForecast(ctx)
}

// LatestExport returns the last written export artifact.
func (a *App) LatestExport(ctx context.Context) (ledger.Export, error) {
	return a.store.LoadExport(ctx)
}

// RecentForecasts returns journaled forecasts, newest first.
func (a *App) RecentForecasts(ctx context.Context, limit int) ([]journal.ForecastEntry, error) {
	return a.journal.RecentForecasts(ctx, limit)
}

// RunDaily runs forecast, record, resolve and export in order. A forecast
// or record failure is logged and resolution still runs, so that earlier
// predictions are graded even when today's data is missing.
func (a *App) RunDaily(ctx context.Context) (DailyResult, error) {
	var res DailyResult
	var errs []error

	if f, err := a.GenerateForecast(ctx); err != nil {
		a.logger.Error("forecast failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("forecast: %w", err))
	} else {
		res.Forecast = &f
		if p, err := a.RecordCurrentForecast(ctx); err != nil {
			a.logger.Error("record failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("record: %w", err))
		} else {
			res.Prediction = &p
		}
	}

	report, err := a.ResolvePendingPredictions(ctx)
	if err != nil {
		return res, errors.Join(append(errs, fmt.Errorf("resolve: %w", err))...)
	}
	res.Resolution = report

	export, err := a.ExportForDisplay(ctx)
	if err != nil {
		return res, errors.Join(append(errs, fmt.Errorf("export: %w", err))...)
	}
	res.Export = export

	return res, errors.Join(errs...)
}

// WriteMetrics writes the metrics textfile when one is configured.
func (a *App) WriteMetrics() error {
	if !a.cfg.Metrics.Enabled || a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Close releases the journal and lock connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
