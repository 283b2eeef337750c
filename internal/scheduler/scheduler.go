package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/ledger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is the set of daily operations the scheduler drives.
type Runner interface {
	GenerateForecast(ctx context.Context) (core.Forecast, error)
	RecordCurrentForecast(ctx context.Context) (core.Prediction, error)
	ResolvePendingPredictions(ctx context.Context) (ledger.ResolveReport, error)
	ExportForDisplay(ctx context.Context) (ledger.Export, error)
}

// Scheduler runs the forecast and evaluation jobs on cron schedules. Job
// errors are logged and never stop the scheduler.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *zap.Logger
	ctx    context.Context
}

// New creates a scheduler whose cron specs carry a leading seconds field
// and are interpreted in loc.
func New(ctx context.Context, runner Runner, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
		ctx:    ctx,
	}
}

// Register adds the two daily jobs. An empty spec leaves that job out.
func (s *Scheduler) Register(forecastCron, evaluateCron string) error {
	if forecastCron != "" {
		if _, err := s.cron.AddFunc(forecastCron, s.forecastJob); err != nil {
			return fmt.Errorf("register forecast job: %w", err)
		}
	}
	if evaluateCron != "" {
		if _, err := s.cron.AddFunc(evaluateCron, s.evaluateJob); err != nil {
			return fmt.Errorf("register evaluate job: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next returns the next activation time of every registered job.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next = append(next, e.Next)
	}
	return next
}

// RunForecastNow executes the forecast job immediately.
func (s *Scheduler) RunForecastNow() error {
	return s.runForecast()
}

// RunEvaluateNow executes the evaluation job immediately.
func (s *Scheduler) RunEvaluateNow() error {
	return s.runEvaluate()
}

func (s *Scheduler) forecastJob() {
	if err := s.runForecast(); err != nil {
		s.logger.Error("forecast job failed", zap.Error(err))
	}
}

func (s *Scheduler) evaluateJob() {
	if err := s.runEvaluate(); err != nil {
		s.logger.Error("evaluate job failed", zap.Error(err))
	}
}

func (s *Scheduler) runForecast() error {
	s.logger.Info("running forecast job")
	if _, err := s.runner.GenerateForecast(s.ctx); err != nil {
		return fmt.Errorf("generate forecast: %w", err)
	}
	if _, err := s.runner.RecordCurrentForecast(s.ctx); err != nil {
		return fmt.Errorf("record forecast: %w", err)
	}
	return nil
}

func (s *Scheduler) runEvaluate() error {
	s.logger.Info("running evaluate job")
	if _, err := s.runner.ResolvePendingPredictions(s.ctx); err != nil {
		return fmt.Errorf("resolve predictions: %w", err)
	}
	if _, err := s.runner.ExportForDisplay(s.ctx); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
