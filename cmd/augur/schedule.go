package main

import (
	"os/signal"
	"syscall"

	"github.com/newthinker/augur/internal/api"
	"github.com/newthinker/augur/internal/metrics"
	"github.com/newthinker/augur/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runOnStart bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run forecast and evaluation jobs on their cron schedules",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run both jobs once before waiting for the schedule")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, log, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := a.Config()
	sched := scheduler.New(ctx, a, a.Location(), log.Named("scheduler"))
	if err := sched.Register(cfg.Schedule.ForecastCron, cfg.Schedule.EvaluateCron); err != nil {
		return err
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen != "" {
		var mounts []metrics.Mount
		if cfg.API.Enabled {
			srv := api.NewServer(api.Config{
				APIKey:  cfg.API.APIKey,
				MaxJobs: cfg.API.MaxJobs,
				JobTTL:  cfg.API.JobTTL,
			}, a, log.Named("api"))
			mounts = append(mounts, metrics.Mount{Pattern: "/api/", Handler: srv})
		}
		handler := metrics.Handler(a.Metrics(), cfg.Metrics.Path, log.Named("http"), mounts...)
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, handler, log); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	if runOnStart {
		if err := sched.RunForecastNow(); err != nil {
			log.Error("forecast job failed", zap.Error(err))
		}
		if err := sched.RunEvaluateNow(); err != nil {
			log.Error("evaluate job failed", zap.Error(err))
		}
	}

	sched.Start()
	for _, next := range sched.Next() {
		log.Info("next run", zap.Time("at", next))
	}

	<-ctx.Done()
	log.Info("shutting down AUGUR scheduler")
	sched.Stop()
	return nil
}
