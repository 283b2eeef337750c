package main

import (
	"fmt"

	"github.com/newthinker/augur/internal/app"
	"github.com/newthinker/augur/internal/config"
	"github.com/newthinker/augur/internal/logger"
	"go.uber.org/zap"
)

// loadConfig reads --config or falls back to defaults.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// setup builds the logger and the app. The caller must call the returned
// cleanup function.
func setup() (*app.App, *zap.Logger, func(), error) {
	// Logger level comes from the config, so start with a bootstrap logger.
	boot := logger.Must(debugMode, "")
	cfg, err := loadConfig(boot)
	if err != nil {
		return nil, nil, nil, err
	}

	level := cfg.Log.Level
	if debugMode {
		level = "debug"
	}
	log, err := logger.New(debugMode, level)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	cleanup := func() {
		if err := a.WriteMetrics(); err != nil {
			log.Warn("metrics not written", zap.Error(err))
		}
		if err := a.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
		_ = log.Sync()
	}
	return a, log, cleanup, nil
}
