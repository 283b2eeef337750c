package notifier

import (
	"context"

	"github.com/newthinker/augur/internal/core"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Resolution is one batch of graded predictions together with the ledger
// statistics after grading.
type Resolution struct {
	Resolved   []core.Prediction
	Statistics core.Statistics
}

// Notifier defines the interface for forecast notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// SendForecast announces a newly generated forecast
	SendForecast(ctx context.Context, f core.Forecast) error

	// SendResolution announces graded predictions
	SendResolution(ctx context.Context, r Resolution) error

	// SendAlert delivers a ledger health alert
	SendAlert(ctx context.Context, msg string) error
}
