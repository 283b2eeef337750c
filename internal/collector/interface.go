package collector

import (
	"context"
	"time"

	"github.com/newthinker/augur/internal/core"
)

// Config holds collector configuration
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	Proxy         string
	RatePerSecond float64
	Burst         int
	// Path is the source file of file-backed collectors. "{symbol}" is
	// replaced by the requested symbol.
	Path     string
	Location *time.Location
	Breaker  BreakerConfig
}

// BreakerConfig controls the circuit breaker around remote collectors.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Collector defines the interface for daily bar sources
type Collector interface {
	// Metadata
	Name() string

	// Lifecycle
	Init(cfg Config) error

	// FetchHistory returns bars in [start, end], ascending by time. An
	// empty range is core.ErrDataUnavailable.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}
