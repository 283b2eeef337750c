// Package journal keeps an append-only SQLite history of generated
// forecasts and resolved predictions for dashboards.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/newthinker/augur/internal/core"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Journal is what the forecaster and the ledger write to.
type Journal interface {
	RecordForecast(ctx context.Context, f core.Forecast) error
	RecordResolution(ctx context.Context, p core.Prediction) error
	RecentForecasts(ctx context.Context, limit int) ([]ForecastEntry, error)
	Close() error
}

// ForecastEntry is one journaled forecast.
type ForecastEntry struct {
	RunID          string              `json:"run_id"`
	Date           string              `json:"date"`
	Ticker         string              `json:"ticker"`
	Close          float64             `json:"close"`
	Direction      core.Direction      `json:"direction"`
	Confidence     float64             `json:"confidence"`
	SignalStrength int                 `json:"signal_strength"`
	Signals        core.CategoryScores `json:"signals"`
}

// SQLite implements Journal on a SQLite file in WAL mode.
type SQLite struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// OpenSQLite opens (or creates) the journal database and runs migrations.
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// dashboards read while runs write
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	j := &SQLite{db: db, logger: logger}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("forecast journal opened", zap.String("path", path))
	return j, nil
}

func (j *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecasts (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id           TEXT,
			timestamp        INTEGER NOT NULL,
			date             TEXT NOT NULL,
			ticker           TEXT NOT NULL,
			close            REAL,
			price_change_pct REAL,
			direction        TEXT NOT NULL,
			confidence       REAL,
			signal_strength  INTEGER,
			trend            INTEGER,
			momentum         INTEGER,
			volatility       INTEGER,
			volume           INTEGER,
			rsi              REAL,
			macd             REAL,
			adx              REAL,
			stochastic       REAL,
			mfi              REAL,
			atr              REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_date ON forecasts(date)`,

		`CREATE TABLE IF NOT EXISTS resolutions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			prediction_id     INTEGER NOT NULL,
			forecast_id       TEXT,
			date              TEXT NOT NULL,
			ticker            TEXT NOT NULL,
			predicted         TEXT NOT NULL,
			actual            TEXT NOT NULL,
			actual_change_pct REAL,
			price_after       REAL,
			correct           INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_date ON resolutions(date)`,
	}

	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (j *SQLite) RecordForecast(ctx context.Context, f core.Forecast) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx, `INSERT INTO forecasts
		(run_id, timestamp, date, ticker, close, price_change_pct,
		 direction, confidence, signal_strength,
		 trend, momentum, volatility, volume,
		 rsi, macd, adx, stochastic, mfi, atr)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		f.RunID, f.Timestamp.Unix(), f.Date, f.Ticker, f.CurrentPrice, f.PriceChangePct,
		string(f.Prediction.Direction), f.Prediction.Confidence, f.Prediction.SignalStrength,
		f.Signals.Trend, f.Signals.Momentum, f.Signals.Volatility, f.Signals.Volume,
		f.Indicators.RSI, f.Indicators.MACD, f.Indicators.ADX,
		f.Indicators.Stochastic, f.Indicators.MFI, f.Indicators.ATR,
	)
	return err
}

// RecordResolution journals an evaluated prediction; pending ones are refused.
func (j *SQLite) RecordResolution(ctx context.Context, p core.Prediction) error {
	if !p.Evaluated || p.ActualDirection == nil || p.ActualChangePct == nil || p.Correct == nil {
		return fmt.Errorf("prediction #%d is not evaluated", p.ID)
	}
	var priceAfter any
	if p.PriceAfterWindow != nil {
		priceAfter = *p.PriceAfterWindow
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx, `INSERT INTO resolutions
		(prediction_id, forecast_id, date, ticker, predicted, actual,
		 actual_change_pct, price_after, correct)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ForecastID, p.Date, p.Ticker,
		string(p.PredictedDirection), string(*p.ActualDirection),
		*p.ActualChangePct, priceAfter, *p.Correct,
	)
	return err
}

// RecentForecasts returns up to limit journaled forecasts, newest first.
func (j *SQLite) RecentForecasts(ctx context.Context, limit int) ([]ForecastEntry, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT
		run_id, date, ticker, close, direction, confidence, signal_strength,
		trend, momentum, volatility, volume
		FROM forecasts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ForecastEntry
	for rows.Next() {
		var (
			e         ForecastEntry
			runID     sql.NullString
			direction string
		)
		if err := rows.Scan(&runID, &e.Date, &e.Ticker, &e.Close, &direction, &e.Confidence, &e.SignalStrength,
			&e.Signals.Trend, &e.Signals.Momentum, &e.Signals.Volatility, &e.Signals.Volume); err != nil {
			return nil, err
		}
		e.RunID = runID.String
		e.Direction = core.Direction(direction)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	j.logger.Info("closing forecast journal")
	return j.db.Close()
}

// Noop discards everything; used when the journal is disabled.
type Noop struct{}

func (Noop) RecordForecast(context.Context, core.Forecast) error     { return nil }
func (Noop) RecordResolution(context.Context, core.Prediction) error { return nil }
func (Noop) RecentForecasts(context.Context, int) ([]ForecastEntry, error) {
	return nil, nil
}
func (Noop) Close() error { return nil }
