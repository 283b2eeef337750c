// Package state persists the ledger, the latest forecast and the export
// artifact as indented JSON documents in a blob store.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/ledger"
	"github.com/newthinker/augur/internal/storage/blob"
)

// Keys names the documents inside the blob store.
type Keys struct {
	Ledger   string
	Forecast string
	Export   string
}

// DefaultKeys is the historical file layout.
func DefaultKeys() Keys {
	return Keys{
		Ledger:   "data/prediction_history.json",
		Forecast: "forecast_latest.json",
		Export:   "predictions_data.json",
	}
}

// Store is the persistence adapter shared by the forecaster and the ledger.
type Store struct {
	blob blob.Storage
	keys Keys
}

// New creates a Store over b.
func New(b blob.Storage, keys Keys) *Store {
	return &Store{blob: b, keys: keys}
}

// LoadLedger returns the stored ledger, or an empty one if none exists yet.
func (s *Store) LoadLedger(ctx context.Context) (*ledger.Ledger, error) {
	l := ledger.New()
	found, err := s.read(ctx, s.keys.Ledger, l)
	if err != nil {
		return nil, err
	}
	if !found || l.Predictions == nil {
		l.Predictions = []core.Prediction{}
	}
	return l, nil
}

// SaveLedger overwrites the stored ledger.
func (s *Store) SaveLedger(ctx context.Context, l *ledger.Ledger) error {
	return s.write(ctx, s.keys.Ledger, l)
}

// LoadLatestForecast returns the latest forecast or core.ErrNotFound.
func (s *Store) LoadLatestForecast(ctx context.Context) (core.Forecast, error) {
	var f core.Forecast
	found, err := s.read(ctx, s.keys.Forecast, &f)
	if err != nil {
		return core.Forecast{}, err
	}
	if !found {
		return core.Forecast{}, core.WrapError(core.ErrNotFound, fmt.Errorf("forecast file not found: %s", s.keys.Forecast))
	}
	return f, nil
}

// SaveLatestForecast overwrites the latest-forecast slot.
func (s *Store) SaveLatestForecast(ctx context.Context, f core.Forecast) error {
	return s.write(ctx, s.keys.Forecast, f)
}

// SaveExport writes the dashboard export artifact.
func (s *Store) SaveExport(ctx context.Context, e ledger.Export) error {
	return s.write(ctx, s.keys.Export, e)
}

// LoadExport reads the last export artifact.
func (s *Store) LoadExport(ctx context.Context) (ledger.Export, error) {
	var e ledger.Export
	found, err := s.read(ctx, s.keys.Export, &e)
	if err != nil {
		return ledger.Export{}, err
	}
	if !found {
		return ledger.Export{}, core.WrapError(core.ErrNotFound, fmt.Errorf("export file not found: %s", s.keys.Export))
	}
	return e, nil
}

func (s *Store) read(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.blob.Read(ctx, key)
	if errors.Is(err, blob.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, core.WrapError(core.ErrPersistence, fmt.Errorf("reading %s: %w", key, err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, core.WrapError(core.ErrPersistence, fmt.Errorf("decoding %s: %w", key, err))
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrPersistence, fmt.Errorf("encoding %s: %w", key, err))
	}
	if err := s.blob.Write(ctx, key, data); err != nil {
		return core.WrapError(core.ErrPersistence, fmt.Errorf("writing %s: %w", key, err))
	}
	return nil
}
