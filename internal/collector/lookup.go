package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/augur/internal/core"
)

// HistoryFetcher is the part of a Collector the price lookup needs.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// PriceLookup answers "which closes were realized from date onward" using a
// daily bar source.
type PriceLookup struct {
	source HistoryFetcher
	loc    *time.Location
	now    func() time.Time
}

// NewPriceLookup creates a lookup reading dates in the exchange location.
func NewPriceLookup(source HistoryFetcher, loc *time.Location) *PriceLookup {
	if loc == nil {
		loc = time.UTC
	}
	return &PriceLookup{source: source, loc: loc, now: time.Now}
}

// WithClock overrides time.Now as the end of the lookup range.
func (p *PriceLookup) WithClock(now func() time.Time) *PriceLookup {
	p.now = now
	return p
}

// LookupRealizedPrices returns daily closes on or after date, ascending.
// A range with no bars yet is an empty result, not an error.
func (p *PriceLookup) LookupRealizedPrices(ctx context.Context, ticker, date string) ([]float64, error) {
	start, err := time.ParseInLocation("2006-01-02", date, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing prediction date %q: %w", date, err)
	}
	end := p.now().In(p.loc)
	if !end.After(start) {
		return nil, nil
	}

	bars, err := p.source.FetchHistory(ctx, ticker, start, end, "1d")
	if errors.Is(err, core.ErrDataUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Time.In(p.loc).Format("2006-01-02") < date {
			continue
		}
		closes = append(closes, b.Close)
	}
	return closes, nil
}
