// Package csvfile serves daily bars from CSV exports, for offline runs and
// fixtures.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/augur/internal/collector"
	"github.com/newthinker/augur/internal/core"
)

// CSV reads files with a header row naming at least
// date, open, high, low, close and volume (any case, any order).
type CSV struct {
	path string
	loc  *time.Location
}

// New creates an uninitialized CSV collector
func New() *CSV {
	return &CSV{loc: time.UTC}
}

func (c *CSV) Name() string {
	return "csv"
}

func (c *CSV) Init(cfg collector.Config) error {
	if cfg.Path == "" {
		return core.WrapError(core.ErrConfigMissing, errors.New("csv collector needs a path"))
	}
	c.path = cfg.Path
	if cfg.Location != nil {
		c.loc = cfg.Location
	}
	return nil
}

// FetchHistory returns the bars whose calendar date lies within
// [start, end] in the collector's location.
func (c *CSV) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	path := strings.ReplaceAll(c.path, "{symbol}", symbol)
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("opening %s: %w", path, err))
	}
	defer f.Close()

	bars, err := c.parse(f, symbol)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("%s: %w", path, err))
	}

	from := start.In(c.loc).Format("2006-01-02")
	to := end.In(c.loc).Format("2006-01-02")
	out := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		day := b.Time.Format("2006-01-02")
		if day < from || day > to {
			continue
		}
		b.Interval = interval
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("%s between %s and %s", symbol, from, to))
	}
	return out, nil
}

var required = []string{"date", "open", "high", "low", "close", "volume"}

func (c *CSV) parse(r io.Reader, symbol string) ([]core.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var bars []core.OHLCV
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		day, err := time.ParseInLocation("2006-01-02", rec[col["date"]], c.loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var prices [4]float64
		for i, name := range required[1:5] {
			if prices[i], err = strconv.ParseFloat(rec[col[name]], 64); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
		}
		volume, err := strconv.ParseFloat(rec[col["volume"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: volume: %w", line, err)
		}

		bars = append(bars, core.OHLCV{
			Symbol: symbol,
			Open:   prices[0],
			High:   prices[1],
			Low:    prices[2],
			Close:  prices[3],
			Volume: int64(volume),
			Time:   day,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
