package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/augur/internal/collector"
	"github.com/newthinker/augur/internal/core"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahoo_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New(nil)
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SPY", "SPY"},
		{"SPX", "^GSPC"},
		{"spx", "^GSPC"},
		{"^GSPC", "^GSPC"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
	}

	y := New(nil)
	for _, tc := range tests {
		got := y.toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	for _, ok := range []string{"SPY", "^GSPC", "BRK-B", "0700.HK"} {
		if err := validateSymbol(ok); err != nil {
			t.Errorf("validateSymbol(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "SPY/../x", "a b", "WAYTOOLONGSYMBOL"} {
		if err := validateSymbol(bad); err == nil {
			t.Errorf("validateSymbol(%q) should fail", bad)
		}
	}
}

const chartJSON = `{"chart":{"result":[{
  "meta":{"symbol":"SPY","exchangeTimezoneName":"America/New_York","regularMarketPrice":562.1},
  "timestamp":[1741786200,1741872600,1741959000],
  "indicators":{"quote":[{
    "open":[558.1,null,560.2],
    "high":[561.0,null,563.5],
    "low":[556.4,null,559.8],
    "close":[559.9,null,562.1],
    "volume":[61000000,null,null]
  }]}
}],"error":null}}`

func newTestYahoo(t *testing.T, h http.Handler, cfg collector.Config) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = 1000
	}
	y := New(nil)
	require.NoError(t, y.Init(cfg))
	return y
}

func TestYahoo_FetchHistory(t *testing.T) {
	var gotPath, gotUA string
	var gotQuery map[string][]string
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotUA, gotQuery = r.URL.Path, r.UserAgent(), r.URL.Query()
		fmt.Fprint(w, chartJSON)
	}), collector.Config{})

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	bars, err := y.FetchHistory(context.Background(), "SPY", start, end, "1d")
	require.NoError(t, err)

	assert.Equal(t, "/SPY", gotPath)
	assert.Contains(t, gotUA, "augur")
	assert.Equal(t, []string{"1d"}, gotQuery["interval"])
	assert.Equal(t, []string{fmt.Sprint(start.Unix())}, gotQuery["period1"])
	assert.Equal(t, []string{fmt.Sprint(end.Unix())}, gotQuery["period2"])

	require.Len(t, bars, 2, "bars with null prices are skipped")
	assert.Equal(t, 559.9, bars[0].Close)
	assert.Equal(t, int64(61000000), bars[0].Volume)
	assert.Equal(t, int64(0), bars[1].Volume)
	assert.Equal(t, "America/New_York", bars[1].Time.Location().String())
	assert.Equal(t, "2025-03-14", bars[1].Time.Format("2006-01-02"))
}

func TestYahoo_FetchHistoryAlias(t *testing.T) {
	var gotPath string
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, chartJSON)
	}), collector.Config{})

	bars, err := y.FetchHistory(context.Background(), "SPX", time.Now().AddDate(0, 0, -5), time.Now(), "1d")
	require.NoError(t, err)
	assert.Equal(t, "/^GSPC", gotPath)
	assert.Equal(t, "SPX", bars[0].Symbol)
}

func TestYahoo_EmptyRange(t *testing.T) {
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"SPY"},"indicators":{"quote":[{}]}}],"error":null}}`)
	}), collector.Config{})

	_, err := y.FetchHistory(context.Background(), "SPY", time.Now().AddDate(0, 0, -1), time.Now(), "1d")
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

func TestYahoo_UnknownSymbol(t *testing.T) {
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}), collector.Config{})

	_, err := y.FetchHistory(context.Background(), "ZZZZ", time.Now().AddDate(0, 0, -10), time.Now(), "1d")
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "delisted")
}

func TestYahoo_BreakerOpensAfterFailures(t *testing.T) {
	var hits int32
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}), collector.Config{Breaker: collector.BreakerConfig{ConsecutiveFailures: 3, OpenTimeout: time.Hour}})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := y.FetchHistory(ctx, "SPY", time.Now().AddDate(0, 0, -10), time.Now(), "1d")
		require.ErrorIs(t, err, core.ErrCollectorFailed)
	}

	_, err := y.FetchHistory(ctx, "SPY", time.Now().AddDate(0, 0, -10), time.Now(), "1d")
	assert.ErrorIs(t, err, core.ErrCollectorFailed)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "open breaker must not reach the server")
}

func TestYahoo_EmptyRangeDoesNotTripBreaker(t *testing.T) {
	var hits int32
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}), collector.Config{Breaker: collector.BreakerConfig{ConsecutiveFailures: 1}})

	for i := 0; i < 3; i++ {
		_, err := y.FetchHistory(context.Background(), "SPY", time.Now().AddDate(0, 0, -1), time.Now(), "1d")
		assert.ErrorIs(t, err, core.ErrDataUnavailable)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestYahoo_Timeout(t *testing.T) {
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}), collector.Config{Timeout: 50 * time.Millisecond})

	_, err := y.FetchHistory(context.Background(), "SPY", time.Now().AddDate(0, 0, -10), time.Now(), "1d")
	assert.ErrorIs(t, err, core.ErrCollectorTimeout)
}

func TestYahoo_InvalidProxy(t *testing.T) {
	y := New(nil)
	assert.Error(t, y.Init(collector.Config{Proxy: "://bad"}))
}
