package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/augur/internal/collector"
	"github.com/newthinker/augur/internal/core"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	userAgent      = "Mozilla/5.0 (compatible; augur/1.0)"
)

// validSymbol matches symbols like SPY, BRK-B, ^GSPC, 0700.HK
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

// aliases maps common index names to Yahoo's ticker
var aliases = map[string]string{
	"SPX":  "^GSPC",
	"NDX":  "^NDX",
	"DJI":  "^DJI",
	"VIX":  "^VIX",
	"RUT":  "^RUT",
	"INDU": "^DJI",
}

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart collector
type Yahoo struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates a new Yahoo collector with default settings
func New(logger *zap.Logger) *Yahoo {
	if logger == nil {
		logger = zap.NewNop()
	}
	y := &Yahoo{logger: logger}
	if err := y.Init(collector.Config{}); err != nil {
		panic(err) // defaults are always valid
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// Init applies cfg; zero fields keep their defaults.
func (y *Yahoo) Init(cfg collector.Config) error {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("parsing proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	y.client = &http.Client{Timeout: timeout, Transport: transport}

	y.baseURL = defaultBaseURL
	if cfg.BaseURL != "" {
		y.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	rps, burst := cfg.RatePerSecond, cfg.Burst
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 1
	}
	y.limiter = rate.NewLimiter(rate.Limit(rps), burst)

	failures := cfg.Breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	openTimeout := cfg.Breaker.OpenTimeout
	if openTimeout == 0 {
		openTimeout = time.Minute
	}
	y.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "yahoo",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// an empty range is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, core.ErrDataUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			y.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return nil
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	if alias, ok := aliases[strings.ToUpper(symbol)]; ok {
		return alias
	}
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches daily OHLCV bars between start and end
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	yahooSymbol := y.toYahooSymbol(symbol)

	q := url.Values{}
	q.Set("interval", y.toYahooInterval(interval))
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("events", "history")
	reqURL := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(yahooSymbol), q.Encode())

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, core.WrapError(core.ErrCollectorTimeout, err)
	}

	out, err := y.breaker.Execute(func() (interface{}, error) {
		return y.fetch(ctx, reqURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("yahoo: %w", err))
		}
		return nil, err
	}

	result := out.(*chartResult)
	bars := toBars(result, symbol, interval)
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable,
			fmt.Errorf("%s between %s and %s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	y.logger.Debug("fetched history",
		zap.String("symbol", symbol),
		zap.String("yahoo_symbol", yahooSymbol),
		zap.Int("bars", len(bars)),
	)
	return bars, nil
}

func (y *Yahoo) fetch(ctx context.Context, reqURL string) (*chartResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, core.WrapError(core.ErrCollectorTimeout, err)
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	var result chartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if result.Chart.Error != nil && resp.StatusCode == http.StatusNotFound {
		return nil, core.WrapError(core.ErrDataUnavailable,
			fmt.Errorf("yahoo: %s", result.Chart.Error.Description))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", decodeErr))
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return &chartResult{}, nil
	}
	return &result.Chart.Result[0], nil
}

func toBars(r *chartResult, symbol, interval string) []core.OHLCV {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	loc := time.UTC
	if r.Meta.ExchangeTimezoneName != "" {
		if l, err := time.LoadLocation(r.Meta.ExchangeTimezoneName); err == nil {
			loc = l
		}
	}

	quotes := r.Indicators.Quote[0]
	n := min(len(r.Timestamp), len(quotes.Open), len(quotes.High), len(quotes.Low), len(quotes.Close))
	data := make([]core.OHLCV, 0, n)
	for i, ts := range r.Timestamp[:n] {
		if quotes.Open[i] == nil || quotes.High[i] == nil || quotes.Low[i] == nil || quotes.Close[i] == nil {
			continue // Skip missing data
		}
		var volume int64
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			volume = *quotes.Volume[i]
		}
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     *quotes.Open[i],
			High:     *quotes.High[i],
			Low:      *quotes.Low[i],
			Close:    *quotes.Close[i],
			Volume:   volume,
			Time:     time.Unix(ts, 0).In(loc),
		})
	}
	return data
}

func (y *Yahoo) toYahooInterval(interval string) string {
	switch interval {
	case "1wk", "1mo":
		return interval
	default:
		return "1d"
	}
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol               string  `json:"symbol"`
	ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
