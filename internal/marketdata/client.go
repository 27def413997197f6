package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrDataUnavailable is returned when the provider has no candles for
	// the requested symbol and range.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrRateLimited is returned when the provider keeps throttling after
	// every retry.
	ErrRateLimited = errors.New("market data provider rate limited")
)

// Config holds the candle provider settings.
type Config struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// Client fetches historical candles over HTTP. Requests are paced with a
// client-side limiter so backfills do not trip the provider's quota.
type Client struct {
	cfg            Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.MaxRequestPerMinute <= 0 {
		cfg.MaxRequestPerMinute = 60
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)
	return &Client{
		cfg:            cfg,
		log:            log,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

type candleResponse struct {
	Status  string    `json:"s"`
	Open    []float64 `json:"o"`
	High    []float64 `json:"h"`
	Low     []float64 `json:"l"`
	Close   []float64 `json:"c"`
	Volume  []float64 `json:"v"`
	Time    []int64   `json:"t"`
	Message string    `json:"errmsg"`
}

// GetCandles fetches candles for one symbol and timeframe in [from, to).
func (c *Client) GetCandles(ctx context.Context, symbol *entity.Symbol, timeframe string, from, to time.Time) ([]entity.Candle, error) {
	query := url.Values{}
	query.Set("symbol", providerSymbol(symbol))
	query.Set("resolution", providerResolution(timeframe))
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))
	query.Set("token", c.cfg.APIKey)
	endpoint := c.cfg.BaseURL + "/stock/candle?" + query.Encode()

	body, err := c.sendRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp candleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode candle response: %w", err)
	}
	if resp.Status == "no_data" {
		return nil, fmt.Errorf("%s %s [%s, %s): %w", symbol.Ticker, timeframe, from.Format(time.RFC3339), to.Format(time.RFC3339), ErrDataUnavailable)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("provider status %q: %s", resp.Status, resp.Message)
	}
	// All five series must line up with the timestamps or the payload is
	// unusable.
	for name, length := range map[string]int{
		"open": len(resp.Open), "high": len(resp.High), "low": len(resp.Low),
		"close": len(resp.Close), "volume": len(resp.Volume),
	} {
		if length != len(resp.Time) {
			return nil, fmt.Errorf("provider returned %d timestamps but %d %s values", len(resp.Time), length, name)
		}
	}

	candles := make([]entity.Candle, 0, len(resp.Time))
	for i := range resp.Time {
		candles = append(candles, entity.Candle{
			SymbolID:  symbol.ID,
			Timeframe: timeframe,
			Timestamp: time.Unix(resp.Time[i], 0).UTC(),
			Open:      resp.Open[i],
			High:      resp.High[i],
			Low:       resp.Low[i],
			Close:     resp.Close[i],
			Volume:    resp.Volume[i],
		})
	}

	c.log.DebugContext(ctx, "Fetched candles",
		logger.StringField("ticker", symbol.Ticker),
		logger.StringField("timeframe", timeframe),
		logger.IntField("count", len(candles)))

	return candles, nil
}

func (c *Client) sendRequest(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := c.requestLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.doRequest(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.WarnContext(ctx, "Market data request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, ErrRateLimited
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("provider returned %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("provider returned %d", resp.StatusCode)
	}
}

// providerSymbol maps a symbol to the provider's naming. VN tickers are
// prefixed with their exchange.
func providerSymbol(symbol *entity.Symbol) string {
	if symbol.MarketType == entity.MarketVN && symbol.Exchange != "" {
		return symbol.Exchange + ":" + symbol.Ticker
	}
	return symbol.Ticker
}

func providerResolution(timeframe string) string {
	switch timeframe {
	case "1m":
		return "1"
	case "2m":
		return "2"
	case "5m":
		return "5"
	case "15m":
		return "15"
	case "30m":
		return "30"
	case "1h":
		return "60"
	case "1d":
		return "D"
	default:
		return timeframe
	}
}
