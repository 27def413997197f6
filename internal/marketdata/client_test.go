package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return NewClient(Config{
		BaseURL:             baseURL,
		APIKey:              "test-token",
		MaxRequestPerMinute: 6000,
		MaxRetries:          3,
		RetryBackoff:        time.Millisecond,
		Timeout:             time.Second,
	}, log)
}

func TestGetCandles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "60", r.URL.Query().Get("resolution"))
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		w.Write([]byte(`{"s":"ok","o":[100,101],"h":[102,103],"l":[99,100],"c":[101,102],"v":[1000,1100],"t":[1756388700,1756392300]}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	symbol := &entity.Symbol{ID: 1, Ticker: "AAPL", Exchange: "NASDAQ", MarketType: entity.MarketUS}

	candles, err := client.GetCandles(context.Background(), symbol, "1h", time.Now().Add(-2*time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, uint(1), candles[0].SymbolID)
	assert.Equal(t, "1h", candles[0].Timeframe)
	assert.Equal(t, 101.0, candles[0].Close)
	assert.Equal(t, time.Unix(1756388700, 0).UTC(), candles[0].Timestamp)
}

func TestGetCandlesNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"s":"no_data"}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	symbol := &entity.Symbol{ID: 1, Ticker: "AAPL", MarketType: entity.MarketUS}

	_, err := client.GetCandles(context.Background(), symbol, "1h", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestGetCandlesMismatchedArrays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Truncated o/h/l/v series must fail the decode, not index out of range.
		w.Write([]byte(`{"s":"ok","t":[1756388700,1756392300],"c":[101,102],"o":[100],"h":[],"l":[],"v":[]}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	symbol := &entity.Symbol{ID: 1, Ticker: "AAPL", MarketType: entity.MarketUS}

	candles, err := client.GetCandles(context.Background(), symbol, "1h", time.Now().Add(-2*time.Hour), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamps")
	assert.Nil(t, candles)
}

func TestGetCandlesRetriesOnThrottle(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"s":"ok","o":[100],"h":[101],"l":[99],"c":[100.5],"v":[500],"t":[1756388700]}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	symbol := &entity.Symbol{ID: 2, Ticker: "MSFT", MarketType: entity.MarketUS}

	candles, err := client.GetCandles(context.Background(), symbol, "1d", time.Now().Add(-24*time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, 2, requests)
}

func TestGetCandlesBadRequestIsTerminal(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	symbol := &entity.Symbol{ID: 3, Ticker: "GOOG", MarketType: entity.MarketUS}

	_, err := client.GetCandles(context.Background(), symbol, "1h", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.Equal(t, 1, requests)
}

func TestProviderSymbol(t *testing.T) {
	us := &entity.Symbol{Ticker: "AAPL", Exchange: "NASDAQ", MarketType: entity.MarketUS}
	assert.Equal(t, "AAPL", providerSymbol(us))

	vn := &entity.Symbol{Ticker: "VCB", Exchange: "HOSE", MarketType: entity.MarketVN}
	assert.Equal(t, "HOSE:VCB", providerSymbol(vn))
}

func TestProviderResolution(t *testing.T) {
	assert.Equal(t, "1", providerResolution("1m"))
	assert.Equal(t, "60", providerResolution("1h"))
	assert.Equal(t, "D", providerResolution("1d"))
	assert.Equal(t, "4h", providerResolution("4h"))
}
