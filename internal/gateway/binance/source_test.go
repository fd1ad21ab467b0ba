package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, handler http.HandlerFunc, cfg Config) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.RESTBaseURL = srv.URL
	src, err := New(cfg)
	require.NoError(t, err)
	return src
}

func klineRow(openMs, closeMs int64, high, low, close string) string {
	return fmt.Sprintf(`[%d,"%s","%s","%s","%s","10",%d,"1000",42,"5","500","0"]`, openMs, close, high, low, close, closeMs)
}

func TestSource_FetchCandles(t *testing.T) {
	var gotSymbol string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "klines") {
			http.NotFound(w, r)
			return
		}
		gotSymbol = r.URL.Query().Get("symbol")
		rows := []string{
			klineRow(0, 59999, "101", "99", "100"),
			klineRow(60000, 119999, "102", "100", "101"),
			klineRow(120000, 179999, "103", "101", "102"),
		}
		_, _ = fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
	}, Config{})
	src.now = func() time.Time { return time.UnixMilli(150000) }

	candles, err := src.FetchCandles(context.Background(), "eth/usdt", "1M", 3)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", gotSymbol)
	require.Len(t, candles, 2)
	assert.Equal(t, 101.0, candles[1].Close)
	assert.Equal(t, 102.0, candles[1].High)
	assert.Equal(t, int64(42), candles[0].Trades)

	_, err = src.FetchCandles(context.Background(), " ", "1h", 10)
	assert.Error(t, err)
	_, err = src.FetchCandles(context.Background(), "BTCUSDT", "", 10)
	assert.Error(t, err)
}

func TestSource_FetchBalance(t *testing.T) {
	var apiKey string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "balance") {
			http.NotFound(w, r)
			return
		}
		apiKey = r.Header.Get("X-MBX-APIKEY")
		_, _ = w.Write([]byte(`[{"accountAlias":"a","asset":"BNB","balance":"1","availableBalance":"1"},{"accountAlias":"a","asset":"USDT","balance":"1234.5","crossWalletBalance":"1234.5","availableBalance":"1000.25"}]`))
	}, Config{APIKey: "key", APISecret: "secret"})

	bal, err := src.FetchBalance(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "key", apiKey)
	assert.Equal(t, Balance{Asset: "USDT", Wallet: 1234.5, Available: 1000.25}, bal)

	_, err = src.FetchBalance(context.Background(), "btc")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestSource_FetchBalanceRequiresCredentials(t *testing.T) {
	src, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, src.HasCredentials())
	_, err = src.FetchBalance(context.Background(), "USDT")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestSource_BreakerOpensOnUpstreamFailures(t *testing.T) {
	var hits atomic.Int32
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}, Config{BreakerThreshold: 2, BreakerCooldown: time.Minute})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := src.FetchCandles(ctx, "BTCUSDT", "1h", 10)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	_, err := src.FetchCandles(ctx, "BTCUSDT", "1h", 10)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSource_APIRejectionKeepsBreakerClosed(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}, Config{BreakerThreshold: 1})

	for i := 0; i < 3; i++ {
		_, err := src.FetchCandles(context.Background(), "NOPE", "1h", 10)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
}

func TestToExchangeSymbol(t *testing.T) {
	assert.Equal(t, "ETHUSDT", ToExchangeSymbol("eth/usdt"))
	assert.Equal(t, "BTCUSDT", ToExchangeSymbol("BTC/USDT:USDT"))
	assert.Equal(t, "SOLUSDT", ToExchangeSymbol(" sol-usdt "))
}
