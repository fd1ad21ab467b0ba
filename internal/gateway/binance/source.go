// Package binance reads the futures wallet balance and public klines.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"positionsizer/internal/logger"
	"positionsizer/internal/market"
	"positionsizer/internal/pkg/circuit"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	maxHistoryLimit = 1500
	DefaultAsset    = "USDT"
)

var (
	// ErrCircuitOpen is returned while recent upstream failures keep the breaker open.
	ErrCircuitOpen   = circuit.ErrOpen
	ErrNoCredentials = errors.New("binance api key and secret are required")
	ErrAssetNotFound = errors.New("asset not found in futures wallet")
)

// Balance is the futures wallet position of one asset.
type Balance struct {
	Asset     string  `json:"asset"`
	Wallet    float64 `json:"wallet"`
	Available float64 `json:"available"`
}

// Source wraps the go-binance futures client behind a circuit breaker.
type Source struct {
	cfg     Config
	client  *futures.Client
	breaker *circuit.CircuitBreaker
	now     func() time.Time
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Source{
		cfg:     final,
		client:  client,
		breaker: circuit.NewCircuitBreaker("binance", final.BreakerThreshold, final.BreakerCooldown),
		now:     time.Now,
	}, nil
}

// HasCredentials reports whether signed endpoints can be called.
func (s *Source) HasCredentials() bool {
	return s.cfg.APIKey != "" && s.cfg.APISecret != ""
}

// FetchBalance returns the wallet balance of asset (USDT when empty).
func (s *Source) FetchBalance(ctx context.Context, asset string) (Balance, error) {
	if !s.HasCredentials() {
		return Balance{}, ErrNoCredentials
	}
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		asset = DefaultAsset
	}
	var balances []*futures.Balance
	err := s.guard(func() error {
		var err error
		balances, err = s.client.NewGetBalanceService().Do(ctx)
		return err
	})
	if err != nil {
		return Balance{}, fmt.Errorf("fetch binance balance: %w", err)
	}
	for _, b := range balances {
		if b == nil || !strings.EqualFold(b.Asset, asset) {
			continue
		}
		return Balance{
			Asset:     asset,
			Wallet:    parseFloat(b.Balance),
			Available: parseFloat(b.AvailableBalance),
		}, nil
	}
	return Balance{}, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
}

// FetchCandles returns closed klines, oldest first.
func (s *Source) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	cleanSymbol := ToExchangeSymbol(symbol)
	if cleanSymbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	var kls []*futures.Kline
	err := s.guard(func() error {
		var err error
		kls, err = s.client.NewKlinesService().Symbol(cleanSymbol).Interval(interval).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch binance klines %s %s: %w", cleanSymbol, interval, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return dropUnclosed(out, s.now()), nil
}

// guard runs fn through the breaker. Coded rejections from Binance prove the
// upstream is reachable and do not count as failures.
func (s *Source) guard(fn func() error) error {
	if !s.breaker.Allow() {
		return ErrCircuitOpen
	}
	err := fn()
	var apiErr *common.APIError
	switch {
	case err == nil, errors.As(err, &apiErr) && apiErr.Code != 0:
		s.breaker.RecordSuccess()
	default:
		s.breaker.RecordFailure()
		logger.Warnf("[binance] request failed (%s): %v", s.breaker.State(), err)
	}
	return err
}

// ToExchangeSymbol turns "eth/usdt" or "ETH-USDT" into "ETHUSDT".
func ToExchangeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("/", "", "-", "", "_", "", ":USDT", "").Replace(s)
	return s
}

// dropUnclosed removes a trailing kline that is still forming.
func dropUnclosed(candles []market.Candle, now time.Time) []market.Candle {
	if len(candles) == 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.CloseTime > now.UnixMilli() {
		return candles[:len(candles)-1]
	}
	return candles
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
