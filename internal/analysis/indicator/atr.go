// Package indicator computes volatility figures from candles.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"positionsizer/internal/market"
)

const DefaultATRPeriod = 14

// ComputeATRSeries returns the ATR series with TA-Lib's warmup values dropped.
func ComputeATRSeries(candles []market.Candle, period int) ([]float64, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles")
	}
	if period <= 0 {
		period = DefaultATRPeriod
	}
	if len(candles) < period+1 {
		return nil, fmt.Errorf("need %d candles for atr(%d), got %d", period+1, period, len(candles))
	}
	highs, lows, closes := market.Candles(candles).Series()
	series := sanitizeSeries(talib.Atr(highs, lows, closes, period), period)
	if len(series) == 0 {
		return nil, fmt.Errorf("atr series empty")
	}
	return series, nil
}

// sanitizeSeries drops the first `warmup` slots and any NaN/Inf values.
func sanitizeSeries(src []float64, warmup int) []float64 {
	if warmup > len(src) {
		warmup = len(src)
	}
	out := make([]float64, 0, len(src)-warmup)
	for _, v := range src[warmup:] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
