package indicator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"positionsizer/internal/market"
)

const DefaultATRMultiplier = 1.5

var ErrNoPrice = errors.New("last close is not positive")

// Suggestion is an ATR based stop distance expressed as a percentage of price.
type Suggestion struct {
	Symbol          string  `json:"symbol,omitempty"`
	Interval        string  `json:"interval,omitempty"`
	Period          int     `json:"period"`
	Multiplier      float64 `json:"multiplier"`
	ATR             float64 `json:"atr"`
	LastClose       float64 `json:"last_close"`
	StopLossPercent float64 `json:"stop_loss_pct"`
	Candles         int     `json:"candles"`
}

// SuggestStopLoss derives stopLossPercent = ATR*multiplier/lastClose*100,
// rounded to two decimals.
func SuggestStopLoss(candles []market.Candle, period int, multiplier float64) (Suggestion, error) {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	if multiplier <= 0 {
		multiplier = DefaultATRMultiplier
	}
	series, err := ComputeATRSeries(candles, period)
	if err != nil {
		return Suggestion{}, err
	}
	last, _ := market.Candles(candles).Last()
	if last.Close <= 0 {
		return Suggestion{}, fmt.Errorf("stop-loss suggestion: %w", ErrNoPrice)
	}
	atr := series[len(series)-1]
	pct := decimal.NewFromFloat(atr).
		Mul(decimal.NewFromFloat(multiplier)).
		Div(decimal.NewFromFloat(last.Close)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	out, _ := pct.Float64()
	return Suggestion{
		Period:          period,
		Multiplier:      multiplier,
		ATR:             decimal.NewFromFloat(atr).Round(6).InexactFloat64(),
		LastClose:       last.Close,
		StopLossPercent: out,
		Candles:         len(candles),
	}, nil
}
