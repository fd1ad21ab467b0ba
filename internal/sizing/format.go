package sizing

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders v with exactly two fractional digits. Rounding is half
// away from zero on the stored binary value, so 1.005 (stored just below)
// shows "1.00", and a negative value that rounds to zero keeps its sign.
func FormatAmount(v float64) string {
	out := exactDecimal(v).StringFixed(2)
	if v < 0 && out == "0.00" {
		return "-0.00"
	}
	return out
}

// RoundAmount rounds v to two fractional digits the same way FormatAmount does.
func RoundAmount(v float64) float64 {
	f, _ := exactDecimal(v).Round(2).Float64()
	return f
}

// exactBinaryDigits covers the longest fractional expansion of a float64 (2^-1074).
const exactBinaryDigits = 1100

// exactDecimal is the exact decimal value of the binary float. NaN and
// infinities map to zero.
func exactDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', exactBinaryDigits, 64))
	if err != nil {
		return decimal.NewFromFloat(v)
	}
	return d
}

// ParseAmount parses free-text numeric input. Surrounding spaces are ignored;
// NaN, infinities and empty text are rejected.
func ParseAmount(field, text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, &ParseError{Field: field, Text: text}
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Text: text, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Field: field, Text: text}
	}
	return v, nil
}

// ParseInput parses the two free-text fields and combines them with the
// selected risk and commission values.
func ParseInput(balanceText, stopLossText string, riskPercent, commissionPercent float64) (Input, error) {
	balance, err := ParseAmount("balance", balanceText)
	if err != nil {
		return Input{}, err
	}
	stop, err := ParseAmount("stop_loss_pct", stopLossText)
	if err != nil {
		return Input{}, err
	}
	return Input{
		Balance:           balance,
		StopLossPercent:   stop,
		RiskPercent:       riskPercent,
		CommissionPercent: commissionPercent,
	}, nil
}
