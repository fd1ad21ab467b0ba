// Package sizing computes the largest leveraged position whose loss at the
// stop-loss, commissions included, stays within a fixed share of the balance.
package sizing

import "math"

// Input carries one calculation. Percentages are in percentage points (0.5 means 0.5%).
type Input struct {
	Balance           float64 `json:"balance"`
	StopLossPercent   float64 `json:"stop_loss_pct"`
	RiskPercent       float64 `json:"risk_pct"`
	CommissionPercent float64 `json:"commission_pct"`
}

// Result is the outcome of Compute. EstimatedLoss is never positive.
type Result struct {
	RiskAmount    float64 `json:"risk_amount"`
	PositionSize  float64 `json:"position_size"`
	EstimatedLoss float64 `json:"estimated_loss"`
}

// Display holds the two-decimal strings shown next to a result.
type Display struct {
	PositionSize  string `json:"position_size"`
	EstimatedLoss string `json:"estimated_loss"`
}

// Compute applies
//
//	riskAmount    = riskPercent/100 * balance
//	positionSize  = riskAmount*100 / (stopLossPercent + 2*commissionPercent)
//	estimatedLoss = -riskAmount
//
// Commission is counted twice, once for the entry fill and once for the exit.
func Compute(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	denominator := EffectiveStopPercent(in.StopLossPercent, in.CommissionPercent)
	if denominator == 0 {
		return Result{}, ErrUndefinedResult
	}
	riskAmount := (in.RiskPercent / 100) * in.Balance
	size := (riskAmount * 100) / denominator
	if math.IsNaN(size) || math.IsInf(size, 0) {
		return Result{}, &ValidationError{Field: "position_size", Value: size, Reason: "result is not finite"}
	}
	return Result{
		RiskAmount:    riskAmount,
		PositionSize:  size,
		EstimatedLoss: -riskAmount,
	}, nil
}

// EffectiveStopPercent is the adverse move that consumes the whole risk budget.
func EffectiveStopPercent(stopLossPercent, commissionPercent float64) float64 {
	return stopLossPercent + commissionPercent*2
}

// Validate rejects values outside the domain of the formula.
func (in Input) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"balance", in.Balance},
		{"stop_loss_pct", in.StopLossPercent},
		{"risk_pct", in.RiskPercent},
		{"commission_pct", in.CommissionPercent},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &ValidationError{Field: c.field, Value: c.value, Reason: "must be finite"}
		}
		if c.value < 0 {
			return &ValidationError{Field: c.field, Value: c.value, Reason: "must not be negative"}
		}
	}
	return nil
}

// Display renders the result with two fractional digits.
func (r Result) Display() Display {
	return Display{
		PositionSize:  FormatAmount(r.PositionSize),
		EstimatedLoss: FormatAmount(r.EstimatedLoss),
	}
}

// CopyText is the text placed on the clipboard by the copy action.
func (r Result) CopyText() string {
	return FormatAmount(r.PositionSize)
}
