package sizing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Scenarios(t *testing.T) {
	cases := []struct {
		name     string
		in       Input
		size     float64
		display  Display
		riskUSDT float64
	}{
		{
			name:     "maker half percent",
			in:       Input{Balance: 1000, StopLossPercent: 2, RiskPercent: 0.5, CommissionPercent: 0.02},
			size:     245.09803921568627,
			display:  Display{PositionSize: "245.10", EstimatedLoss: "-5.00"},
			riskUSDT: 5,
		},
		{
			name:     "taker one percent",
			in:       Input{Balance: 5000, StopLossPercent: 1, RiskPercent: 1.0, CommissionPercent: 0.05},
			size:     4545.454545454545,
			display:  Display{PositionSize: "4545.45", EstimatedLoss: "-50.00"},
			riskUSDT: 50,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Compute(tc.in)
			require.NoError(t, err)
			assert.InDelta(t, tc.size, res.PositionSize, 1e-9)
			assert.InDelta(t, tc.riskUSDT, res.RiskAmount, 1e-9)
			assert.Equal(t, -res.RiskAmount, res.EstimatedLoss)
			assert.Equal(t, tc.display, res.Display())
			assert.Equal(t, tc.display.PositionSize, res.CopyText())
		})
	}
}

func TestCompute_ZeroDenominatorIsUndefined(t *testing.T) {
	res, err := Compute(Input{Balance: 1000, StopLossPercent: 0, RiskPercent: 1, CommissionPercent: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndefinedResult))
	assert.Equal(t, KindUndefined, Kind(err))
	assert.Equal(t, Result{}, res)
}

func TestCompute_StopZeroWithCommissionIsDefined(t *testing.T) {
	res, err := Compute(Input{Balance: 1000, StopLossPercent: 0, RiskPercent: 1, CommissionPercent: 0.05})
	require.NoError(t, err)
	assert.InDelta(t, 100000.0, res.PositionSize, 1e-6)
	assert.False(t, math.IsInf(res.PositionSize, 0))
}

func TestCompute_RejectsOutOfDomain(t *testing.T) {
	cases := []struct {
		name  string
		in    Input
		field string
	}{
		{"negative balance", Input{Balance: -1, StopLossPercent: 1, RiskPercent: 1, CommissionPercent: 0.02}, "balance"},
		{"nan balance", Input{Balance: math.NaN(), StopLossPercent: 1, RiskPercent: 1, CommissionPercent: 0.02}, "balance"},
		{"inf stop", Input{Balance: 1, StopLossPercent: math.Inf(1), RiskPercent: 1, CommissionPercent: 0.02}, "stop_loss_pct"},
		{"negative stop", Input{Balance: 1, StopLossPercent: -2, RiskPercent: 1, CommissionPercent: 0.02}, "stop_loss_pct"},
		{"negative risk", Input{Balance: 1, StopLossPercent: 1, RiskPercent: -1, CommissionPercent: 0.02}, "risk_pct"},
		{"negative commission", Input{Balance: 1, StopLossPercent: 1, RiskPercent: 1, CommissionPercent: -0.02}, "commission_pct"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, KindInvalid, Kind(err))
		})
	}
}

func TestCompute_LossInvariantAcrossChoices(t *testing.T) {
	balances := []float64{0, 0.01, 1, 999.99, 1000, 12345.678, 1e7}
	stops := []float64{0.1, 0.5, 1, 2, 3.3, 10, 50}
	choices := DefaultChoices(RiskVariantExtended)
	for _, bal := range balances {
		for _, stop := range stops {
			for _, risk := range choices.Risk {
				for _, tier := range choices.Commission {
					in := Input{Balance: bal, StopLossPercent: stop, RiskPercent: risk, CommissionPercent: tier.Percent}
					res, err := Compute(in)
					require.NoError(t, err)
					assert.Equal(t, -(risk/100)*bal, res.EstimatedLoss)
					assert.LessOrEqual(t, res.EstimatedLoss, 0.0)
					if bal > 0 {
						assert.Greater(t, res.PositionSize, 0.0)
					}
					// loss at the effective stop equals the risk budget
					assert.InDelta(t, res.RiskAmount, res.PositionSize*EffectiveStopPercent(stop, tier.Percent)/100, 1e-6*math.Max(1, res.RiskAmount))
				}
			}
		}
	}
}

func TestCompute_Idempotent(t *testing.T) {
	in := Input{Balance: 2500, StopLossPercent: 1.7, RiskPercent: 2, CommissionPercent: 0.05}
	first, err1 := Compute(in)
	second, err2 := Compute(in)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestCompute_ZeroBalance(t *testing.T) {
	res, err := Compute(Input{Balance: 0, StopLossPercent: 2, RiskPercent: 1, CommissionPercent: 0.02})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.PositionSize)
	assert.Equal(t, Display{PositionSize: "0.00", EstimatedLoss: "0.00"}, res.Display())
}
