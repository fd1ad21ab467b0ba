package sizing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultChoices(t *testing.T) {
	std := DefaultChoices(RiskVariantStandard)
	assert.Equal(t, []float64{0.25, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 5}, std.Risk)
	assert.Len(t, std.Commission, 2)
	assert.Equal(t, 0.5, std.DefaultRisk)
	assert.Equal(t, "maker", std.DefaultCommission)
	require.NoError(t, std.Validate())

	ext := DefaultChoices(RiskVariantExtended)
	assert.Len(t, ext.Risk, 15)
	assert.True(t, ext.RiskAllowed(10))
	assert.False(t, std.RiskAllowed(10))
}

func TestParseRiskVariant(t *testing.T) {
	assert.Equal(t, RiskVariantExtended, ParseRiskVariant(" Extended "))
	assert.Equal(t, RiskVariantStandard, ParseRiskVariant(""))
	assert.Equal(t, RiskVariantStandard, ParseRiskVariant("bogus"))
}

func TestChoices_Tier(t *testing.T) {
	c := DefaultChoices(RiskVariantStandard)

	tier, err := c.Tier("TAKER")
	require.NoError(t, err)
	assert.Equal(t, 0.05, tier.Percent)

	tier, err = c.Tier("0.02")
	require.NoError(t, err)
	assert.Equal(t, "maker", tier.Name)

	tier, err = c.Tier("")
	require.NoError(t, err)
	assert.Equal(t, "maker", tier.Name)

	_, err = c.Tier("vip")
	assert.True(t, errors.Is(err, ErrOptionNotOffered))
	assert.Equal(t, KindNotOffered, Kind(err))
}

func TestChoices_CheckRisk(t *testing.T) {
	c := DefaultChoices(RiskVariantStandard)
	assert.NoError(t, c.CheckRisk(1.5))
	assert.ErrorIs(t, c.CheckRisk(0.3), ErrOptionNotOffered)
}

func TestChoices_NormalizeAndValidate(t *testing.T) {
	c := Choices{
		Risk:              []float64{2, 1, 2, 0.5},
		Commission:        []CommissionTier{{Name: " VIP ", Percent: 0.01}, {Name: "vip", Percent: 0.03}},
		DefaultRisk:       7,
		DefaultCommission: "missing",
	}.Normalize()
	assert.Equal(t, []float64{0.5, 1, 2}, c.Risk)
	require.Len(t, c.Commission, 1)
	assert.Equal(t, "vip", c.Commission[0].Name)
	assert.Equal(t, "Vip 0.01%", c.Commission[0].Label)
	assert.Equal(t, 0.5, c.DefaultRisk)
	assert.Equal(t, "vip", c.DefaultCommission)
	require.NoError(t, c.Validate())

	assert.Error(t, Choices{}.Validate())
	assert.Error(t, Choices{Risk: []float64{0}, Commission: []CommissionTier{TierMaker}}.Validate())
	assert.Error(t, Choices{Risk: []float64{1}, Commission: []CommissionTier{{Name: "x", Percent: -1}}}.Validate())
}
