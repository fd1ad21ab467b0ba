package sizing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RiskVariant selects one of the built-in risk choice lists.
type RiskVariant string

const (
	RiskVariantStandard RiskVariant = "standard"
	RiskVariantExtended RiskVariant = "extended"
)

// CommissionTier is one selectable exchange fee rate, charged per side.
type CommissionTier struct {
	Name    string  `json:"name" yaml:"name"`
	Label   string  `json:"label" yaml:"label"`
	Percent float64 `json:"percent" yaml:"percent"`
}

var (
	TierMaker = CommissionTier{Name: "maker", Label: "Maker 0.02%", Percent: 0.02}
	TierTaker = CommissionTier{Name: "taker", Label: "Taker 0.05%", Percent: 0.05}
)

const (
	DefaultRiskPercent = 0.5
	DefaultCommission  = "maker"
)

var standardRisk = []float64{0.25, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0, 5.0}

var extendedRisk = []float64{6.0, 7.0, 8.0, 9.0, 10.0}

// Choices is the enumerated option set offered by the form.
type Choices struct {
	Risk              []float64        `json:"risk"`
	Commission        []CommissionTier `json:"commission"`
	DefaultRisk       float64          `json:"default_risk"`
	DefaultCommission string           `json:"default_commission"`
}

// ParseRiskVariant maps a config value onto a variant; unknown values fall back to standard.
func ParseRiskVariant(s string) RiskVariant {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extended", "ext", "full":
		return RiskVariantExtended
	default:
		return RiskVariantStandard
	}
}

// DefaultChoices returns the built-in option set for variant.
func DefaultChoices(variant RiskVariant) Choices {
	risk := append([]float64(nil), standardRisk...)
	if variant == RiskVariantExtended {
		risk = append(risk, extendedRisk...)
	}
	return Choices{
		Risk:              risk,
		Commission:        []CommissionTier{TierMaker, TierTaker},
		DefaultRisk:       DefaultRiskPercent,
		DefaultCommission: DefaultCommission,
	}
}

// Normalize sorts and de-duplicates the risk list, trims tier names and
// fills defaults that point outside the lists.
func (c Choices) Normalize() Choices {
	out := Choices{DefaultRisk: c.DefaultRisk, DefaultCommission: strings.ToLower(strings.TrimSpace(c.DefaultCommission))}
	seen := make(map[float64]bool, len(c.Risk))
	for _, v := range c.Risk {
		if seen[v] {
			continue
		}
		seen[v] = true
		out.Risk = append(out.Risk, v)
	}
	sort.Float64s(out.Risk)
	names := make(map[string]bool, len(c.Commission))
	for _, tier := range c.Commission {
		tier.Name = strings.ToLower(strings.TrimSpace(tier.Name))
		if tier.Name == "" || names[tier.Name] {
			continue
		}
		names[tier.Name] = true
		if strings.TrimSpace(tier.Label) == "" {
			tier.Label = fmt.Sprintf("%s %s%%", strings.ToUpper(tier.Name[:1])+tier.Name[1:], strconv.FormatFloat(tier.Percent, 'f', -1, 64))
		}
		out.Commission = append(out.Commission, tier)
	}
	if len(out.Risk) > 0 && !out.RiskAllowed(out.DefaultRisk) {
		out.DefaultRisk = out.Risk[0]
		if out.RiskAllowed(DefaultRiskPercent) {
			out.DefaultRisk = DefaultRiskPercent
		}
	}
	if len(out.Commission) > 0 {
		if _, err := out.Tier(out.DefaultCommission); err != nil {
			out.DefaultCommission = out.Commission[0].Name
		}
	}
	return out
}

// Validate checks that the set can back a form.
func (c Choices) Validate() error {
	if len(c.Risk) == 0 {
		return fmt.Errorf("risk choices cannot be empty")
	}
	for _, v := range c.Risk {
		if math.IsNaN(v) || v <= 0 || v > 100 {
			return fmt.Errorf("risk choice %v must be in (0, 100]", v)
		}
	}
	if len(c.Commission) == 0 {
		return fmt.Errorf("commission choices cannot be empty")
	}
	for _, tier := range c.Commission {
		if strings.TrimSpace(tier.Name) == "" {
			return fmt.Errorf("commission tier requires a name")
		}
		if math.IsNaN(tier.Percent) || tier.Percent < 0 {
			return fmt.Errorf("commission tier %s percent must be >= 0", tier.Name)
		}
	}
	return nil
}

// RiskAllowed reports whether v is one of the offered risk percentages.
func (c Choices) RiskAllowed(v float64) bool {
	for _, r := range c.Risk {
		if r == v {
			return true
		}
	}
	return false
}

// CheckRisk returns ErrOptionNotOffered when v is not an offered risk percentage.
func (c Choices) CheckRisk(v float64) error {
	if c.RiskAllowed(v) {
		return nil
	}
	return fmt.Errorf("%w: risk %v%%", ErrOptionNotOffered, v)
}

// Tier resolves a commission tier by name ("maker") or by its percent ("0.05").
func (c Choices) Tier(key string) (CommissionTier, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		k = c.DefaultCommission
	}
	for _, tier := range c.Commission {
		if tier.Name == k {
			return tier, nil
		}
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(k, "%"), 64); err == nil {
		for _, tier := range c.Commission {
			if tier.Percent == v {
				return tier, nil
			}
		}
	}
	return CommissionTier{}, fmt.Errorf("%w: commission %q", ErrOptionNotOffered, key)
}

// Clone returns a deep copy.
func (c Choices) Clone() Choices {
	out := c
	out.Risk = append([]float64(nil), c.Risk...)
	out.Commission = append([]CommissionTier(nil), c.Commission...)
	return out
}
