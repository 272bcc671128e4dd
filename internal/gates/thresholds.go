package gates

import "fmt"

// Config contains the tuning thresholds for all four gates. Every numeric
// constant that is domain tuning rather than structure lives here so it can be
// overridden from YAML without touching evaluator code.
type Config struct {
	Regime  RegimeConfig  `yaml:"regime"`
	Flow    FlowConfig    `yaml:"flow"`
	Risk    RiskConfig    `yaml:"risk"`
	Context ContextConfig `yaml:"context"`
}

// RegimeConfig tunes the options-positioning gate.
type RegimeConfig struct {
	// BoundaryFraction of the comfort-range width that counts as AT_BOUNDARY.
	BoundaryFraction float64 `yaml:"boundary_fraction"` // 0.10

	// MinConsistentExpiries required for HIGH confidence.
	MinConsistentExpiries int `yaml:"min_consistent_expiries"` // 2
}

// FlowConfig tunes the whale order-flow gate.
type FlowConfig struct {
	// WhaleDrivenRatio is the whale/total volume ratio at or above which flow
	// counts as WHALE_DRIVEN.
	WhaleDrivenRatio float64 `yaml:"whale_driven_ratio"` // 0.30

	// RetailDrivenRatio is the ratio at or below which flow counts as
	// RETAIL_DRIVEN.
	RetailDrivenRatio float64 `yaml:"retail_driven_ratio"` // 0.10

	// TieBreakFraction: when 24h and 7d CVD disagree in sign, a 24h magnitude
	// below this fraction of the 7d magnitude is treated as insignificant and
	// the 7d sign wins.
	TieBreakFraction float64 `yaml:"tie_break_fraction"` // 0.10

	// MinCVDMagnitudeUSD below which a CVD reading counts as near-zero
	// (unsigned) for direction and timeframe-divergence purposes.
	MinCVDMagnitudeUSD float64 `yaml:"min_cvd_magnitude_usd"` // 100_000
}

// RiskConfig tunes the crowding/stress gate. Risk FAIL is a Tier-1 constraint:
// it forces NO_TRADE and nothing downstream may override it.
type RiskConfig struct {
	// Funding-rate thresholds in percent (0.05 == 0.05%).
	CrowdedFundingPct float64 `yaml:"crowded_funding_pct"` // 0.05
	ExtremeFundingPct float64 `yaml:"extreme_funding_pct"` // 0.10
	NormalFundingPct  float64 `yaml:"normal_funding_pct"`  // 0.01

	// BoundaryFraction of comfort-range width that counts as AT_BOUNDARY.
	BoundaryFraction float64 `yaml:"boundary_fraction"` // 0.10
}

// ContextConfig tunes the spatial alignment gate.
type ContextConfig struct {
	// SyntheticBandPct is the half-width, in percent of price, of the fallback
	// reference band used when whale VWAP data is unavailable.
	SyntheticBandPct float64 `yaml:"synthetic_band_pct"` // 3.0

	// MidSplit is the fractional split point between the lower and upper halves
	// of the reference band.
	MidSplit float64 `yaml:"mid_split"` // 0.5

	// MidTolerance is the fractional distance from the split point that still
	// counts as AT_MID.
	MidTolerance float64 `yaml:"mid_tolerance"` // 0.05
}

// DefaultConfig returns the production gate thresholds.
func DefaultConfig() *Config {
	return &Config{
		Regime: RegimeConfig{
			BoundaryFraction:      0.10,
			MinConsistentExpiries: 2,
		},
		Flow: FlowConfig{
			WhaleDrivenRatio:   0.30,
			RetailDrivenRatio:  0.10,
			TieBreakFraction:   0.10,
			MinCVDMagnitudeUSD: 100_000,
		},
		Risk: RiskConfig{
			CrowdedFundingPct: 0.05,
			ExtremeFundingPct: 0.10,
			NormalFundingPct:  0.01,
			BoundaryFraction:  0.10,
		},
		Context: ContextConfig{
			SyntheticBandPct: 3.0,
			MidSplit:         0.5,
			MidTolerance:     0.05,
		},
	}
}

// Validate rejects contradictory thresholds. Called once at startup; a failure
// here is a hard error, unlike data-quality gaps which only degrade verdicts.
func (c *Config) Validate() error {
	if c.Regime.BoundaryFraction <= 0 || c.Regime.BoundaryFraction >= 0.5 {
		return fmt.Errorf("regime.boundary_fraction %.3f must be in (0, 0.5)", c.Regime.BoundaryFraction)
	}
	if c.Regime.MinConsistentExpiries < 1 {
		return fmt.Errorf("regime.min_consistent_expiries %d must be >= 1", c.Regime.MinConsistentExpiries)
	}
	if c.Flow.WhaleDrivenRatio <= 0 || c.Flow.WhaleDrivenRatio > 1 {
		return fmt.Errorf("flow.whale_driven_ratio %.3f must be in (0, 1]", c.Flow.WhaleDrivenRatio)
	}
	if c.Flow.RetailDrivenRatio < 0 || c.Flow.RetailDrivenRatio >= c.Flow.WhaleDrivenRatio {
		return fmt.Errorf("flow.retail_driven_ratio %.3f must be in [0, whale_driven_ratio)", c.Flow.RetailDrivenRatio)
	}
	if c.Flow.TieBreakFraction <= 0 || c.Flow.TieBreakFraction >= 1 {
		return fmt.Errorf("flow.tie_break_fraction %.3f must be in (0, 1)", c.Flow.TieBreakFraction)
	}
	if c.Flow.MinCVDMagnitudeUSD < 0 {
		return fmt.Errorf("flow.min_cvd_magnitude_usd %.0f must be >= 0", c.Flow.MinCVDMagnitudeUSD)
	}
	if c.Risk.NormalFundingPct <= 0 {
		return fmt.Errorf("risk.normal_funding_pct %.3f must be > 0", c.Risk.NormalFundingPct)
	}
	if c.Risk.CrowdedFundingPct <= c.Risk.NormalFundingPct {
		return fmt.Errorf("risk.crowded_funding_pct %.3f must exceed normal_funding_pct %.3f",
			c.Risk.CrowdedFundingPct, c.Risk.NormalFundingPct)
	}
	if c.Risk.ExtremeFundingPct <= c.Risk.CrowdedFundingPct {
		return fmt.Errorf("risk.extreme_funding_pct %.3f must exceed crowded_funding_pct %.3f",
			c.Risk.ExtremeFundingPct, c.Risk.CrowdedFundingPct)
	}
	if c.Risk.BoundaryFraction <= 0 || c.Risk.BoundaryFraction >= 0.5 {
		return fmt.Errorf("risk.boundary_fraction %.3f must be in (0, 0.5)", c.Risk.BoundaryFraction)
	}
	if c.Context.SyntheticBandPct <= 0 {
		return fmt.Errorf("context.synthetic_band_pct %.2f must be > 0", c.Context.SyntheticBandPct)
	}
	if c.Context.MidSplit <= 0 || c.Context.MidSplit >= 1 {
		return fmt.Errorf("context.mid_split %.2f must be in (0, 1)", c.Context.MidSplit)
	}
	if c.Context.MidTolerance < 0 || c.Context.MidTolerance >= 0.5 {
		return fmt.Errorf("context.mid_tolerance %.2f must be in [0, 0.5)", c.Context.MidTolerance)
	}
	return nil
}
