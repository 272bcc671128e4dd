package gates

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
)

// RiskGate assesses positioning crowding and price stress. Its FAIL is the
// Tier-1 constraint of the whole pipeline: it alone forces NO_TRADE and no
// other gate, caller, or downstream layer may override it. The coordinator
// guarantees exchange metrics are present before this gate runs; every other
// data gap degrades conservatively instead of erroring.
type RiskGate struct {
	cfg   RiskConfig
	nowFn func() time.Time
}

// NewRiskGate creates the risk evaluator.
func NewRiskGate(cfg RiskConfig) *RiskGate {
	return &RiskGate{cfg: cfg, nowFn: time.Now}
}

// Evaluate is pure over the snapshot.
func (g *RiskGate) Evaluate(snap *domain.MarketSnapshot) *RiskVerdict {
	now := g.nowFn()
	v := &RiskVerdict{
		VerdictCore: VerdictCore{
			Gate:        domain.GateRisk,
			EvaluatedAt: now,
		},
	}

	ex := snap.Exchange
	if ex == nil {
		// The coordinator rejects such snapshots before evaluation; if one
		// slips through anyway the only acceptable answer is a hard FAIL.
		v.Status = domain.StatusFail
		v.Confidence = domain.ConfidenceLow
		v.DataFreshness = domain.FreshnessUnknown
		v.Crowding = domain.CrowdingExtreme
		v.StressRange = domain.StressInside
		v.FundingBias = domain.BiasBalanced
		v.Note = "exchange metrics missing; risk cannot be assessed"
		return v
	}

	v.FundingRate = ex.FundingRate
	v.FundingBias = g.fundingBias(ex.FundingRate)
	v.Crowding = g.crowding(ex.FundingRate)
	v.StressRange = g.stressRange(snap)
	if snap.Quality.ExchangeFresh {
		v.DataFreshness = domain.FreshnessCurrent
	} else {
		v.DataFreshness = domain.FreshnessStale
	}

	switch {
	case v.Crowding == domain.CrowdingExtreme || v.StressRange == domain.StressInside:
		v.Status = domain.StatusFail
	case v.Crowding == domain.CrowdingElevated || v.StressRange == domain.StressAtBoundary:
		v.Status = domain.StatusWeakPass
	default:
		v.Status = domain.StatusPass
	}

	switch {
	case !snap.Quality.ExchangeFresh:
		v.Confidence = domain.ConfidenceLow
	case len(ex.LiquidationLevels) > 0 && snap.Options != nil && snap.Options.ComfortRange != nil:
		v.Confidence = domain.ConfidenceHigh
	default:
		v.Confidence = domain.ConfidenceMedium
	}

	v.Note = fmt.Sprintf("funding %+.3f%% (%s, crowding %s), stress range %s",
		ex.FundingRate, v.FundingBias, v.Crowding, v.StressRange)

	v.Supporting = append(v.Supporting,
		evidence("exchange", fmt.Sprintf("funding %+.3f%%, OI change %+.1f%% over 24h", ex.FundingRate, ex.OIChange24h), now))
	if v.Crowding == domain.CrowdingExtreme || v.Crowding == domain.CrowdingElevated {
		v.Conflicting = append(v.Conflicting,
			evidence("exchange", fmt.Sprintf("positioning is %s via funding", v.Crowding), now))
	}
	if v.StressRange == domain.StressInside {
		v.Conflicting = append(v.Conflicting,
			evidence("options", "price is in the stress zone outside the comfort range", now))
	}
	if len(ex.LiquidationLevels) > 0 {
		v.Supporting = append(v.Supporting,
			evidence("exchange", fmt.Sprintf("%d liquidation clusters mapped", len(ex.LiquidationLevels)), now))
	}

	return v
}

func (g *RiskGate) fundingBias(funding float64) domain.FundingBias {
	switch {
	case funding > g.cfg.CrowdedFundingPct:
		return domain.BiasLongCrowded
	case funding < -g.cfg.CrowdedFundingPct:
		return domain.BiasShortCrowded
	default:
		return domain.BiasBalanced
	}
}

func (g *RiskGate) crowding(funding float64) domain.CrowdingLevel {
	abs := math.Abs(funding)
	switch {
	case abs > g.cfg.ExtremeFundingPct:
		return domain.CrowdingExtreme
	case abs > g.cfg.CrowdedFundingPct:
		return domain.CrowdingElevated
	case abs > g.cfg.NormalFundingPct:
		return domain.CrowdingNormal
	default:
		return domain.CrowdingLowLevel
	}
}

// stressRange defaults to INSIDE when comfort-range data is absent. Safety
// cannot be assumed without data; this conservative default is intentional.
func (g *RiskGate) stressRange(snap *domain.MarketSnapshot) domain.StressRangeStatus {
	if snap.Options == nil || snap.Options.ComfortRange == nil {
		return domain.StressInside
	}
	switch pricePositionIn(*snap.Options.ComfortRange, snap.Price, g.cfg.BoundaryFraction) {
	case domain.PositionInStress, domain.PositionUnknown:
		return domain.StressInside
	case domain.PositionAtBoundary:
		return domain.StressAtBoundary
	default:
		return domain.StressOutside
	}
}
