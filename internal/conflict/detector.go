package conflict

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/gates"
)

// Type names one known disagreement pattern between two gate outputs.
type Type string

const (
	TypeRegimeVsFlow      Type = "REGIME_VS_FLOW"
	TypeFlowVsRisk        Type = "FLOW_VS_RISK"
	TypeRiskVsContext     Type = "RISK_VS_CONTEXT"
	TypeFlowTimeframe     Type = "FLOW_TIMEFRAME_DIVERGENCE"
	TypeZoneContradiction Type = "ZONE_CONTRADICTION"
)

// Endpoint is one side of a detected conflict.
type Endpoint struct {
	Layer      domain.GateName        `json:"layer"`
	Signal     string                 `json:"signal"`
	Confidence domain.ConfidenceLevel `json:"confidence"`
}

// LayerConflict describes one disagreement between two gate outputs. Conflicts
// are additive evidence: they are reported, never merged, and never used to
// flip a gate's status.
type LayerConflict struct {
	Type        Type                    `json:"type"`
	LayerA      Endpoint                `json:"layer_a"`
	LayerB      Endpoint                `json:"layer_b"`
	Severity    domain.ConflictSeverity `json:"severity"`
	Description string                  `json:"description"`
	DetectedAt  time.Time               `json:"detected_at"`
}

// Detector enumerates the named disagreement patterns. Each check is an
// independent pure predicate over already-computed verdicts; the detector
// returns every conflict that fired, in check order, without deduplication.
type Detector struct {
	minCVDMagnitudeUSD float64
	nowFn              func() time.Time
}

// NewDetector creates a detector. The CVD magnitude floor mirrors the flow
// gate's near-zero threshold for the timeframe-divergence check.
func NewDetector(minCVDMagnitudeUSD float64) *Detector {
	return &Detector{minCVDMagnitudeUSD: minCVDMagnitudeUSD, nowFn: time.Now}
}

// Detect runs all checks against one cycle's verdicts. The input set is read
// but never mutated.
func (d *Detector) Detect(set *gates.Set) []LayerConflict {
	now := d.nowFn()
	var conflicts []LayerConflict

	checks := []func(*gates.Set, time.Time) *LayerConflict{
		d.regimeVsFlow,
		d.flowVsRisk,
		d.riskVsContext,
		d.flowTimeframes,
		d.zoneContradiction,
	}
	for _, check := range checks {
		if c := check(set, now); c != nil {
			conflicts = append(conflicts, *c)
		}
	}
	return conflicts
}

// Summarize returns the conflicts ordered by severity, HIGH first. The input
// slice is left untouched.
func Summarize(conflicts []LayerConflict) []LayerConflict {
	out := make([]LayerConflict, len(conflicts))
	copy(out, conflicts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

// HasSeverity reports whether any conflict carries the given severity.
func HasSeverity(conflicts []LayerConflict, severity domain.ConflictSeverity) bool {
	for _, c := range conflicts {
		if c.Severity == severity {
			return true
		}
	}
	return false
}

// regimeVsFlow: a long-vol dealer regime with distribution flow is the sharper
// disagreement; short-vol with accumulation is the milder mirror.
func (d *Detector) regimeVsFlow(set *gates.Set, now time.Time) *LayerConflict {
	regime, flow := set.Regime, set.Flow
	switch {
	case regime.VolStance == domain.VolStanceLong && flow.Direction == domain.FlowDistribution:
		return &LayerConflict{
			Type:        TypeRegimeVsFlow,
			LayerA:      endpoint(regime.VerdictCore, fmt.Sprintf("vol stance %s", regime.VolStance)),
			LayerB:      endpoint(flow.VerdictCore, fmt.Sprintf("flow %s", flow.Direction)),
			Severity:    domain.SeverityHigh,
			Description: "options positioning expects movement while whales are distributing",
			DetectedAt:  now,
		}
	case regime.VolStance == domain.VolStanceShort && flow.Direction == domain.FlowAccumulation:
		return &LayerConflict{
			Type:        TypeRegimeVsFlow,
			LayerA:      endpoint(regime.VerdictCore, fmt.Sprintf("vol stance %s", regime.VolStance)),
			LayerB:      endpoint(flow.VerdictCore, fmt.Sprintf("flow %s", flow.Direction)),
			Severity:    domain.SeverityMedium,
			Description: "options positioning expects ranging while whales are accumulating",
			DetectedAt:  now,
		}
	}
	return nil
}

// flowVsRisk: flow pressing into already-crowded positioning.
func (d *Detector) flowVsRisk(set *gates.Set, now time.Time) *LayerConflict {
	flow, risk := set.Flow, set.Risk
	contradicts := (flow.Direction == domain.FlowAccumulation && risk.FundingBias == domain.BiasLongCrowded) ||
		(flow.Direction == domain.FlowDistribution && risk.FundingBias == domain.BiasShortCrowded)
	if !contradicts {
		return nil
	}
	return &LayerConflict{
		Type:        TypeFlowVsRisk,
		LayerA:      endpoint(flow.VerdictCore, fmt.Sprintf("flow %s", flow.Direction)),
		LayerB:      endpoint(risk.VerdictCore, fmt.Sprintf("funding %s", risk.FundingBias)),
		Severity:    domain.SeverityMedium,
		Description: "whale flow presses in the same direction positioning is already crowded",
		DetectedAt:  now,
	}
}

// riskVsContext: uncrowded positioning at a band extreme is informational
// only; it can precede a squeeze or reversion.
func (d *Detector) riskVsContext(set *gates.Set, now time.Time) *LayerConflict {
	risk, ctx := set.Risk, set.Context
	atExtreme := ctx.BandPosition == domain.BandUpper || ctx.BandPosition == domain.BandLower
	if risk.Crowding != domain.CrowdingLowLevel || !atExtreme {
		return nil
	}
	return &LayerConflict{
		Type:        TypeRiskVsContext,
		LayerA:      endpoint(risk.VerdictCore, fmt.Sprintf("crowding %s", risk.Crowding)),
		LayerB:      endpoint(ctx.VerdictCore, fmt.Sprintf("price at %s", ctx.BandPosition)),
		Severity:    domain.SeverityLow,
		Description: "price at a band extreme with uncrowded positioning",
		DetectedAt:  now,
	}
}

// flowTimeframes: 24h and 7d CVD disagree while both are clearly signed.
func (d *Detector) flowTimeframes(set *gates.Set, now time.Time) *LayerConflict {
	flow := set.Flow
	signed24 := math.Abs(flow.CVD24h) >= d.minCVDMagnitudeUSD
	signed7 := math.Abs(flow.CVD7d) >= d.minCVDMagnitudeUSD
	if !signed24 || !signed7 || (flow.CVD24h > 0) == (flow.CVD7d > 0) {
		return nil
	}
	return &LayerConflict{
		Type:        TypeFlowTimeframe,
		LayerA:      endpoint(flow.VerdictCore, fmt.Sprintf("24h CVD %+.1fM", flow.CVD24h/1e6)),
		LayerB:      endpoint(flow.VerdictCore, fmt.Sprintf("7d CVD %+.1fM", flow.CVD7d/1e6)),
		Severity:    domain.SeverityMedium,
		Description: "short and long CVD windows point in opposite directions",
		DetectedAt:  now,
	}
}

// zoneContradiction: the context zone naming one direction while flow names
// the other. Unreachable when both come from the same consistent cycle, but
// checked independently all the same.
func (d *Detector) zoneContradiction(set *gates.Set, now time.Time) *LayerConflict {
	flow, ctx := set.Flow, set.Context
	contradicts := (ctx.Zone == domain.ZoneAccumulation && flow.Direction == domain.FlowDistribution) ||
		(ctx.Zone == domain.ZoneDistribution && flow.Direction == domain.FlowAccumulation)
	if !contradicts {
		return nil
	}
	return &LayerConflict{
		Type:        TypeZoneContradiction,
		LayerA:      endpoint(ctx.VerdictCore, fmt.Sprintf("zone %s", ctx.Zone)),
		LayerB:      endpoint(flow.VerdictCore, fmt.Sprintf("flow %s", flow.Direction)),
		Severity:    domain.SeverityHigh,
		Description: "context zone and flow direction name opposite regimes",
		DetectedAt:  now,
	}
}

func endpoint(core gates.VerdictCore, signal string) Endpoint {
	return Endpoint{
		Layer:      core.Gate,
		Signal:     signal,
		Confidence: core.Confidence,
	}
}
