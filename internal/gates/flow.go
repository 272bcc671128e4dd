package gates

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
)

// FlowGate determines whether capital flow is whale-driven and directionally
// consistent across the 24h and 7d CVD windows. Missing whale data defaults
// to RETAIL_DRIVEN: unknown flow is never assumed to be smart money.
type FlowGate struct {
	cfg   FlowConfig
	nowFn func() time.Time
}

// NewFlowGate creates the flow evaluator.
func NewFlowGate(cfg FlowConfig) *FlowGate {
	return &FlowGate{cfg: cfg, nowFn: time.Now}
}

// Evaluate is pure over the snapshot.
func (g *FlowGate) Evaluate(snap *domain.MarketSnapshot) *FlowVerdict {
	now := g.nowFn()
	v := &FlowVerdict{
		VerdictCore: VerdictCore{
			Gate:        domain.GateFlow,
			EvaluatedAt: now,
		},
		Direction: domain.FlowNeutral,
		Quality:   domain.FlowRetailDriven,
	}

	whale := snap.Whale
	if whale == nil {
		v.Status = domain.StatusFail
		v.Confidence = domain.ConfidenceLow
		v.DataFreshness = domain.FreshnessUnknown
		v.Note = "no whale flow data; treating flow as retail-driven"
		v.Conflicting = append(v.Conflicting,
			evidence("whale-flow", "large-trade feed unavailable for this cycle", now))
		return v
	}

	v.CVD24h = whale.CVD24h
	v.CVD7d = whale.CVD7d
	if snap.Quality.WhaleFresh {
		v.DataFreshness = domain.FreshnessCurrent
	} else {
		v.DataFreshness = domain.FreshnessStale
	}

	v.Direction, v.TimeframesAligned = g.direction(whale.CVD24h, whale.CVD7d)
	v.Quality = g.quality(whale.WhaleVolumeRatio)

	switch {
	case v.Direction == domain.FlowUnclear || v.Quality == domain.FlowRetailDriven:
		v.Status = domain.StatusFail
	case v.Quality == domain.FlowMixed || !v.TimeframesAligned:
		v.Status = domain.StatusWeakPass
	default:
		v.Status = domain.StatusPass
	}

	switch {
	case !snap.Quality.WhaleFresh || v.Quality == domain.FlowRetailDriven:
		v.Confidence = domain.ConfidenceLow
	case v.Quality == domain.FlowWhaleDriven && len(whale.RecentBubbles) > 0:
		v.Confidence = domain.ConfidenceHigh
	default:
		v.Confidence = domain.ConfidenceMedium
	}

	v.Note = fmt.Sprintf("%s flow, %s (whale ratio %.0f%%)",
		v.Direction, v.Quality, whale.WhaleVolumeRatio*100)

	v.Supporting = append(v.Supporting,
		evidence("whale-flow", fmt.Sprintf("24h CVD %+.1fM, 7d CVD %+.1fM", whale.CVD24h/1e6, whale.CVD7d/1e6), now))
	if len(whale.RecentBubbles) > 0 {
		v.Supporting = append(v.Supporting,
			evidence("whale-flow", fmt.Sprintf("%d recent large-trade prints", len(whale.RecentBubbles)), now))
	}
	if !v.TimeframesAligned {
		v.Conflicting = append(v.Conflicting,
			evidence("whale-flow", "24h and 7d CVD disagree in direction", now))
	}
	if v.Quality == domain.FlowRetailDriven {
		v.Conflicting = append(v.Conflicting,
			evidence("whale-flow", "volume is predominantly retail", now))
	}

	return v
}

// direction classifies the combined 24h/7d CVD signal. The second return is
// false when the two timeframes carry clearly signed, opposite readings.
func (g *FlowGate) direction(cvd24h, cvd7d float64) (domain.FlowDirection, bool) {
	signed24 := math.Abs(cvd24h) >= g.cfg.MinCVDMagnitudeUSD
	signed7 := math.Abs(cvd7d) >= g.cfg.MinCVDMagnitudeUSD

	if !signed24 && !signed7 {
		return domain.FlowNeutral, true
	}
	if signed24 != signed7 {
		// Only one window carries a real signal; follow it.
		c := cvd7d
		if signed24 {
			c = cvd24h
		}
		if c > 0 {
			return domain.FlowAccumulation, true
		}
		return domain.FlowDistribution, true
	}

	switch {
	case cvd24h > 0 && cvd7d > 0:
		return domain.FlowAccumulation, true
	case cvd24h < 0 && cvd7d < 0:
		return domain.FlowDistribution, true
	}

	// Opposite signs. If the smaller magnitude is insignificant relative to
	// the larger (typically a small 24h blip against the 7d trend), the larger
	// window wins; truly comparable magnitudes in opposite directions are
	// UNCLEAR, never averaged away.
	dominant := cvd7d
	smaller, larger := math.Abs(cvd24h), math.Abs(cvd7d)
	if smaller > larger {
		smaller, larger = larger, smaller
		dominant = cvd24h
	}
	if smaller < larger*g.cfg.TieBreakFraction {
		if dominant > 0 {
			return domain.FlowAccumulation, false
		}
		return domain.FlowDistribution, false
	}
	return domain.FlowUnclear, false
}

func (g *FlowGate) quality(whaleRatio float64) domain.FlowQuality {
	switch {
	case whaleRatio >= g.cfg.WhaleDrivenRatio:
		return domain.FlowWhaleDriven
	case whaleRatio <= g.cfg.RetailDrivenRatio:
		return domain.FlowRetailDriven
	default:
		return domain.FlowMixed
	}
}
