package gates

import (
	"fmt"
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
)

// ContextGate cross-checks price's spatial position against the flow
// direction. It is an alignment check, not a directional signal, and it runs
// last because it consumes the other three gates' outputs.
type ContextGate struct {
	cfg   ContextConfig
	nowFn func() time.Time
}

// NewContextGate creates the context evaluator.
func NewContextGate(cfg ContextConfig) *ContextGate {
	return &ContextGate{cfg: cfg, nowFn: time.Now}
}

// Evaluate is pure over the snapshot and the already-computed verdicts. It
// reads the other gates' fields but never re-derives or alters their statuses.
func (g *ContextGate) Evaluate(snap *domain.MarketSnapshot, regime *RegimeVerdict, flow *FlowVerdict, risk *RiskVerdict) *ContextVerdict {
	now := g.nowFn()
	v := &ContextVerdict{
		VerdictCore: VerdictCore{
			Gate:        domain.GateContext,
			EvaluatedAt: now,
		},
		Zone: domain.ZoneNeutral,
	}

	v.ReferenceBand, v.SyntheticBand = g.referenceBand(snap)
	v.BandPosition = g.bandPosition(v.ReferenceBand, snap.Price)
	v.Zone = g.zone(v.ReferenceBand, snap.Price, flow.Direction)
	v.Alignment = g.alignment(v.ReferenceBand, snap.Price, flow.Direction)

	switch {
	case snap.Whale == nil:
		v.DataFreshness = domain.FreshnessUnknown
	case snap.Quality.WhaleFresh:
		v.DataFreshness = domain.FreshnessCurrent
	default:
		v.DataFreshness = domain.FreshnessStale
	}

	atExtreme := v.BandPosition == domain.BandUpper || v.BandPosition == domain.BandLower
	flowSupports := flow.Status != domain.StatusFail &&
		flow.Direction != domain.FlowNeutral && flow.Direction != domain.FlowUnclear

	switch {
	case v.Alignment == domain.AlignmentMisaligned:
		v.Status = domain.StatusFail
		v.Note = fmt.Sprintf("price position %s contradicts %s flow", v.BandPosition, flow.Direction)
		v.Conflicting = append(v.Conflicting,
			evidence("whale-flow", "spatial position and flow direction disagree", now))
	case atExtreme && !flowSupports:
		v.Status = domain.StatusFail
		v.Note = fmt.Sprintf("price at %s without flow backing the move", v.BandPosition)
		v.Conflicting = append(v.Conflicting,
			evidence("whale-flow", "band extreme reached on unsupportive flow", now))
	case v.Alignment == domain.AlignmentNeutral || atExtreme:
		v.Status = domain.StatusWeakPass
		v.Note = fmt.Sprintf("price %s in %s, flow %s", v.BandPosition, v.Zone, flow.Direction)
	default:
		v.Status = domain.StatusPass
		v.Note = fmt.Sprintf("price %s aligns with %s flow in %s", v.BandPosition, flow.Direction, v.Zone)
	}

	switch {
	case snap.Whale == nil || !snap.Quality.WhaleFresh:
		v.Confidence = domain.ConfidenceLow
	case v.Alignment == domain.AlignmentAligned:
		v.Confidence = domain.ConfidenceHigh
	default:
		v.Confidence = domain.ConfidenceMedium
	}

	v.Supporting = append(v.Supporting,
		evidence("whale-flow", fmt.Sprintf("reference band %.0f-%.0f (synthetic=%t)",
			v.ReferenceBand.Lower, v.ReferenceBand.Upper, v.SyntheticBand), now))

	return v
}

// referenceBand prefers whale VWAP bands, falls back to a band around the
// VWAP itself, and finally to a synthetic band around price.
func (g *ContextGate) referenceBand(snap *domain.MarketSnapshot) (domain.PriceRange, bool) {
	if w := snap.Whale; w != nil {
		if w.VWAPBands != nil && w.VWAPBands.Width() > 0 {
			return *w.VWAPBands, false
		}
		if w.VWAP > 0 {
			half := w.VWAP * g.cfg.SyntheticBandPct / 100
			return domain.PriceRange{Lower: w.VWAP - half, Upper: w.VWAP + half}, false
		}
	}
	half := snap.Price * g.cfg.SyntheticBandPct / 100
	return domain.PriceRange{Lower: snap.Price - half, Upper: snap.Price + half}, true
}

func (g *ContextGate) bandPosition(band domain.PriceRange, price float64) domain.BandPosition {
	pos := g.fraction(band, price)
	switch {
	case pos >= 1:
		return domain.BandUpper
	case pos <= 0:
		return domain.BandLower
	case pos > g.cfg.MidSplit+g.cfg.MidTolerance:
		return domain.BandAboveMid
	case pos < g.cfg.MidSplit-g.cfg.MidTolerance:
		return domain.BandBelowMid
	default:
		return domain.BandAtMid
	}
}

func (g *ContextGate) zone(band domain.PriceRange, price float64, flow domain.FlowDirection) domain.MarketZone {
	pos := g.fraction(band, price)
	switch {
	case pos < g.cfg.MidSplit && flow == domain.FlowAccumulation:
		return domain.ZoneAccumulation
	case pos > g.cfg.MidSplit && flow == domain.FlowDistribution:
		return domain.ZoneDistribution
	default:
		return domain.ZoneNeutral
	}
}

// alignment compares the half of the band price sits in with the flow
// direction. Accumulation belongs in the lower half and distribution in the
// upper; the direct contradictions are MISALIGNED.
func (g *ContextGate) alignment(band domain.PriceRange, price float64, flow domain.FlowDirection) domain.ZoneAlignment {
	if flow != domain.FlowAccumulation && flow != domain.FlowDistribution {
		return domain.AlignmentNeutral
	}
	pos := g.fraction(band, price)
	lowerHalf := pos < g.cfg.MidSplit-g.cfg.MidTolerance
	upperHalf := pos > g.cfg.MidSplit+g.cfg.MidTolerance
	switch {
	case lowerHalf && flow == domain.FlowAccumulation,
		upperHalf && flow == domain.FlowDistribution:
		return domain.AlignmentAligned
	case lowerHalf && flow == domain.FlowDistribution,
		upperHalf && flow == domain.FlowAccumulation:
		return domain.AlignmentMisaligned
	default:
		return domain.AlignmentNeutral
	}
}

func (g *ContextGate) fraction(band domain.PriceRange, price float64) float64 {
	if band.Width() <= 0 {
		return g.cfg.MidSplit
	}
	return (price - band.Lower) / band.Width()
}
