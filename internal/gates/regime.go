package gates

import (
	"fmt"
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
)

// RegimeGate establishes macro market context from options positioning.
// Missing options data degrades to FAIL with LOW confidence rather than
// erroring: an absent regime signal is a designed degraded mode.
type RegimeGate struct {
	cfg   RegimeConfig
	nowFn func() time.Time
}

// NewRegimeGate creates the regime evaluator.
func NewRegimeGate(cfg RegimeConfig) *RegimeGate {
	return &RegimeGate{cfg: cfg, nowFn: time.Now}
}

// Evaluate is pure over the snapshot: no I/O, no mutation, no error path.
func (g *RegimeGate) Evaluate(snap *domain.MarketSnapshot) *RegimeVerdict {
	now := g.nowFn()
	v := &RegimeVerdict{
		VerdictCore: VerdictCore{
			Gate:        domain.GateRegime,
			EvaluatedAt: now,
		},
		VolStance:     domain.VolStanceUnclear,
		PricePosition: domain.PositionUnknown,
	}

	opts := snap.Options
	if opts == nil {
		v.Status = domain.StatusFail
		v.Confidence = domain.ConfidenceLow
		v.DataFreshness = domain.FreshnessUnknown
		v.Note = "no options positioning data; regime cannot be established"
		v.Conflicting = append(v.Conflicting,
			evidence("options", "options feed unavailable for this cycle", now))
		return v
	}

	v.VolStance = opts.VolStance
	v.ComfortRange = opts.ComfortRange
	if snap.Quality.OptionsFresh {
		v.DataFreshness = domain.FreshnessCurrent
	} else {
		v.DataFreshness = domain.FreshnessStale
	}

	// No usable regime signal: unclear stance or no comfort range.
	if opts.VolStance == domain.VolStanceUnclear {
		v.Status = domain.StatusFail
		v.Confidence = domain.ConfidenceLow
		v.Note = "options vol stance unclear; no usable regime signal"
		v.Conflicting = append(v.Conflicting,
			evidence("options", "dealer vol positioning is ambiguous", now))
		return v
	}
	// A degenerate range classifies nothing, so it is as unusable as no
	// range at all.
	if opts.ComfortRange == nil || opts.ComfortRange.Width() <= 0 {
		v.Status = domain.StatusFail
		v.Confidence = g.confidence(snap, opts)
		v.Note = fmt.Sprintf("%s stance present but no usable comfort range; regime unusable", opts.VolStance)
		v.Conflicting = append(v.Conflicting,
			evidence("options", "comfort price range unavailable or degenerate", now))
		return v
	}

	v.PricePosition = pricePositionIn(*opts.ComfortRange, snap.Price, g.cfg.BoundaryFraction)
	v.Confidence = g.confidence(snap, opts)

	switch v.PricePosition {
	case domain.PositionUnknown:
		v.Status = domain.StatusFail
		v.Note = "price position against the comfort range could not be classified"
		v.Conflicting = append(v.Conflicting,
			evidence("options", "price position unknown", now))
	case domain.PositionInStress:
		v.Status = domain.StatusWeakPass
		v.Note = fmt.Sprintf("%s regime holds but price %.0f sits outside the comfort range %.0f-%.0f",
			opts.VolStance, snap.Price, opts.ComfortRange.Lower, opts.ComfortRange.Upper)
		v.Conflicting = append(v.Conflicting,
			evidence("options", "price outside dealer comfort range", now))
	case domain.PositionAtBoundary:
		v.Status = domain.StatusWeakPass
		v.Note = fmt.Sprintf("%s regime holds; price %.0f is testing a comfort-range edge",
			opts.VolStance, snap.Price)
		v.Conflicting = append(v.Conflicting,
			evidence("options", "price within boundary band of comfort range edge", now))
	default:
		v.Status = domain.StatusPass
		v.Note = fmt.Sprintf("%s regime with price %.0f inside comfort range %.0f-%.0f",
			opts.VolStance, snap.Price, opts.ComfortRange.Lower, opts.ComfortRange.Upper)
	}

	v.Supporting = append(v.Supporting,
		evidence("options", fmt.Sprintf("vol stance %s across %d tracked expiries", opts.VolStance, len(opts.KeyExpiries)), now))
	if opts.ComfortRange != nil {
		v.Supporting = append(v.Supporting,
			evidence("options", fmt.Sprintf("comfort range %.0f-%.0f", opts.ComfortRange.Lower, opts.ComfortRange.Upper), now))
	}

	return v
}

func (g *RegimeGate) confidence(snap *domain.MarketSnapshot, opts *domain.OptionsMetrics) domain.ConfidenceLevel {
	if !snap.Quality.OptionsFresh || opts.VolStance == domain.VolStanceUnclear {
		return domain.ConfidenceLow
	}
	if opts.ComfortRange == nil || opts.ComfortRange.Width() <= 0 {
		return domain.ConfidenceMedium
	}
	if consistentExpiries(opts) >= g.cfg.MinConsistentExpiries {
		return domain.ConfidenceHigh
	}
	return domain.ConfidenceMedium
}

// consistentExpiries counts tracked expiries whose stance agrees with the
// overall vol stance.
func consistentExpiries(opts *domain.OptionsMetrics) int {
	n := 0
	for _, e := range opts.KeyExpiries {
		if e.Stance == opts.VolStance {
			n++
		}
	}
	return n
}

// pricePositionIn classifies price against a comfort range. The boundary band
// is boundaryFraction of the range width measured inward from each edge.
func pricePositionIn(r domain.PriceRange, price, boundaryFraction float64) domain.PricePosition {
	if r.Width() <= 0 {
		return domain.PositionUnknown
	}
	if !r.Contains(price) {
		return domain.PositionInStress
	}
	band := r.Width() * boundaryFraction
	if price-r.Lower <= band || r.Upper-price <= band {
		return domain.PositionAtBoundary
	}
	return domain.PositionInsideComfort
}
