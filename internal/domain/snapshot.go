package domain

import "time"

// MarketSnapshot is the immutable per-cycle input to the permission pipeline.
// The data facade builds exactly one per (asset, cycle); the core only reads it.
type MarketSnapshot struct {
	Asset     string    `json:"asset"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`

	Exchange *ExchangeMetrics `json:"exchange,omitempty"`
	Options  *OptionsMetrics  `json:"options,omitempty"`
	Whale    *WhaleMetrics    `json:"whale,omitempty"`

	Quality DataQuality `json:"quality"`
}

// ExchangeMetrics carries perp/derivatives telemetry from the exchange adapter.
type ExchangeMetrics struct {
	FundingRate       float64              `json:"funding_rate"` // percent, e.g. 0.05 == 0.05%
	OpenInterest      float64              `json:"open_interest"`
	OIChange24h       float64              `json:"oi_change_24h"` // percent
	LiquidationLevels []LiquidationCluster `json:"liquidation_levels,omitempty"`
}

// LiquidationCluster is an estimated liquidation price concentration.
type LiquidationCluster struct {
	Price     float64 `json:"price"`
	NotionalM float64 `json:"notional_m"` // millions USD
	Side      string  `json:"side"`       // "long" or "short"
}

// PriceRange is a [Lower, Upper] price interval.
type PriceRange struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns the range span.
func (r PriceRange) Width() float64 {
	return r.Upper - r.Lower
}

// Contains reports whether p lies inside the range (inclusive).
func (r PriceRange) Contains(p float64) bool {
	return p >= r.Lower && p <= r.Upper
}

// OptionsMetrics carries options-market positioning.
type OptionsMetrics struct {
	VolStance    VolStance   `json:"vol_stance"`
	ComfortRange *PriceRange `json:"comfort_range,omitempty"`
	StressRange  *PriceRange `json:"stress_range,omitempty"`
	TermNote     string      `json:"term_note,omitempty"`
	KeyExpiries  []Expiry    `json:"key_expiries,omitempty"`
}

// Expiry is one upcoming options expiry with its implied stance.
type Expiry struct {
	Date      time.Time  `json:"date"`
	OpenIntM  float64    `json:"open_int_m"` // millions USD notional
	Stance    VolStance  `json:"stance"`
	MaxPain   float64    `json:"max_pain,omitempty"`
	Reference PriceRange `json:"reference,omitempty"`
}

// WhaleMetrics carries large-trade order-flow telemetry.
type WhaleMetrics struct {
	CVD24h           float64       `json:"cvd_24h"` // cumulative volume delta, USD
	CVD7d            float64       `json:"cvd_7d"`
	WhaleVolumeRatio float64       `json:"whale_volume_ratio"` // whale / total, 0..1
	VWAP             float64       `json:"vwap"`
	VWAPBands        *PriceRange   `json:"vwap_bands,omitempty"`
	RecentBubbles    []BubbleEvent `json:"recent_bubbles,omitempty"`
}

// BubbleEvent is a single outsized trade print.
type BubbleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	SizeUSD   float64   `json:"size_usd"`
	Side      string    `json:"side"` // "buy" or "sell"
}

// DataQuality summarizes per-source freshness for the snapshot. The gates
// consume it to degrade confidence; it never throws.
type DataQuality struct {
	ExchangeFresh bool      `json:"exchange_fresh"`
	OptionsFresh  bool      `json:"options_fresh"`
	WhaleFresh    bool      `json:"whale_fresh"`
	ExchangeAsOf  time.Time `json:"exchange_as_of,omitempty"`
	OptionsAsOf   time.Time `json:"options_as_of,omitempty"`
	WhaleAsOf     time.Time `json:"whale_as_of,omitempty"`
	OverallScore  float64   `json:"overall_score"` // 0..1
}

// Evidence is one supporting or conflicting observation attached to a verdict.
type Evidence struct {
	Source    string    `json:"source"`
	Statement string    `json:"statement"`
	Timestamp time.Time `json:"timestamp"`
}
