package gates

import (
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
)

// VerdictCore carries the fields every gate verdict shares. Verdicts are
// created fresh each cycle and never mutated afterwards; downstream stages
// read statuses but never re-derive them.
type VerdictCore struct {
	Gate          domain.GateName        `json:"gate"`
	Status        domain.GateStatus      `json:"status"`
	Confidence    domain.ConfidenceLevel `json:"confidence"`
	DataFreshness domain.DataFreshness   `json:"data_freshness"`
	Supporting    []domain.Evidence      `json:"supporting,omitempty"`
	Conflicting   []domain.Evidence      `json:"conflicting,omitempty"`
	Note          string                 `json:"note"`
	EvaluatedAt   time.Time              `json:"evaluated_at"`
}

// RegimeVerdict is the options-positioning gate output.
type RegimeVerdict struct {
	VerdictCore
	VolStance     domain.VolStance   `json:"vol_stance"`
	ComfortRange  *domain.PriceRange `json:"comfort_range,omitempty"`
	PricePosition domain.PricePosition `json:"price_position"`
}

// FlowVerdict is the whale order-flow gate output.
type FlowVerdict struct {
	VerdictCore
	Direction         domain.FlowDirection `json:"direction"`
	Quality           domain.FlowQuality   `json:"quality"`
	CVD24h            float64              `json:"cvd_24h"`
	CVD7d             float64              `json:"cvd_7d"`
	TimeframesAligned bool                 `json:"timeframes_aligned"`
}

// RiskVerdict is the crowding/stress gate output. A FAIL here is Tier-1: it
// alone forces NO_TRADE and cannot be overridden downstream.
type RiskVerdict struct {
	VerdictCore
	FundingBias domain.FundingBias       `json:"funding_bias"`
	Crowding    domain.CrowdingLevel     `json:"crowding"`
	StressRange domain.StressRangeStatus `json:"stress_range"`
	FundingRate float64                  `json:"funding_rate"`
}

// ContextVerdict is the spatial alignment gate output.
type ContextVerdict struct {
	VerdictCore
	Zone          domain.MarketZone    `json:"zone"`
	Alignment     domain.ZoneAlignment `json:"alignment"`
	BandPosition  domain.BandPosition  `json:"band_position"`
	ReferenceBand domain.PriceRange    `json:"reference_band"`
	SyntheticBand bool                 `json:"synthetic_band"`
}

// Set groups the four verdicts of one evaluation cycle. Keeping the gates as
// named concrete fields (rather than a loose map) lets the state calculator
// and explanation generator handle every gate without reflection.
type Set struct {
	Regime  *RegimeVerdict  `json:"regime"`
	Flow    *FlowVerdict    `json:"flow"`
	Risk    *RiskVerdict    `json:"risk"`
	Context *ContextVerdict `json:"context"`
}

// Cores returns the shared cores in fixed gate order.
func (s *Set) Cores() []*VerdictCore {
	return []*VerdictCore{
		&s.Regime.VerdictCore,
		&s.Flow.VerdictCore,
		&s.Risk.VerdictCore,
		&s.Context.VerdictCore,
	}
}

// CountStatus returns how many of the four gates carry the given status.
func (s *Set) CountStatus(status domain.GateStatus) int {
	n := 0
	for _, c := range s.Cores() {
		if c.Status == status {
			n++
		}
	}
	return n
}

// CountConfidence returns how many gates carry the given confidence level.
func (s *Set) CountConfidence(level domain.ConfidenceLevel) int {
	n := 0
	for _, c := range s.Cores() {
		if c.Confidence == level {
			n++
		}
	}
	return n
}

// CountFreshness returns how many gates carry the given freshness.
func (s *Set) CountFreshness(f domain.DataFreshness) int {
	n := 0
	for _, c := range s.Cores() {
		if c.DataFreshness == f {
			n++
		}
	}
	return n
}

func evidence(source, statement string, at time.Time) domain.Evidence {
	return domain.Evidence{Source: source, Statement: statement, Timestamp: at}
}
