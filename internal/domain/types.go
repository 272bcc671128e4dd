package domain

// GateStatus is the three-valued outcome of a single gate evaluation.
type GateStatus string

const (
	StatusPass     GateStatus = "PASS"
	StatusWeakPass GateStatus = "WEAK_PASS"
	StatusFail     GateStatus = "FAIL"
)

// ConfidenceLevel grades how much a gate trusts its own verdict.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// DataFreshness describes the age of the inputs a gate evaluated.
type DataFreshness string

const (
	FreshnessCurrent DataFreshness = "CURRENT"
	FreshnessStale   DataFreshness = "STALE"
	FreshnessUnknown DataFreshness = "UNKNOWN"
)

// GateName identifies one of the four gates.
type GateName string

const (
	GateRegime  GateName = "regime"
	GateFlow    GateName = "flow"
	GateRisk    GateName = "risk"
	GateContext GateName = "context"
)

// PermissionState is the single output of the state calculator. Exactly one
// state is derived per assessment.
type PermissionState string

const (
	TradeAllowed            PermissionState = "TRADE_ALLOWED"
	TradeAllowedReducedRisk PermissionState = "TRADE_ALLOWED_REDUCED_RISK"
	ScalpOnly               PermissionState = "SCALP_ONLY"
	Wait                    PermissionState = "WAIT"
	NoTrade                 PermissionState = "NO_TRADE"
)

// stateRanks defines the total order over permission states. It is used only
// to classify transitions for notification tiering; it never influences the
// state calculation itself.
var stateRanks = map[PermissionState]int{
	TradeAllowed:            5,
	TradeAllowedReducedRisk: 4,
	ScalpOnly:               3,
	Wait:                    2,
	NoTrade:                 1,
}

// Rank returns the position of the state in the permissiveness order
// (TRADE_ALLOWED highest, NO_TRADE lowest). Unknown states rank below
// NO_TRADE so a corrupted value is never treated as an upgrade.
func (s PermissionState) Rank() int {
	return stateRanks[s]
}

// TransitionKind classifies a state change between consecutive assessments.
type TransitionKind string

const (
	TransitionUpgrade   TransitionKind = "UPGRADE"
	TransitionDowngrade TransitionKind = "DOWNGRADE"
	TransitionSame      TransitionKind = "SAME"
)

// ClassifyTransition compares two states by rank.
func ClassifyTransition(from, to PermissionState) TransitionKind {
	switch {
	case to.Rank() > from.Rank():
		return TransitionUpgrade
	case to.Rank() < from.Rank():
		return TransitionDowngrade
	default:
		return TransitionSame
	}
}

// UncertaintyLevel grades overall input trustworthiness, orthogonal to the
// permission state.
type UncertaintyLevel string

const (
	UncertaintyLow      UncertaintyLevel = "LOW"
	UncertaintyModerate UncertaintyLevel = "MODERATE"
	UncertaintyHigh     UncertaintyLevel = "HIGH"
	UncertaintyCritical UncertaintyLevel = "CRITICAL"
)

// ConflictSeverity ranks a detected layer disagreement.
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "HIGH"
	SeverityMedium ConflictSeverity = "MEDIUM"
	SeverityLow    ConflictSeverity = "LOW"
)

// severityRanks orders severities for summarization (HIGH > MEDIUM > LOW).
var severityRanks = map[ConflictSeverity]int{
	SeverityHigh:   3,
	SeverityMedium: 2,
	SeverityLow:    1,
}

// Rank returns the ordering weight of the severity.
func (s ConflictSeverity) Rank() int {
	return severityRanks[s]
}

// VolStance is the options market's volatility positioning.
type VolStance string

const (
	VolStanceLong    VolStance = "LONG_VOL"
	VolStanceShort   VolStance = "SHORT_VOL"
	VolStanceUnclear VolStance = "UNCLEAR"
)

// FlowDirection is the whale capital-flow classification.
type FlowDirection string

const (
	FlowAccumulation FlowDirection = "ACCUMULATION"
	FlowDistribution FlowDirection = "DISTRIBUTION"
	FlowNeutral      FlowDirection = "NEUTRAL"
	FlowUnclear      FlowDirection = "UNCLEAR"
)

// FlowQuality describes who is driving volume.
type FlowQuality string

const (
	FlowWhaleDriven  FlowQuality = "WHALE_DRIVEN"
	FlowMixed        FlowQuality = "MIXED"
	FlowRetailDriven FlowQuality = "RETAIL_DRIVEN"
)

// FundingBias classifies perp funding crowding direction.
type FundingBias string

const (
	BiasLongCrowded  FundingBias = "LONG_CROWDED"
	BiasShortCrowded FundingBias = "SHORT_CROWDED"
	BiasBalanced     FundingBias = "BALANCED"
)

// CrowdingLevel grades positioning crowding magnitude.
type CrowdingLevel string

const (
	CrowdingExtreme  CrowdingLevel = "EXTREME"
	CrowdingElevated CrowdingLevel = "ELEVATED"
	CrowdingNormal   CrowdingLevel = "NORMAL"
	CrowdingLowLevel CrowdingLevel = "LOW"
)

// PricePosition locates price relative to the options comfort range.
type PricePosition string

const (
	PositionInsideComfort PricePosition = "INSIDE_COMFORT"
	PositionAtBoundary    PricePosition = "AT_BOUNDARY"
	PositionInStress      PricePosition = "IN_STRESS"
	PositionUnknown       PricePosition = "UNKNOWN"
)

// StressRangeStatus is the Risk gate's view of price vs the comfort range.
// INSIDE means inside the stress zone, i.e. outside the comfort range.
type StressRangeStatus string

const (
	StressInside     StressRangeStatus = "INSIDE"
	StressAtBoundary StressRangeStatus = "AT_BOUNDARY"
	StressOutside    StressRangeStatus = "OUTSIDE"
)

// BandPosition locates price within the whale reference band.
type BandPosition string

const (
	BandUpper    BandPosition = "UPPER_BAND"
	BandAboveMid BandPosition = "ABOVE_MID"
	BandAtMid    BandPosition = "AT_MID"
	BandBelowMid BandPosition = "BELOW_MID"
	BandLower    BandPosition = "LOWER_BAND"
)

// MarketZone is the Context gate's spatial classification.
type MarketZone string

const (
	ZoneAccumulation MarketZone = "ACCUMULATION_ZONE"
	ZoneDistribution MarketZone = "DISTRIBUTION_ZONE"
	ZoneNeutral      MarketZone = "NEUTRAL_ZONE"
)

// ZoneAlignment is the agreement between zone and flow direction.
type ZoneAlignment string

const (
	AlignmentAligned    ZoneAlignment = "ALIGNED"
	AlignmentMisaligned ZoneAlignment = "MISALIGNED"
	AlignmentNeutral    ZoneAlignment = "NEUTRAL"
)
