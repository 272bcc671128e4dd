package explain

import (
	"fmt"

	"github.com/sawpanic/tradegate/internal/conflict"
	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/gates"
)

// Explanation is the structured, human-readable account of one assessment.
// Every field is composed from already-computed verdict fields through fixed
// templates; the generator never adds directional, action, certainty, or
// urgency language. That constraint is enforced by construction, not by
// filtering output after the fact.
type Explanation struct {
	CurrentObservation  string   `json:"current_observation"`
	AlignmentAssessment string   `json:"alignment_assessment"`
	ConflictAssessment  string   `json:"conflict_assessment"`
	RiskFactors         []string `json:"risk_factors"`
	CautionPoints       []string `json:"caution_points"`
}

// ForbiddenTerms is the vocabulary the generator must never emit: directional
// words, action verbs, certainty claims, urgency language. Exported so tests
// can hold every template to it.
var ForbiddenTerms = []string{
	"bullish", "bearish", "buy", "sell", "long ", "short ",
	"will happen", "guaranteed", "certain to", "definitely",
	"immediately", "act now", "urgent", "hurry",
}

// Generator renders explanations. It is stateless and pure.
type Generator struct{}

// NewGenerator creates an explanation generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the explanation for one assessment. One branch per
// permission state; the five branches mirror the state calculator's outputs.
func (g *Generator) Generate(asset string, state domain.PermissionState, set *gates.Set, conflicts []conflict.LayerConflict, uncertainty domain.UncertaintyLevel) *Explanation {
	e := &Explanation{
		CurrentObservation:  g.observation(asset, state, set),
		AlignmentAssessment: g.alignment(set),
		ConflictAssessment:  g.conflictSummary(conflicts),
		RiskFactors:         g.riskFactors(set),
		CautionPoints:       g.cautionPoints(set, conflicts, uncertainty),
	}
	return e
}

func (g *Generator) observation(asset string, state domain.PermissionState, set *gates.Set) string {
	switch state {
	case domain.TradeAllowed:
		return fmt.Sprintf("%s: all four layers are clear. Regime %s, flow %s, risk %s, context %s.",
			asset, set.Regime.VolStance, set.Flow.Direction, set.Risk.Crowding, set.Context.Zone)
	case domain.TradeAllowedReducedRisk:
		return fmt.Sprintf("%s: layers are clear with reservations. %s", asset, weakGateSentence(set))
	case domain.ScalpOnly:
		return fmt.Sprintf("%s: flow quality limits the framework to short-duration activity. %s.",
			asset, set.Flow.Note)
	case domain.Wait:
		return fmt.Sprintf("%s: the framework is in a transitional read; several layers are ambiguous at once.", asset)
	default: // NO_TRADE
		return fmt.Sprintf("%s: a hard constraint is active. %s", asset, hardConstraintSentence(set))
	}
}

func (g *Generator) alignment(set *gates.Set) string {
	pass := set.CountStatus(domain.StatusPass)
	weak := set.CountStatus(domain.StatusWeakPass)
	fail := set.CountStatus(domain.StatusFail)
	return fmt.Sprintf("Layer agreement: %d clear, %d qualified, %d blocked. Zone/flow alignment is %s.",
		pass, weak, fail, set.Context.Alignment)
}

func (g *Generator) conflictSummary(conflicts []conflict.LayerConflict) string {
	if len(conflicts) == 0 {
		return "No layer disagreements detected this cycle."
	}
	ranked := conflict.Summarize(conflicts)
	s := fmt.Sprintf("%d layer disagreement(s) detected; most significant: [%s] %s",
		len(ranked), ranked[0].Severity, ranked[0].Description)
	if len(ranked) > 1 {
		s += fmt.Sprintf(" (+%d more)", len(ranked)-1)
	}
	return s
}

func (g *Generator) riskFactors(set *gates.Set) []string {
	var factors []string
	if set.Risk.Crowding == domain.CrowdingExtreme || set.Risk.Crowding == domain.CrowdingElevated {
		factors = append(factors, fmt.Sprintf("positioning crowding is %s (funding %+.3f%%)",
			set.Risk.Crowding, set.Risk.FundingRate))
	}
	if set.Risk.StressRange == domain.StressInside {
		factors = append(factors, "price is outside the options comfort range")
	}
	if set.Risk.StressRange == domain.StressAtBoundary {
		factors = append(factors, "price is testing the edge of the options comfort range")
	}
	for _, core := range set.Cores() {
		for _, ev := range core.Conflicting {
			factors = append(factors, fmt.Sprintf("%s: %s", ev.Source, ev.Statement))
		}
	}
	return factors
}

func (g *Generator) cautionPoints(set *gates.Set, conflicts []conflict.LayerConflict, uncertainty domain.UncertaintyLevel) []string {
	var points []string
	switch uncertainty {
	case domain.UncertaintyCritical:
		points = append(points, "input data quality is severely degraded this cycle; treat every layer read as provisional")
	case domain.UncertaintyHigh:
		points = append(points, "overall confidence in this cycle's reads is reduced")
	}
	for _, core := range set.Cores() {
		switch core.DataFreshness {
		case domain.FreshnessStale:
			points = append(points, fmt.Sprintf("%s layer is built on stale data", core.Gate))
		case domain.FreshnessUnknown:
			points = append(points, fmt.Sprintf("%s layer had no usable data this cycle", core.Gate))
		}
	}
	for _, c := range conflict.Summarize(conflicts) {
		points = append(points, fmt.Sprintf("disagreement between %s and %s layers: %s",
			c.LayerA.Layer, c.LayerB.Layer, c.Description))
	}
	return points
}

func weakGateSentence(set *gates.Set) string {
	for _, core := range set.Cores() {
		if core.Status == domain.StatusWeakPass {
			return fmt.Sprintf("The %s layer carries a qualified read: %s.", core.Gate, core.Note)
		}
	}
	return "One layer carries a qualified read."
}

func hardConstraintSentence(set *gates.Set) string {
	switch {
	case set.Risk.Status == domain.StatusFail:
		return fmt.Sprintf("The risk layer is blocked: %s.", set.Risk.Note)
	case set.Regime.Status == domain.StatusFail:
		return fmt.Sprintf("The regime layer is blocked: %s.", set.Regime.Note)
	default:
		return "The flow and context layers are blocked together."
	}
}
