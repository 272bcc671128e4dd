package gates

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/tradegate/internal/domain"
)

func TestRiskGate_BalancedFundingInsideRangePasses(t *testing.T) {
	snap := testSnapshot()
	v := NewRiskGate(DefaultConfig().Risk).Evaluate(snap)

	assert.Equal(t, domain.StatusPass, v.Status)
	assert.Equal(t, domain.BiasBalanced, v.FundingBias)
	assert.Equal(t, domain.CrowdingNormal, v.Crowding)
	assert.Equal(t, domain.StressOutside, v.StressRange)
	assert.Equal(t, domain.ConfidenceHigh, v.Confidence)
}

func TestRiskGate_FundingThresholds(t *testing.T) {
	tests := []struct {
		funding  float64
		bias     domain.FundingBias
		crowding domain.CrowdingLevel
		status   domain.GateStatus
	}{
		{0.12, domain.BiasLongCrowded, domain.CrowdingExtreme, domain.StatusFail},
		{-0.12, domain.BiasShortCrowded, domain.CrowdingExtreme, domain.StatusFail},
		{0.07, domain.BiasLongCrowded, domain.CrowdingElevated, domain.StatusWeakPass},
		{-0.07, domain.BiasShortCrowded, domain.CrowdingElevated, domain.StatusWeakPass},
		{0.03, domain.BiasBalanced, domain.CrowdingNormal, domain.StatusPass},
		{0.005, domain.BiasBalanced, domain.CrowdingLowLevel, domain.StatusPass},
	}
	for _, tt := range tests {
		snap := testSnapshot()
		snap.Exchange.FundingRate = tt.funding
		v := NewRiskGate(DefaultConfig().Risk).Evaluate(snap)

		assert.Equal(t, tt.bias, v.FundingBias, "funding %+.3f", tt.funding)
		assert.Equal(t, tt.crowding, v.Crowding, "funding %+.3f", tt.funding)
		assert.Equal(t, tt.status, v.Status, "funding %+.3f", tt.funding)
	}
}

// Absent comfort-range data defaults to INSIDE: safety is never assumed
// without data. This conservative default is a deliberate property.
func TestRiskGate_MissingComfortRangeDefaultsToStress(t *testing.T) {
	snap := testSnapshot()
	snap.Options = nil
	v := NewRiskGate(DefaultConfig().Risk).Evaluate(snap)

	assert.Equal(t, domain.StressInside, v.StressRange)
	assert.Equal(t, domain.StatusFail, v.Status)
}

func TestRiskGate_PriceOutsideComfortRangeFails(t *testing.T) {
	snap := testSnapshot()
	snap.Price = 120000
	v := NewRiskGate(DefaultConfig().Risk).Evaluate(snap)

	assert.Equal(t, domain.StressInside, v.StressRange)
	assert.Equal(t, domain.StatusFail, v.Status)
}

func TestRiskGate_BoundaryWeakens(t *testing.T) {
	snap := testSnapshot()
	snap.Price = 109200
	v := NewRiskGate(DefaultConfig().Risk).Evaluate(snap)

	assert.Equal(t, domain.StressAtBoundary, v.StressRange)
	assert.Equal(t, domain.StatusWeakPass, v.Status)
}

func TestRiskGate_StaleExchangeDataLowConfidence(t *testing.T) {
	snap := testSnapshot()
	snap.Quality.ExchangeFresh = false
	v := NewRiskGate(DefaultConfig().Risk).Evaluate(snap)

	assert.Equal(t, domain.ConfidenceLow, v.Confidence)
	assert.Equal(t, domain.FreshnessStale, v.DataFreshness)
}

func TestRiskGate_NilExchangeFailsConservatively(t *testing.T) {
	snap := testSnapshot()
	snap.Exchange = nil
	v := NewRiskGate(DefaultConfig().Risk).Evaluate(snap)

	assert.Equal(t, domain.StatusFail, v.Status)
	assert.Equal(t, domain.CrowdingExtreme, v.Crowding)
	assert.Equal(t, domain.StressInside, v.StressRange)
}
