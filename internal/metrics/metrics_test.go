package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tradegate/internal/conflict"
	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/permission"
)

func observedAssessment(state domain.PermissionState) *permission.Assessment {
	return &permission.Assessment{
		ID:          "a1",
		Asset:       "BTC-USD",
		State:       state,
		Uncertainty: domain.UncertaintyModerate,
		Conflicts: []conflict.LayerConflict{
			{Type: conflict.TypeRegimeVsFlow, Severity: domain.SeverityHigh},
		},
		Quality: domain.DataQuality{OverallScore: 0.75},
	}
}

func gaugeValue(t *testing.T, m *Registry, name string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRegistry_ObserveAssessment(t *testing.T) {
	m := NewRegistry()

	m.ObserveAssessment(observedAssessment(domain.TradeAllowed), 25*time.Millisecond)

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["tradegate_evaluation_duration_seconds"])
	assert.True(t, names["tradegate_assessments_total"])
	assert.True(t, names["tradegate_conflicts_total"])

	assert.Equal(t, 2.0, gaugeValue(t, m, "tradegate_uncertainty_level"))
	assert.Equal(t, 0.75, gaugeValue(t, m, "tradegate_snapshot_quality_score"))
}

func TestRegistry_EligibleRatio(t *testing.T) {
	m := NewRegistry()

	m.ObserveAssessment(observedAssessment(domain.TradeAllowed), time.Millisecond)
	m.ObserveAssessment(observedAssessment(domain.ScalpOnly), time.Millisecond)
	m.ObserveAssessment(observedAssessment(domain.Wait), time.Millisecond)
	m.ObserveAssessment(observedAssessment(domain.NoTrade), time.Millisecond)

	assert.Equal(t, 0.5, gaugeValue(t, m, "tradegate_eligible_ratio"))
}

func TestRegistry_EligibleRatioSpansAssets(t *testing.T) {
	m := NewRegistry()

	observe := func(asset string, state domain.PermissionState) {
		a := observedAssessment(state)
		a.Asset = asset
		m.ObserveAssessment(a, time.Millisecond)
	}
	observe("BTC-USD", domain.TradeAllowed)
	observe("BTC-USD", domain.TradeAllowed)
	observe("BTC-USD", domain.ScalpOnly)
	observe("ETH-USD", domain.NoTrade)
	observe("ETH-USD", domain.NoTrade)
	observe("ETH-USD", domain.Wait)

	assert.Equal(t, 0.5, gaugeValue(t, m, "tradegate_eligible_ratio"))
}

func TestRegistry_TransitionAndErrorCounters(t *testing.T) {
	m := NewRegistry()

	m.ObserveTransition("BTC-USD", domain.TransitionDowngrade)
	m.ObserveError("BTC-USD", "snapshot")

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	found := 0
	for _, mf := range families {
		switch mf.GetName() {
		case "tradegate_state_transitions_total", "tradegate_evaluation_errors_total":
			found++
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.Equal(t, 2, found)
}
