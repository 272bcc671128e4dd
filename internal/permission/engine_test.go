package permission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/gates"
)

func engineSnapshot() *domain.MarketSnapshot {
	now := time.Now()
	return &domain.MarketSnapshot{
		Asset:     "BTC-USD",
		Price:     98200,
		Timestamp: now,
		Exchange: &domain.ExchangeMetrics{
			FundingRate:  0.02,
			OpenInterest: 18e9,
			OIChange24h:  1.5,
			LiquidationLevels: []domain.LiquidationCluster{
				{Price: 93500, NotionalM: 420, Side: "long"},
			},
		},
		Options: &domain.OptionsMetrics{
			VolStance:    domain.VolStanceLong,
			ComfortRange: &domain.PriceRange{Lower: 95000, Upper: 110000},
			KeyExpiries: []domain.Expiry{
				{Date: now.AddDate(0, 0, 7), OpenIntM: 900, Stance: domain.VolStanceLong},
				{Date: now.AddDate(0, 0, 28), OpenIntM: 2100, Stance: domain.VolStanceLong},
			},
		},
		Whale: &domain.WhaleMetrics{
			CVD24h:           5e6,
			CVD7d:            20e6,
			WhaleVolumeRatio: 0.40,
			VWAP:             100000,
			VWAPBands:        &domain.PriceRange{Lower: 97000, Upper: 103000},
			RecentBubbles: []domain.BubbleEvent{
				{Timestamp: now.Add(-10 * time.Minute), Price: 98150, SizeUSD: 4.2e6, Side: "buy"},
			},
		},
		Quality: domain.DataQuality{
			ExchangeFresh: true,
			OptionsFresh:  true,
			WhaleFresh:    true,
			OverallScore:  1.0,
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultEngineConfig(), gates.DefaultConfig())
	require.NoError(t, err)
	return engine
}

func TestEngine_FullyAlignedSnapshotAllowsTrading(t *testing.T) {
	assessment, err := newTestEngine(t).Evaluate(engineSnapshot())
	require.NoError(t, err)

	assert.Equal(t, domain.TradeAllowed, assessment.State)
	assert.Equal(t, domain.UncertaintyLow, assessment.Uncertainty)
	assert.Empty(t, assessment.Conflicts)
	assert.True(t, assessment.Eligible())
	assert.NotEmpty(t, assessment.ID)
	assert.Equal(t, "BTC-USD", assessment.Asset)
	assert.Equal(t, assessment.AssessedAt.Add(15*time.Minute), assessment.ValidUntil)
	require.NotNil(t, assessment.Explanation)
	assert.NotEmpty(t, assessment.Explanation.CurrentObservation)
}

// Tier-1 end to end: extreme funding forces NO_TRADE even though whale flow
// is accumulating and every other layer is aligned.
func TestEngine_ExtremeFundingForcesNoTrade(t *testing.T) {
	snap := engineSnapshot()
	snap.Exchange.FundingRate = 0.12

	assessment, err := newTestEngine(t).Evaluate(snap)
	require.NoError(t, err)

	assert.Equal(t, domain.NoTrade, assessment.State)
	assert.Equal(t, "hard_failure", assessment.DecidedBy)
	assert.Equal(t, domain.StatusFail, assessment.Gates.Risk.Status)
	assert.False(t, assessment.Eligible())
}

func TestEngine_MalformedSnapshotIsTheOnlyHardError(t *testing.T) {
	engine := newTestEngine(t)

	snap := engineSnapshot()
	snap.Exchange = nil
	_, err := engine.Evaluate(snap)
	assert.ErrorIs(t, err, gates.ErrMalformedSnapshot)

	// Missing options and whale data degrade instead.
	degraded := engineSnapshot()
	degraded.Options = nil
	degraded.Whale = nil
	assessment, err := engine.Evaluate(degraded)
	require.NoError(t, err)
	assert.Equal(t, domain.NoTrade, assessment.State)
	assert.Equal(t, domain.UncertaintyCritical, assessment.Uncertainty)
}

// Evaluating the identical snapshot twice must produce identical decisions;
// only the id and timestamps may differ.
func TestEngine_Idempotent(t *testing.T) {
	engine := newTestEngine(t)
	snap := engineSnapshot()

	first, err := engine.Evaluate(snap)
	require.NoError(t, err)
	second, err := engine.Evaluate(snap)
	require.NoError(t, err)

	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Uncertainty, second.Uncertainty)
	assert.Equal(t, len(first.Conflicts), len(second.Conflicts))
	for i := range first.Conflicts {
		assert.Equal(t, first.Conflicts[i].Type, second.Conflicts[i].Type)
		assert.Equal(t, first.Conflicts[i].Severity, second.Conflicts[i].Severity)
	}
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEngine_WaitAndNoTradeBlockEligibility(t *testing.T) {
	for _, state := range []domain.PermissionState{domain.NoTrade, domain.Wait} {
		a := &Assessment{State: state}
		assert.False(t, a.Eligible(), "state %s", state)
	}
	for _, state := range []domain.PermissionState{domain.TradeAllowed, domain.TradeAllowedReducedRisk, domain.ScalpOnly} {
		a := &Assessment{State: state}
		assert.True(t, a.Eligible(), "state %s", state)
	}
}

func TestEngine_RejectsInvalidConfig(t *testing.T) {
	_, err := NewEngine(EngineConfig{ValidityWindow: 0}, nil)
	assert.Error(t, err)

	bad := gates.DefaultConfig()
	bad.Risk.ExtremeFundingPct = 0.01
	_, err = NewEngine(DefaultEngineConfig(), bad)
	assert.Error(t, err)
}

func TestAssessment_Expiry(t *testing.T) {
	now := time.Now()
	a := &Assessment{AssessedAt: now, ValidUntil: now.Add(15 * time.Minute)}
	assert.False(t, a.Expired(now.Add(10*time.Minute)))
	assert.True(t, a.Expired(now.Add(16*time.Minute)))
}
