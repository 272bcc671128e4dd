package gates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tradegate/internal/domain"
)

func TestCoordinator_EvaluatesAllFourGates(t *testing.T) {
	coord, err := NewCoordinator(DefaultConfig())
	require.NoError(t, err)

	result, err := coord.Evaluate(testSnapshot())
	require.NoError(t, err)

	require.NotNil(t, result.Regime)
	require.NotNil(t, result.Flow)
	require.NotNil(t, result.Risk)
	require.NotNil(t, result.Context)
	assert.Equal(t, domain.GateRegime, result.Regime.Gate)
	assert.Equal(t, domain.GateFlow, result.Flow.Gate)
	assert.Equal(t, domain.GateRisk, result.Risk.Gate)
	assert.Equal(t, domain.GateContext, result.Context.Gate)
	assert.True(t, result.Quality.ExchangeFresh)
}

func TestCoordinator_MalformedSnapshotIsHardError(t *testing.T) {
	coord, err := NewCoordinator(nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*domain.MarketSnapshot) *domain.MarketSnapshot
	}{
		{"nil snapshot", func(*domain.MarketSnapshot) *domain.MarketSnapshot { return nil }},
		{"missing asset", func(s *domain.MarketSnapshot) *domain.MarketSnapshot { s.Asset = ""; return s }},
		{"non-positive price", func(s *domain.MarketSnapshot) *domain.MarketSnapshot { s.Price = 0; return s }},
		{"no exchange metrics", func(s *domain.MarketSnapshot) *domain.MarketSnapshot { s.Exchange = nil; return s }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coord.Evaluate(tt.mutate(testSnapshot()))
			assert.ErrorIs(t, err, ErrMalformedSnapshot)
		})
	}
}

// Data gaps short of a malformed snapshot must degrade, never error.
func TestCoordinator_DataGapsDegradeInsteadOfErroring(t *testing.T) {
	coord, err := NewCoordinator(DefaultConfig())
	require.NoError(t, err)

	snap := testSnapshot()
	snap.Options = nil
	snap.Whale = nil

	result, err := coord.Evaluate(snap)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFail, result.Regime.Status)
	assert.Equal(t, domain.StatusFail, result.Flow.Status)
	assert.Equal(t, domain.StatusFail, result.Risk.Status) // stress defaults INSIDE
}

func TestConfig_ValidateRejectsContradictions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"boundary fraction too large", func(c *Config) { c.Regime.BoundaryFraction = 0.6 }},
		{"retail above whale ratio", func(c *Config) { c.Flow.RetailDrivenRatio = 0.5 }},
		{"extreme below crowded", func(c *Config) { c.Risk.ExtremeFundingPct = 0.02 }},
		{"crowded below normal", func(c *Config) { c.Risk.CrowdedFundingPct = 0.005 }},
		{"zero synthetic band", func(c *Config) { c.Context.SyntheticBandPct = 0 }},
		{"mid split out of range", func(c *Config) { c.Context.MidSplit = 1.2 }},
		{"tie break out of range", func(c *Config) { c.Flow.TieBreakFraction = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())

			_, err := NewCoordinator(cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfig_DefaultIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
