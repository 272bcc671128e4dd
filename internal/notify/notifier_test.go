package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/permission"
)

type captureNotifier struct {
	calls []domain.TransitionKind
}

func (c *captureNotifier) StateChanged(_ context.Context, _ *permission.Assessment, kind domain.TransitionKind) error {
	c.calls = append(c.calls, kind)
	return nil
}

func notifiedAssessment(state domain.PermissionState) *permission.Assessment {
	return &permission.Assessment{
		ID:          "a1",
		Asset:       "BTC-USD",
		State:       state,
		DecidedBy:   "hard_failure",
		Uncertainty: domain.UncertaintyHigh,
	}
}

func TestRateLimited_SuppressesRepeatedUpgrades(t *testing.T) {
	ctx := context.Background()
	inner := &captureNotifier{}
	// One token per hour, burst one: only the first upgrade passes.
	limited := NewRateLimited(inner, 1, 1)

	a := notifiedAssessment(domain.TradeAllowed)
	require.NoError(t, limited.StateChanged(ctx, a, domain.TransitionUpgrade))
	require.NoError(t, limited.StateChanged(ctx, a, domain.TransitionUpgrade))
	require.NoError(t, limited.StateChanged(ctx, a, domain.TransitionUpgrade))

	assert.Len(t, inner.calls, 1)
}

func TestRateLimited_DowngradesAlwaysDeliver(t *testing.T) {
	ctx := context.Background()
	inner := &captureNotifier{}
	limited := NewRateLimited(inner, 1, 1)

	a := notifiedAssessment(domain.NoTrade)
	for i := 0; i < 5; i++ {
		require.NoError(t, limited.StateChanged(ctx, a, domain.TransitionDowngrade))
	}

	assert.Len(t, inner.calls, 5)
}

func TestRateLimited_PerAssetBuckets(t *testing.T) {
	ctx := context.Background()
	inner := &captureNotifier{}
	limited := NewRateLimited(inner, 1, 1)

	btc := notifiedAssessment(domain.TradeAllowed)
	eth := notifiedAssessment(domain.TradeAllowed)
	eth.Asset = "ETH-USD"

	require.NoError(t, limited.StateChanged(ctx, btc, domain.TransitionUpgrade))
	require.NoError(t, limited.StateChanged(ctx, btc, domain.TransitionUpgrade))
	require.NoError(t, limited.StateChanged(ctx, eth, domain.TransitionUpgrade))

	assert.Len(t, inner.calls, 2, "each asset draws from its own bucket")
}

func TestFanout_DeliversToAll(t *testing.T) {
	ctx := context.Background()
	first := &captureNotifier{}
	second := &captureNotifier{}
	fan := Fanout{first, second}

	require.NoError(t, fan.StateChanged(ctx, notifiedAssessment(domain.Wait), domain.TransitionDowngrade))

	assert.Len(t, first.calls, 1)
	assert.Len(t, second.calls, 1)
}
