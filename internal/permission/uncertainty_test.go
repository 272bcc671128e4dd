package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/tradegate/internal/conflict"
	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/gates"
)

func confidentSet() *gates.Set {
	return setWithStatuses(domain.StatusPass, domain.StatusPass, domain.StatusPass, domain.StatusPass)
}

func TestAssessUncertainty_LowWhenConfidentAndQuiet(t *testing.T) {
	assert.Equal(t, domain.UncertaintyLow, AssessUncertainty(confidentSet(), nil))
}

func TestAssessUncertainty_StaleDataIsCritical(t *testing.T) {
	set := confidentSet()
	set.Flow.DataFreshness = domain.FreshnessStale
	assert.Equal(t, domain.UncertaintyCritical, AssessUncertainty(set, nil))
}

func TestAssessUncertainty_TwoUnknownFreshnessIsCritical(t *testing.T) {
	set := confidentSet()
	set.Flow.DataFreshness = domain.FreshnessUnknown
	assert.NotEqual(t, domain.UncertaintyCritical, AssessUncertainty(set, nil))

	set.Context.DataFreshness = domain.FreshnessUnknown
	assert.Equal(t, domain.UncertaintyCritical, AssessUncertainty(set, nil))
}

func TestAssessUncertainty_ConfidenceCascade(t *testing.T) {
	set := confidentSet()
	set.Regime.Confidence = domain.ConfidenceLow
	assert.Equal(t, domain.UncertaintyModerate, AssessUncertainty(set, nil))

	set.Flow.Confidence = domain.ConfidenceLow
	assert.Equal(t, domain.UncertaintyHigh, AssessUncertainty(set, nil))
}

func TestAssessUncertainty_HighConflictIsHigh(t *testing.T) {
	conflicts := []conflict.LayerConflict{{Severity: domain.SeverityHigh}}
	assert.Equal(t, domain.UncertaintyHigh, AssessUncertainty(confidentSet(), conflicts))
}

func TestAssessUncertainty_AnyConflictIsAtLeastModerate(t *testing.T) {
	conflicts := []conflict.LayerConflict{{Severity: domain.SeverityLow}}
	assert.Equal(t, domain.UncertaintyModerate, AssessUncertainty(confidentSet(), conflicts))
}

func TestAssessUncertainty_TwoMediumConfidencesAreModerate(t *testing.T) {
	set := confidentSet()
	set.Regime.Confidence = domain.ConfidenceMedium
	assert.Equal(t, domain.UncertaintyLow, AssessUncertainty(set, nil))

	set.Risk.Confidence = domain.ConfidenceMedium
	assert.Equal(t, domain.UncertaintyModerate, AssessUncertainty(set, nil))
}

// Uncertainty is orthogonal to the permission state: a CRITICAL read can
// accompany a fully permissive state and vice versa.
func TestAssessUncertainty_IndependentOfPermissionState(t *testing.T) {
	set := confidentSet()
	set.Regime.DataFreshness = domain.FreshnessStale

	assert.Equal(t, domain.TradeAllowed, Calculate(CalcInputs{Gates: set}))
	assert.Equal(t, domain.UncertaintyCritical, AssessUncertainty(set, nil))

	blocked := setWithStatuses(domain.StatusPass, domain.StatusPass, domain.StatusFail, domain.StatusPass)
	assert.Equal(t, domain.NoTrade, Calculate(CalcInputs{Gates: blocked}))
	assert.Equal(t, domain.UncertaintyLow, AssessUncertainty(blocked, nil))
}
