package permission

import (
	"github.com/sawpanic/tradegate/internal/conflict"
	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/gates"
)

// AssessUncertainty aggregates per-gate confidence, data freshness, and
// conflict severity into one level. It is computed independently of the
// permission state: a CRITICAL uncertainty can accompany any state.
// First matching step wins.
func AssessUncertainty(set *gates.Set, conflicts []conflict.LayerConflict) domain.UncertaintyLevel {
	switch {
	case set.CountFreshness(domain.FreshnessStale) >= 1 ||
		set.CountFreshness(domain.FreshnessUnknown) >= 2:
		return domain.UncertaintyCritical

	case set.CountConfidence(domain.ConfidenceLow) >= 2 ||
		conflict.HasSeverity(conflicts, domain.SeverityHigh):
		return domain.UncertaintyHigh

	case set.CountConfidence(domain.ConfidenceLow) == 1 ||
		len(conflicts) > 0 ||
		set.CountConfidence(domain.ConfidenceMedium) >= 2:
		return domain.UncertaintyModerate

	default:
		return domain.UncertaintyLow
	}
}
