package permission

import (
	"time"

	"github.com/sawpanic/tradegate/internal/conflict"
	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/explain"
	"github.com/sawpanic/tradegate/internal/gates"
)

// Assessment is the pipeline's output record: one per (asset, cycle),
// immutable once constructed, superseded (never updated) by the next cycle.
// Consumers treat anything past ValidUntil as stale; the engine itself does
// not expire assessments.
type Assessment struct {
	ID          string                   `json:"id"`
	Asset       string                   `json:"asset"`
	State       domain.PermissionState   `json:"state"`
	DecidedBy   string                   `json:"decided_by"` // cascade rule that produced State
	Gates       gates.Set                `json:"gates"`
	Conflicts   []conflict.LayerConflict `json:"conflicts"`
	Uncertainty domain.UncertaintyLevel  `json:"uncertainty"`
	Explanation *explain.Explanation     `json:"explanation"`
	Quality     domain.DataQuality       `json:"quality"`
	AssessedAt  time.Time                `json:"assessed_at"`
	ValidUntil  time.Time                `json:"valid_until"`
}

// Eligible reports whether the assessment permits any downstream suggestion
// at all. NO_TRADE and WAIT hard-block eligibility regardless of any other
// heuristic a consumer might hold.
func (a *Assessment) Eligible() bool {
	return a.State != domain.NoTrade && a.State != domain.Wait
}

// Expired reports whether the assessment is past its validity window.
func (a *Assessment) Expired(now time.Time) bool {
	return now.After(a.ValidUntil)
}
