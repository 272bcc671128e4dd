package persistence

import (
	"context"
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/permission"
)

// AssessmentStore persists permission assessments and serves the latest
// one per asset to the read-only API.
type AssessmentStore interface {
	Save(ctx context.Context, a *permission.Assessment) error
	Latest(ctx context.Context, asset string) (*permission.Assessment, error)
	History(ctx context.Context, asset string, since time.Time, limit int) ([]*permission.Assessment, error)
}

// TransitionStore records state changes between consecutive assessments
// of the same asset.
type TransitionStore interface {
	SaveTransition(ctx context.Context, rec TransitionRecord) error
}

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

// clampHistoryLimit bounds a history page size. Both store
// implementations apply it so callers get the same page regardless of
// backend.
func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

// TransitionRecord is one audit row for a permission state change.
type TransitionRecord struct {
	Asset        string                 `db:"asset" json:"asset"`
	FromState    domain.PermissionState `db:"from_state" json:"from_state"`
	ToState      domain.PermissionState `db:"to_state" json:"to_state"`
	Kind         domain.TransitionKind  `db:"kind" json:"kind"`
	AssessmentID string                 `db:"assessment_id" json:"assessment_id"`
	OccurredAt   time.Time              `db:"occurred_at" json:"occurred_at"`
}
