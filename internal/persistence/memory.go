package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sawpanic/tradegate/internal/permission"
)

// MemoryStore is an in-process AssessmentStore used when no database is
// configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	byAsset     map[string][]*permission.Assessment
	transitions []TransitionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byAsset: make(map[string][]*permission.Assessment)}
}

func (s *MemoryStore) Save(_ context.Context, a *permission.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAsset[a.Asset] = append(s.byAsset[a.Asset], a)
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, asset string) (*permission.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.byAsset[asset]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	latest := history[0]
	for _, a := range history[1:] {
		if a.AssessedAt.After(latest.AssessedAt) {
			latest = a
		}
	}
	return latest, nil
}

func (s *MemoryStore) History(_ context.Context, asset string, since time.Time, limit int) ([]*permission.Assessment, error) {
	limit = clampHistoryLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*permission.Assessment
	for _, a := range s.byAsset[asset] {
		if !a.AssessedAt.Before(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssessedAt.After(out[j].AssessedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveTransition(_ context.Context, rec TransitionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, rec)
	return nil
}

// Transitions returns a copy of the recorded transitions.
func (s *MemoryStore) Transitions() []TransitionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TransitionRecord, len(s.transitions))
	copy(out, s.transitions)
	return out
}
