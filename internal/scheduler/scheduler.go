package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/metrics"
	"github.com/sawpanic/tradegate/internal/notify"
	"github.com/sawpanic/tradegate/internal/permission"
	"github.com/sawpanic/tradegate/internal/persistence"
)

// SnapshotSource builds the per-cycle market snapshot for one asset.
type SnapshotSource interface {
	BuildSnapshot(ctx context.Context, asset string) (*domain.MarketSnapshot, error)
}

// Evaluator turns a snapshot into an assessment.
type Evaluator interface {
	Evaluate(snap *domain.MarketSnapshot) (*permission.Assessment, error)
}

// ProtectFunc is invoked when an asset drops into NO_TRADE from a state
// that permitted positioning. Implementations flatten exposure or raise
// an operator page; the scheduler only reports the drop.
type ProtectFunc func(ctx context.Context, a *permission.Assessment)

// Config tunes the evaluation schedule.
type Config struct {
	Interval time.Duration `yaml:"interval"`
	Assets   []string      `yaml:"assets"`
}

// DefaultConfig returns a 15-minute cycle over the majors.
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Minute,
		Assets:   []string{"BTC-USD", "ETH-USD"},
	}
}

// Validate rejects schedules that cannot run.
func (c Config) Validate() error {
	if c.Interval < time.Minute {
		return fmt.Errorf("scheduler interval must be at least 1m, got %s", c.Interval)
	}
	if len(c.Assets) == 0 {
		return errors.New("scheduler needs at least one asset")
	}
	seen := make(map[string]bool, len(c.Assets))
	for _, a := range c.Assets {
		if a == "" {
			return errors.New("scheduler asset names must not be empty")
		}
		if seen[a] {
			return fmt.Errorf("duplicate asset %q in schedule", a)
		}
		seen[a] = true
	}
	return nil
}

// Scheduler runs the evaluation cycle. Each asset is evaluated
// independently; one asset's failure never blocks the others.
type Scheduler struct {
	cfg      Config
	source   SnapshotSource
	engine   Evaluator
	store    persistence.AssessmentStore
	audit    persistence.TransitionStore
	notifier notify.Notifier
	metrics  *metrics.Registry
	protect  ProtectFunc
	nowFn    func() time.Time

	mu        sync.Mutex
	lastState map[string]domain.PermissionState
}

func New(cfg Config, source SnapshotSource, engine Evaluator, store persistence.AssessmentStore, audit persistence.TransitionStore, notifier notify.Notifier, reg *metrics.Registry, protect ProtectFunc) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		source:    source,
		engine:    engine,
		store:     store,
		audit:     audit,
		notifier:  notifier,
		metrics:   reg,
		protect:   protect,
		nowFn:     time.Now,
		lastState: make(map[string]domain.PermissionState),
	}
}

// Run executes one cycle immediately, then one per interval until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ActiveAssets.Set(float64(len(s.cfg.Assets)))
	}
	s.seedLastStates(ctx)

	s.RunCycle(ctx)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// seedLastStates reloads the previous state per asset so a restart does
// not misreport every first assessment as a fresh transition.
func (s *Scheduler) seedLastStates(ctx context.Context) {
	for _, asset := range s.cfg.Assets {
		prev, err := s.store.Latest(ctx, asset)
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("asset", asset).Msg("Could not seed previous state")
			continue
		}
		s.mu.Lock()
		s.lastState[asset] = prev.State
		s.mu.Unlock()
	}
}

// RunCycle evaluates every scheduled asset once.
func (s *Scheduler) RunCycle(ctx context.Context) {
	for _, asset := range s.cfg.Assets {
		if ctx.Err() != nil {
			return
		}
		if err := s.evaluateAsset(ctx, asset); err != nil {
			log.Error().Err(err).Str("asset", asset).Msg("Evaluation cycle failed for asset")
		}
	}
}

func (s *Scheduler) evaluateAsset(ctx context.Context, asset string) error {
	start := s.nowFn()

	snap, err := s.source.BuildSnapshot(ctx, asset)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveError(asset, "snapshot")
		}
		return fmt.Errorf("snapshot: %w", err)
	}

	a, err := s.engine.Evaluate(snap)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveError(asset, "evaluate")
		}
		return fmt.Errorf("evaluate: %w", err)
	}

	if err := s.store.Save(ctx, a); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveError(asset, "store")
		}
		return fmt.Errorf("store: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveAssessment(a, s.nowFn().Sub(start))
	}

	s.handleTransition(ctx, a)
	return nil
}

func (s *Scheduler) handleTransition(ctx context.Context, a *permission.Assessment) {
	s.mu.Lock()
	prev, hadPrev := s.lastState[a.Asset]
	s.lastState[a.Asset] = a.State
	s.mu.Unlock()

	if !hadPrev {
		return
	}
	kind := domain.ClassifyTransition(prev, a.State)
	if kind == domain.TransitionSame {
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(a.Asset, kind)
	}
	if s.audit != nil {
		rec := persistence.TransitionRecord{
			Asset:        a.Asset,
			FromState:    prev,
			ToState:      a.State,
			Kind:         kind,
			AssessmentID: a.ID,
			OccurredAt:   a.AssessedAt,
		}
		if err := s.audit.SaveTransition(ctx, rec); err != nil {
			log.Warn().Err(err).Str("asset", a.Asset).Msg("Transition audit write failed")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.StateChanged(ctx, a, kind); err != nil {
			log.Warn().Err(err).Str("asset", a.Asset).Msg("Notification delivery failed")
		}
	}
	if s.protect != nil && a.State == domain.NoTrade && eligibleState(prev) {
		log.Warn().Str("asset", a.Asset).Str("from", string(prev)).Msg("Access revoked, invoking protect hook")
		s.protect(ctx, a)
	}
}

func eligibleState(state domain.PermissionState) bool {
	switch state {
	case domain.TradeAllowed, domain.TradeAllowedReducedRisk, domain.ScalpOnly:
		return true
	}
	return false
}
