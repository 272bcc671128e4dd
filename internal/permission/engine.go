package permission

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tradegate/internal/conflict"
	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/explain"
	"github.com/sawpanic/tradegate/internal/gates"
)

// EngineConfig tunes the facade.
type EngineConfig struct {
	// ValidityWindow is how long an assessment stays authoritative.
	ValidityWindow time.Duration `yaml:"validity_window"` // 15m
}

// DefaultEngineConfig returns the production engine settings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{ValidityWindow: 15 * time.Minute}
}

// Validate rejects unusable engine settings.
func (c EngineConfig) Validate() error {
	if c.ValidityWindow <= 0 {
		return fmt.Errorf("validity_window %s must be positive", c.ValidityWindow)
	}
	return nil
}

// Engine is the permission-state facade: gates → conflicts → state →
// uncertainty → explanation, packaged into one immutable assessment. The
// whole computation is synchronous and pure over the snapshot, so evaluations
// of different assets or cycles can run concurrently without coordination.
type Engine struct {
	cfg         EngineConfig
	coordinator *gates.Coordinator
	detector    *conflict.Detector
	generator   *explain.Generator
	nowFn       func() time.Time
	idFn        func() string
}

// NewEngine wires the pipeline. Configuration problems are hard startup
// errors; data problems at evaluation time are not.
func NewEngine(cfg EngineConfig, gateCfg *gates.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if gateCfg == nil {
		gateCfg = gates.DefaultConfig()
	}
	coordinator, err := gates.NewCoordinator(gateCfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:         cfg,
		coordinator: coordinator,
		detector:    conflict.NewDetector(gateCfg.Flow.MinCVDMagnitudeUSD),
		generator:   explain.NewGenerator(),
		nowFn:       time.Now,
		idFn:        func() string { return uuid.NewString() },
	}, nil
}

// Evaluate runs the full pipeline for one snapshot. The only error path is a
// snapshot too malformed for the risk gate to evaluate; every other data gap
// is absorbed into verdict confidence, freshness, and caution points.
func (e *Engine) Evaluate(snap *domain.MarketSnapshot) (*Assessment, error) {
	result, err := e.coordinator.Evaluate(snap)
	if err != nil {
		return nil, err
	}

	// Conflict detection must precede state calculation: the WAIT branch of
	// the cascade reads conflict severity.
	conflicts := e.detector.Detect(&result.Set)
	state, rule := CalculateWithRule(CalcInputs{Gates: &result.Set, Conflicts: conflicts})
	uncertainty := AssessUncertainty(&result.Set, conflicts)
	explanation := e.generator.Generate(snap.Asset, state, &result.Set, conflicts, uncertainty)

	now := e.nowFn()
	assessment := &Assessment{
		ID:          e.idFn(),
		Asset:       snap.Asset,
		State:       state,
		DecidedBy:   rule,
		Gates:       result.Set,
		Conflicts:   conflicts,
		Uncertainty: uncertainty,
		Explanation: explanation,
		Quality:     result.Quality,
		AssessedAt:  now,
		ValidUntil:  now.Add(e.cfg.ValidityWindow),
	}

	log.Info().
		Str("asset", snap.Asset).
		Str("state", string(state)).
		Str("rule", rule).
		Str("uncertainty", string(uncertainty)).
		Int("conflicts", len(conflicts)).
		Msg("permission assessed")

	return assessment, nil
}
