package gates

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tradegate/internal/domain"
)

// ErrMalformedSnapshot is returned when a snapshot is too incomplete for the
// risk gate to even attempt evaluation. This is the only data condition the
// coordinator treats as a hard error: risk FAIL is safety-critical and must
// never be silently skipped. All other gaps degrade inside the verdicts.
var ErrMalformedSnapshot = errors.New("malformed market snapshot")

// Coordinator runs the four gates in their fixed dependency order and packages
// the verdicts with the snapshot's data-quality report for audit.
type Coordinator struct {
	regime  *RegimeGate
	flow    *FlowGate
	risk    *RiskGate
	context *ContextGate
}

// Result is one cycle's worth of gate output.
type Result struct {
	Set
	Quality     domain.DataQuality `json:"quality"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
}

// NewCoordinator validates the gate configuration and wires the evaluators.
func NewCoordinator(cfg *Config) (*Coordinator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gate config: %w", err)
	}
	return &Coordinator{
		regime:  NewRegimeGate(cfg.Regime),
		flow:    NewFlowGate(cfg.Flow),
		risk:    NewRiskGate(cfg.Risk),
		context: NewContextGate(cfg.Context),
	}, nil
}

// Evaluate runs Regime, Flow, Risk, then Context. Context goes last because
// it consumes the other three verdicts; the first three are otherwise
// independent of each other.
func (c *Coordinator) Evaluate(snap *domain.MarketSnapshot) (*Result, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	regime := c.regime.Evaluate(snap)
	flow := c.flow.Evaluate(snap)
	risk := c.risk.Evaluate(snap)
	contextV := c.context.Evaluate(snap, regime, flow, risk)

	log.Debug().
		Str("asset", snap.Asset).
		Str("regime", string(regime.Status)).
		Str("flow", string(flow.Status)).
		Str("risk", string(risk.Status)).
		Str("context", string(contextV.Status)).
		Msg("gates evaluated")

	return &Result{
		Set: Set{
			Regime:  regime,
			Flow:    flow,
			Risk:    risk,
			Context: contextV,
		},
		Quality:     snap.Quality,
		EvaluatedAt: time.Now(),
	}, nil
}

func validateSnapshot(snap *domain.MarketSnapshot) error {
	switch {
	case snap == nil:
		return fmt.Errorf("%w: nil snapshot", ErrMalformedSnapshot)
	case snap.Asset == "":
		return fmt.Errorf("%w: missing asset", ErrMalformedSnapshot)
	case snap.Price <= 0:
		return fmt.Errorf("%w: non-positive price %.4f for %s", ErrMalformedSnapshot, snap.Price, snap.Asset)
	case snap.Exchange == nil:
		return fmt.Errorf("%w: no exchange metrics for %s, risk gate cannot run", ErrMalformedSnapshot, snap.Asset)
	}
	return nil
}
