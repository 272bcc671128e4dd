package data

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tradegate/internal/domain"
)

// FacadeConfig tunes snapshot assembly.
type FacadeConfig struct {
	MaxAge   time.Duration `yaml:"max_age"`   // source reads older than this count as stale
	CacheTTL time.Duration `yaml:"cache_ttl"` // snapshot cache lifetime
}

// DefaultFacadeConfig returns assembly settings for a 15-minute cycle.
func DefaultFacadeConfig() FacadeConfig {
	return FacadeConfig{
		MaxAge:   10 * time.Minute,
		CacheTTL: 2 * time.Minute,
	}
}

// Validate rejects settings that would mark every source stale.
func (c FacadeConfig) Validate() error {
	if c.MaxAge <= 0 {
		return fmt.Errorf("facade max_age must be positive, got %s", c.MaxAge)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("facade cache_ttl must not be negative, got %s", c.CacheTTL)
	}
	return nil
}

// Facade assembles one MarketSnapshot per (asset, cycle) from the three
// sources. Derivatives are mandatory; options and whale telemetry are
// best-effort and degrade the snapshot's quality when missing.
type Facade struct {
	cfg     FacadeConfig
	derivs  DerivsProvider
	options OptionsProvider
	whale   WhaleProvider
	cache   *SnapshotCache
	nowFn   func() time.Time
}

func NewFacade(cfg FacadeConfig, derivs DerivsProvider, options OptionsProvider, whale WhaleProvider, cache *SnapshotCache) *Facade {
	return &Facade{
		cfg:     cfg,
		derivs:  derivs,
		options: options,
		whale:   whale,
		cache:   cache,
		nowFn:   time.Now,
	}
}

// BuildSnapshot returns the snapshot for asset, from cache when a recent
// one exists. A derivatives failure fails the build; options and whale
// failures leave their sections nil.
func (f *Facade) BuildSnapshot(ctx context.Context, asset string) (*domain.MarketSnapshot, error) {
	if cached, err := f.cache.Get(ctx, asset); err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("Snapshot cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	now := f.nowFn().UTC()

	dres, err := f.derivs.Fetch(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("build snapshot %s: %w", asset, err)
	}

	snap := &domain.MarketSnapshot{
		Asset:     asset,
		Price:     dres.Price,
		Timestamp: now,
		Exchange:  dres.Metrics,
	}
	quality := domain.DataQuality{
		ExchangeAsOf:  dres.AsOf,
		ExchangeFresh: f.fresh(now, dres.AsOf),
	}

	if ores, err := f.options.Fetch(ctx, asset); err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("Options source unavailable")
	} else {
		snap.Options = ores.Metrics
		quality.OptionsAsOf = ores.AsOf
		quality.OptionsFresh = f.fresh(now, ores.AsOf)
	}

	if wres, err := f.whale.Fetch(ctx, asset); err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("Whale source unavailable")
	} else {
		snap.Whale = wres.Metrics
		quality.WhaleAsOf = wres.AsOf
		quality.WhaleFresh = f.fresh(now, wres.AsOf)
	}

	quality.OverallScore = qualityScore(quality)
	snap.Quality = quality

	if err := f.cache.Put(ctx, snap); err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("Snapshot cache write failed")
	}
	return snap, nil
}

func (f *Facade) fresh(now, asOf time.Time) bool {
	if asOf.IsZero() {
		return false
	}
	return now.Sub(asOf) <= f.cfg.MaxAge
}

// qualityScore weights the mandatory exchange source at half and the two
// optional sources at a quarter each.
func qualityScore(q domain.DataQuality) float64 {
	score := 0.0
	if q.ExchangeFresh {
		score += 0.5
	}
	if q.OptionsFresh {
		score += 0.25
	}
	if q.WhaleFresh {
		score += 0.25
	}
	return score
}
