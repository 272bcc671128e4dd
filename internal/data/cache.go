package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/tradegate/internal/domain"
)

// SnapshotCache keeps recent snapshots in Redis so repeated reads within
// a cycle do not re-hit the venues. A nil client disables caching.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(asset string) string {
	return "tradegate:snapshot:" + asset
}

// Get returns the cached snapshot for asset, or (nil, nil) on a miss.
func (c *SnapshotCache) Get(ctx context.Context, asset string) (*domain.MarketSnapshot, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, snapshotKey(asset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot cache get %s: %w", asset, err)
	}
	var snap domain.MarketSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("snapshot cache decode %s: %w", asset, err)
	}
	return &snap, nil
}

// Put stores the snapshot under its asset key with the configured TTL.
func (c *SnapshotCache) Put(ctx context.Context, snap *domain.MarketSnapshot) error {
	if c == nil || c.client == nil || snap == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot cache encode %s: %w", snap.Asset, err)
	}
	if err := c.client.Set(ctx, snapshotKey(snap.Asset), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot cache put %s: %w", snap.Asset, err)
	}
	return nil
}
