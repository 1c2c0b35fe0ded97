package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/redis/go-redis/v9"
)

// comparisonsKey holds the latest cycle's comparisons as one JSON array.
// The whole set is replaced atomically each cycle, so a single value is
// simpler than a hash and keeps ordering intact.
const comparisonsKey = "comparisons:latest"

// ComparisonCache implements domain.ComparisonCache on a single Redis key.
type ComparisonCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewComparisonCache creates a ComparisonCache backed by the given Client.
// A zero ttl falls back to DefaultCacheTTL.
func NewComparisonCache(c *Client, ttl time.Duration) *ComparisonCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ComparisonCache{rdb: c.Underlying(), ttl: ttl}
}

// SetAll replaces the cached comparison set.
func (cc *ComparisonCache) SetAll(ctx context.Context, comparisons []domain.MarketComparison) error {
	data, err := json.Marshal(comparisons)
	if err != nil {
		return fmt.Errorf("redis: marshal comparisons: %w", err)
	}
	if err := cc.rdb.Set(ctx, comparisonsKey, data, cc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set comparisons: %w", err)
	}
	return nil
}

// GetAll returns the cached comparisons. A missing or expired key yields
// an empty slice, not an error.
func (cc *ComparisonCache) GetAll(ctx context.Context) ([]domain.MarketComparison, error) {
	data, err := cc.rdb.Get(ctx, comparisonsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: get comparisons: %w", err)
	}

	var comparisons []domain.MarketComparison
	if err := json.Unmarshal(data, &comparisons); err != nil {
		return nil, fmt.Errorf("redis: unmarshal comparisons: %w", err)
	}
	return comparisons, nil
}

// Compile-time interface check.
var _ domain.ComparisonCache = (*ComparisonCache)(nil)
