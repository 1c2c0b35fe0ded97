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

// DefaultCacheTTL bounds how long a venue's markets survive without a
// refresh. A stalled aggregation loop thus reads as an empty cache, not
// stale prices.
const DefaultCacheTTL = 60 * time.Second

// MarketCache implements domain.MarketCache using one Redis hash per
// platform with JSON-serialized markets keyed by market ID.
//
// Key schema:
//
//	markets:{platform} - hash of market_id -> JSON
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client. A zero
// ttl falls back to DefaultCacheTTL.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MarketCache{rdb: c.Underlying(), ttl: ttl}
}

func marketsKey(platform domain.Platform) string { return "markets:" + string(platform) }

// SetAll replaces a platform's market hash with the given set. The whole
// replacement runs in one transaction so readers never observe a mix of
// two cycles.
func (mc *MarketCache) SetAll(ctx context.Context, platform domain.Platform, markets []domain.UnifiedMarket) error {
	fields := make(map[string]interface{}, len(markets))
	for _, m := range markets {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("redis: marshal market %s: %w", m.MarketID, err)
		}
		fields[m.MarketID] = data
	}

	key := marketsKey(platform)

	pipe := mc.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, mc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set markets %s: %w", platform, err)
	}
	return nil
}

// GetAll returns every cached market for a platform. A missing or expired
// key yields an empty slice, not an error.
func (mc *MarketCache) GetAll(ctx context.Context, platform domain.Platform) ([]domain.UnifiedMarket, error) {
	values, err := mc.rdb.HVals(ctx, marketsKey(platform)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get markets %s: %w", platform, err)
	}

	markets := make([]domain.UnifiedMarket, 0, len(values))
	for _, v := range values {
		var m domain.UnifiedMarket
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("redis: unmarshal market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, nil
}

// Get retrieves one market by platform and ID. It returns
// domain.ErrNotFound when the field does not exist.
func (mc *MarketCache) Get(ctx context.Context, platform domain.Platform, marketID string) (domain.UnifiedMarket, error) {
	data, err := mc.rdb.HGet(ctx, marketsKey(platform), marketID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.UnifiedMarket{}, domain.ErrNotFound
		}
		return domain.UnifiedMarket{}, fmt.Errorf("redis: get market %s/%s: %w", platform, marketID, err)
	}

	var m domain.UnifiedMarket
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("redis: unmarshal market %s: %w", marketID, err)
	}
	return m, nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
