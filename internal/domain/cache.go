package domain

import (
	"context"
	"time"
)

// MarketCache holds the most recent normalized markets per platform.
type MarketCache interface {
	SetAll(ctx context.Context, platform Platform, markets []UnifiedMarket) error
	GetAll(ctx context.Context, platform Platform) ([]UnifiedMarket, error)
	Get(ctx context.Context, platform Platform, marketID string) (UnifiedMarket, error)
}

// ComparisonCache holds the comparisons produced by the latest cycle.
type ComparisonCache interface {
	SetAll(ctx context.Context, comparisons []MarketComparison) error
	GetAll(ctx context.Context) ([]MarketComparison, error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams for cycle, arbitrage,
// and price-move events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter gates requests under a per-key sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion, used to keep
// aggregation cycles from overlapping across replicas. Acquire returns
// ErrLockHeld when another holder owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
