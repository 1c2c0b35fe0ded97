package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MappingStore persists manual market-ID mappings.
type MappingStore interface {
	Upsert(ctx context.Context, m ManualMapping) error
	GetByID(ctx context.Context, id string) (ManualMapping, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]ManualMapping, error)
}

// SnapshotStore persists per-cycle export snapshots.
type SnapshotStore interface {
	Insert(ctx context.Context, snap ExportSnapshot) error
	GetByID(ctx context.Context, id string) (ExportSnapshot, error)
	ListRecent(ctx context.Context, limit int) ([]ExportSnapshot, error)
}

// HistoryArchive persists price history points for offline analysis. The
// hot path reads history from the in-memory tracker; the archive is
// write-mostly.
type HistoryArchive interface {
	InsertBatch(ctx context.Context, points []PriceHistoryPoint) error
	ListByGroup(ctx context.Context, groupKey string, opts ListOpts) ([]PriceHistoryPoint, error)
}

// HistoryStore is the injected state the delta tracker records into. It is
// bounded per (group key, platform) with FIFO eviction.
type HistoryStore interface {
	Record(point PriceHistoryPoint)
	LastTwo(groupKey string, platform Platform) (prev, cur PriceHistoryPoint, ok bool)
	Tail(groupKey string, platform Platform, n int) []PriceHistoryPoint
	Len(groupKey string, platform Platform) int
	Clear()
}
