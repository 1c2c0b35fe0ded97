// Package compare turns matched groups into price comparisons and tracks
// price movement across aggregation cycles.
package compare

import (
	"sync"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// MemoryHistory is the in-process implementation of domain.HistoryStore.
// Each (group key, platform) pair keeps a bounded FIFO sequence of price
// points; when the bound is reached the oldest point is evicted.
type MemoryHistory struct {
	capacity int
	points   map[string][]domain.PriceHistoryPoint
	mu       sync.RWMutex
}

// NewMemoryHistory creates a history store bounded to capacity points per
// (group key, platform) pair. A non-positive capacity falls back to the
// default.
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &MemoryHistory{
		capacity: capacity,
		points:   make(map[string][]domain.PriceHistoryPoint),
	}
}

func historyKey(groupKey string, platform domain.Platform) string {
	return groupKey + "|" + string(platform)
}

// Record appends a point, evicting the oldest when the series is full.
func (h *MemoryHistory) Record(point domain.PriceHistoryPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := historyKey(point.GroupKey, point.Platform)
	series := append(h.points[key], point)
	if len(series) > h.capacity {
		series = series[len(series)-h.capacity:]
	}
	h.points[key] = series
}

// LastTwo returns the two most recent points for the series, for
// period-over-period deltas. ok is false when fewer than two points exist.
func (h *MemoryHistory) LastTwo(groupKey string, platform domain.Platform) (prev, cur domain.PriceHistoryPoint, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	series := h.points[historyKey(groupKey, platform)]
	if len(series) < 2 {
		return domain.PriceHistoryPoint{}, domain.PriceHistoryPoint{}, false
	}
	return series[len(series)-2], series[len(series)-1], true
}

// Tail returns a copy of the most recent n points, oldest first.
func (h *MemoryHistory) Tail(groupKey string, platform domain.Platform, n int) []domain.PriceHistoryPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	series := h.points[historyKey(groupKey, platform)]
	if n <= 0 || len(series) == 0 {
		return nil
	}
	if n > len(series) {
		n = len(series)
	}
	out := make([]domain.PriceHistoryPoint, n)
	copy(out, series[len(series)-n:])
	return out
}

// Len returns the number of retained points for the series.
func (h *MemoryHistory) Len(groupKey string, platform domain.Platform) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.points[historyKey(groupKey, platform)])
}

// Clear drops all retained history.
func (h *MemoryHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.points = make(map[string][]domain.PriceHistoryPoint)
}

var _ domain.HistoryStore = (*MemoryHistory)(nil)
