package compare

import (
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// DeltaTracker records per-platform primary prices across cycles and
// computes period-over-period deltas. The backing history store is
// injected so multiple independent trackers can coexist and tests run
// against isolated state. Only the aggregation loop writes to it, one
// cycle at a time.
type DeltaTracker struct {
	history domain.HistoryStore
}

// NewDeltaTracker creates a tracker recording into the given store.
func NewDeltaTracker(history domain.HistoryStore) *DeltaTracker {
	return &DeltaTracker{history: history}
}

// Record appends one observed price for a (group key, platform) series.
func (t *DeltaTracker) Record(groupKey string, platform domain.Platform, price float64, ts time.Time) {
	t.history.Record(domain.PriceHistoryPoint{
		GroupKey:  groupKey,
		Platform:  platform,
		Price:     price,
		Timestamp: ts,
	})
}

// DeltaSinceLast returns the percentage-point move between the two most
// recent recorded prices. ok is false when no prior data exists.
func (t *DeltaTracker) DeltaSinceLast(groupKey string, platform domain.Platform) (float64, bool) {
	prev, cur, ok := t.history.LastTwo(groupKey, platform)
	if !ok {
		return 0, false
	}
	return round2((cur.Price - prev.Price) * 100), true
}

// Annotate records the current primary price of every market in the
// comparison and fills in PriceDeltas for the platforms that have prior
// history. Returns the number of significant moves observed.
func (t *DeltaTracker) Annotate(c *domain.MarketComparison, groupKey string, now time.Time) int {
	significant := 0
	for _, m := range c.Markets {
		price, ok := m.PrimaryPrice()
		if !ok {
			continue
		}
		t.Record(groupKey, m.Platform, price, now)

		delta, ok := t.DeltaSinceLast(groupKey, m.Platform)
		if !ok {
			continue
		}
		if c.PriceDeltas == nil {
			c.PriceDeltas = make(map[domain.Platform]domain.PriceDelta)
		}
		d := domain.PriceDelta{
			Delta:       delta,
			Significant: delta >= domain.SignificantDeltaPP || delta <= -domain.SignificantDeltaPP,
		}
		c.PriceDeltas[m.Platform] = d
		if d.Significant {
			significant++
		}
	}
	return significant
}

// History exposes the tracker's backing store for query handlers.
func (t *DeltaTracker) History() domain.HistoryStore {
	return t.history
}
