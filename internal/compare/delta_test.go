package compare

import (
	"testing"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

func TestDeltaSinceLast(t *testing.T) {
	tracker := NewDeltaTracker(NewMemoryHistory(1000))
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("no prior data", func(t *testing.T) {
		if _, ok := tracker.DeltaSinceLast("chiefs vs jaguars", domain.PlatformKalshi); ok {
			t.Error("DeltaSinceLast ok = true with no data, want false")
		}
	})

	t.Run("single point has no delta", func(t *testing.T) {
		tracker.Record("chiefs vs jaguars", domain.PlatformKalshi, 0.55, now)
		if _, ok := tracker.DeltaSinceLast("chiefs vs jaguars", domain.PlatformKalshi); ok {
			t.Error("DeltaSinceLast ok = true with one point, want false")
		}
	})

	t.Run("positive move", func(t *testing.T) {
		tracker.Record("chiefs vs jaguars", domain.PlatformKalshi, 0.58, now.Add(5*time.Second))
		delta, ok := tracker.DeltaSinceLast("chiefs vs jaguars", domain.PlatformKalshi)
		if !ok {
			t.Fatal("DeltaSinceLast ok = false, want true")
		}
		if delta != 3.00 {
			t.Errorf("delta = %v, want 3.00", delta)
		}
	})

	t.Run("negative move", func(t *testing.T) {
		tracker.Record("chiefs vs jaguars", domain.PlatformKalshi, 0.56, now.Add(10*time.Second))
		delta, ok := tracker.DeltaSinceLast("chiefs vs jaguars", domain.PlatformKalshi)
		if !ok {
			t.Fatal("DeltaSinceLast ok = false, want true")
		}
		if delta != -2.00 {
			t.Errorf("delta = %v, want -2.00", delta)
		}
	})
}

func TestAnnotateSignificance(t *testing.T) {
	tracker := NewDeltaTracker(NewMemoryHistory(1000))
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	key := "chiefs vs jaguars"

	prior := domain.MarketComparison{
		Markets: []domain.UnifiedMarket{
			{Platform: domain.PlatformPolymarket, MarketID: "p1", Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.55}}},
			{Platform: domain.PlatformKalshi, MarketID: "k1", Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.50}}},
		},
	}
	if got := tracker.Annotate(&prior, key, now); got != 0 {
		t.Errorf("first Annotate reported %d significant moves, want 0", got)
	}
	if prior.PriceDeltas != nil {
		t.Errorf("first Annotate set deltas %v, want none", prior.PriceDeltas)
	}

	next := domain.MarketComparison{
		Markets: []domain.UnifiedMarket{
			{Platform: domain.PlatformPolymarket, MarketID: "p1", Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.58}}},
			{Platform: domain.PlatformKalshi, MarketID: "k1", Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.505}}},
		},
	}
	if got := tracker.Annotate(&next, key, now.Add(5*time.Second)); got != 1 {
		t.Errorf("second Annotate reported %d significant moves, want 1", got)
	}

	poly, ok := next.PriceDeltas[domain.PlatformPolymarket]
	if !ok {
		t.Fatal("missing polymarket delta")
	}
	if poly.Delta != 3.00 || !poly.Significant {
		t.Errorf("polymarket delta = %+v, want {3.00 true}", poly)
	}

	kalshi, ok := next.PriceDeltas[domain.PlatformKalshi]
	if !ok {
		t.Fatal("missing kalshi delta")
	}
	if kalshi.Delta != 0.50 || kalshi.Significant {
		t.Errorf("kalshi delta = %+v, want {0.50 false}", kalshi)
	}
}

func TestHistoryFIFOEviction(t *testing.T) {
	history := NewMemoryHistory(1000)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 1001; i++ {
		history.Record(domain.PriceHistoryPoint{
			GroupKey:  "g",
			Platform:  domain.PlatformPolymarket,
			Price:     float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	if got := history.Len("g", domain.PlatformPolymarket); got != 1000 {
		t.Fatalf("Len = %d after 1001 records, want 1000", got)
	}

	tail := history.Tail("g", domain.PlatformPolymarket, 1000)
	if len(tail) != 1000 {
		t.Fatalf("Tail returned %d points, want 1000", len(tail))
	}
	if tail[0].Price != 1 {
		t.Errorf("oldest retained price = %v, want 1 (point 0 evicted)", tail[0].Price)
	}
	if tail[len(tail)-1].Price != 1000 {
		t.Errorf("newest price = %v, want 1000", tail[len(tail)-1].Price)
	}
	for i := 1; i < len(tail); i++ {
		if tail[i].Price != tail[i-1].Price+1 {
			t.Fatalf("FIFO order broken at index %d", i)
		}
	}
}

func TestHistoryClear(t *testing.T) {
	history := NewMemoryHistory(10)
	history.Record(domain.PriceHistoryPoint{GroupKey: "g", Platform: domain.PlatformKalshi, Price: 0.5})
	history.Clear()
	if got := history.Len("g", domain.PlatformKalshi); got != 0 {
		t.Errorf("Len = %d after Clear, want 0", got)
	}
}
