package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/marketagg/internal/compare"
	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/alanyoungcy/marketagg/internal/match"
)

type fakeFetcher struct {
	platform domain.Platform
	markets  []domain.UnifiedMarket
	err      error
	delay    time.Duration
	calls    int
}

func (f *fakeFetcher) Platform() domain.Platform { return f.platform }

func (f *fakeFetcher) FetchMarkets(ctx context.Context, limit int) ([]domain.UnifiedMarket, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

type fakeSingleFetcher struct {
	fakeFetcher
	single      map[string]domain.UnifiedMarket
	singleCalls int
}

func (f *fakeSingleFetcher) FetchMarket(ctx context.Context, marketID string) (domain.UnifiedMarket, error) {
	f.singleCalls++
	m, ok := f.single[marketID]
	if !ok {
		return domain.UnifiedMarket{}, domain.ErrNotFound
	}
	return m, nil
}

type fakeMarketCache struct {
	byPlatform map[domain.Platform][]domain.UnifiedMarket
	err        error
}

func newFakeMarketCache() *fakeMarketCache {
	return &fakeMarketCache{byPlatform: make(map[domain.Platform][]domain.UnifiedMarket)}
}

func (f *fakeMarketCache) SetAll(ctx context.Context, platform domain.Platform, markets []domain.UnifiedMarket) error {
	if f.err != nil {
		return f.err
	}
	f.byPlatform[platform] = markets
	return nil
}

func (f *fakeMarketCache) GetAll(ctx context.Context, platform domain.Platform) ([]domain.UnifiedMarket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byPlatform[platform], nil
}

func (f *fakeMarketCache) Get(ctx context.Context, platform domain.Platform, marketID string) (domain.UnifiedMarket, error) {
	if f.err != nil {
		return domain.UnifiedMarket{}, f.err
	}
	for _, m := range f.byPlatform[platform] {
		if m.MarketID == marketID {
			return m, nil
		}
	}
	return domain.UnifiedMarket{}, domain.ErrNotFound
}

type fakeComparisonCache struct {
	comparisons []domain.MarketComparison
}

func (f *fakeComparisonCache) SetAll(ctx context.Context, comparisons []domain.MarketComparison) error {
	f.comparisons = comparisons
	return nil
}

func (f *fakeComparisonCache) GetAll(ctx context.Context) ([]domain.MarketComparison, error) {
	return f.comparisons, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func binaryMarket(platform domain.Platform, id, question string, yes float64, start time.Time) domain.UnifiedMarket {
	return domain.UnifiedMarket{
		Platform: platform,
		MarketID: id,
		Question: question,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: yes},
			{Name: "No", Price: 1 - yes},
		},
		MarketType:      domain.MarketTypeSports,
		StartTime:       &start,
		IsActive:        true,
		NormalizedTitle: match.NormalizeTitle(question),
		Teams:           match.ExtractTeams(question),
	}
}

func newTestAggregator(fetchers ...Fetcher) *Aggregator {
	logger := testLogger()
	deps := Deps{
		Fetchers:   fetchers,
		Matcher:    match.New(match.DefaultConfig(), logger),
		Comparator: compare.NewComparator(logger),
		Tracker:    compare.NewDeltaTracker(compare.NewMemoryHistory(domain.DefaultHistoryCapacity)),
	}
	return New(Config{Interval: time.Hour, FetchTimeout: time.Second}, deps, logger)
}

func TestRunCycleMatchesAcrossPlatforms(t *testing.T) {
	start := time.Now().UTC().Add(2 * time.Hour)
	poly := &fakeFetcher{
		platform: domain.PlatformPolymarket,
		markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", 0.55, start),
		},
	}
	kalshi := &fakeFetcher{
		platform: domain.PlatformKalshi,
		markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformKalshi, "k1", "Chiefs beat Jaguars", 0.52, start),
		},
	}

	agg := newTestAggregator(poly, kalshi)
	if err := agg.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle() error = %v", err)
	}

	stats := agg.Stats()
	if stats.Cycle != 1 {
		t.Errorf("Cycle = %d, want 1", stats.Cycle)
	}
	if stats.MarketsByVenue[domain.PlatformPolymarket] != 1 || stats.MarketsByVenue[domain.PlatformKalshi] != 1 {
		t.Errorf("MarketsByVenue = %v", stats.MarketsByVenue)
	}
	if stats.Comparisons != 1 {
		t.Fatalf("Comparisons = %d, want 1", stats.Comparisons)
	}

	comparisons := agg.Comparisons(ComparisonFilter{})
	if len(comparisons) != 1 {
		t.Fatalf("got %d comparisons, want 1", len(comparisons))
	}
	c := comparisons[0]
	if c.BestPlatform != domain.PlatformPolymarket {
		t.Errorf("BestPlatform = %s, want polymarket", c.BestPlatform)
	}
	if c.PriceSpread != 3.00 {
		t.Errorf("PriceSpread = %v, want 3.00", c.PriceSpread)
	}
}

func TestRunCycleDegradedOnFetchFailure(t *testing.T) {
	start := time.Now().UTC().Add(2 * time.Hour)
	healthy := &fakeFetcher{
		platform: domain.PlatformPolymarket,
		markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", 0.55, start),
		},
	}
	broken := &fakeFetcher{
		platform: domain.PlatformKalshi,
		err:      domain.ErrFetchFailed,
	}

	agg := newTestAggregator(healthy, broken)
	if err := agg.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle() error = %v, want degraded success", err)
	}

	stats := agg.Stats()
	if len(agg.Markets(MarketFilter{})) != 1 {
		t.Errorf("got %d markets, want 1 from the healthy venue", len(agg.Markets(MarketFilter{})))
	}
	if _, ok := stats.FetchErrors[domain.PlatformKalshi]; !ok {
		t.Errorf("FetchErrors = %v, want kalshi entry", stats.FetchErrors)
	}
}

func TestRunCycleSkipsMalformedMarkets(t *testing.T) {
	start := time.Now().UTC().Add(2 * time.Hour)
	malformed := binaryMarket(domain.PlatformPolymarket, "bad", "Broken market", 0.9, start)
	malformed.Outcomes[1].Price = 0.9

	poly := &fakeFetcher{
		platform: domain.PlatformPolymarket,
		markets: []domain.UnifiedMarket{
			malformed,
			binaryMarket(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", 0.55, start),
		},
	}

	agg := newTestAggregator(poly)
	if err := agg.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle() error = %v", err)
	}

	stats := agg.Stats()
	if stats.MarketsSkipped != 1 {
		t.Errorf("MarketsSkipped = %d, want 1", stats.MarketsSkipped)
	}
	if got := len(agg.Markets(MarketFilter{})); got != 1 {
		t.Errorf("got %d markets, want 1", got)
	}
}

func TestRunCycleRejectsOverlap(t *testing.T) {
	agg := newTestAggregator()
	if !agg.inFlight.CompareAndSwap(false, true) {
		t.Fatal("could not arm in-flight guard")
	}
	defer agg.inFlight.Store(false)

	if err := agg.runCycle(context.Background()); !errors.Is(err, domain.ErrCycleInFlight) {
		t.Errorf("runCycle() error = %v, want ErrCycleInFlight", err)
	}
	if err := agg.Refresh(context.Background()); !errors.Is(err, domain.ErrCycleInFlight) {
		t.Errorf("Refresh() error = %v, want ErrCycleInFlight", err)
	}
}

func TestDeltasAcrossCycles(t *testing.T) {
	start := time.Now().UTC().Add(2 * time.Hour)
	poly := &fakeFetcher{
		platform: domain.PlatformPolymarket,
		markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", 0.55, start),
		},
	}
	kalshi := &fakeFetcher{
		platform: domain.PlatformKalshi,
		markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformKalshi, "k1", "Chiefs beat Jaguars", 0.52, start),
		},
	}

	agg := newTestAggregator(poly, kalshi)
	if err := agg.runCycle(context.Background()); err != nil {
		t.Fatalf("first cycle error = %v", err)
	}

	poly.markets = []domain.UnifiedMarket{
		binaryMarket(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", 0.58, start),
	}
	if err := agg.runCycle(context.Background()); err != nil {
		t.Fatalf("second cycle error = %v", err)
	}

	comparisons := agg.Comparisons(ComparisonFilter{})
	if len(comparisons) != 1 {
		t.Fatalf("got %d comparisons, want 1", len(comparisons))
	}
	delta, ok := comparisons[0].PriceDeltas[domain.PlatformPolymarket]
	if !ok {
		t.Fatal("missing polymarket delta")
	}
	if delta.Delta != 3.00 {
		t.Errorf("Delta = %v, want 3.00", delta.Delta)
	}
	if !delta.Significant {
		t.Error("Significant = false, want true for a 3pp move")
	}
	if agg.Stats().SignificantMoves != 1 {
		t.Errorf("SignificantMoves = %d, want 1", agg.Stats().SignificantMoves)
	}
}

func TestMarketsFilter(t *testing.T) {
	start := time.Now().UTC().Add(2 * time.Hour)
	sports := binaryMarket(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", 0.55, start)
	crypto := binaryMarket(domain.PlatformKalshi, "k1", "Bitcoin above 100k", 0.4, start)
	crypto.MarketType = domain.MarketTypeCrypto

	poly := &fakeFetcher{platform: domain.PlatformPolymarket, markets: []domain.UnifiedMarket{sports}}
	kalshi := &fakeFetcher{platform: domain.PlatformKalshi, markets: []domain.UnifiedMarket{crypto}}

	agg := newTestAggregator(poly, kalshi)
	if err := agg.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle() error = %v", err)
	}

	if got := len(agg.Markets(MarketFilter{Platform: domain.PlatformKalshi})); got != 1 {
		t.Errorf("kalshi filter returned %d markets, want 1", got)
	}
	if got := len(agg.Markets(MarketFilter{MarketType: domain.MarketTypeCrypto})); got != 1 {
		t.Errorf("crypto filter returned %d markets, want 1", got)
	}
	if got := len(agg.Markets(MarketFilter{})); got != 2 {
		t.Errorf("unfiltered returned %d markets, want 2", got)
	}
}

func TestMarketReadFallbacks(t *testing.T) {
	ctx := context.Background()
	start := time.Now().UTC().Add(2 * time.Hour)
	inCycle := binaryMarket(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", 0.55, start)
	cached := binaryMarket(domain.PlatformKalshi, "k-cached", "Chiefs beat Jaguars", 0.52, start)
	live := binaryMarket(domain.PlatformKalshi, "k-live", "Bills beat Dolphins", 0.61, start)

	t.Run("cycle state wins", func(t *testing.T) {
		poly := &fakeFetcher{platform: domain.PlatformPolymarket, markets: []domain.UnifiedMarket{inCycle}}
		agg := newTestAggregator(poly)
		if err := agg.runCycle(ctx); err != nil {
			t.Fatalf("runCycle() error = %v", err)
		}
		got, err := agg.Market(ctx, domain.PlatformPolymarket, "p1")
		if err != nil {
			t.Fatalf("Market() error = %v", err)
		}
		if got.MarketID != "p1" {
			t.Errorf("MarketID = %q, want p1", got.MarketID)
		}
	})

	t.Run("falls back to cache", func(t *testing.T) {
		cache := newFakeMarketCache()
		cache.byPlatform[domain.PlatformKalshi] = []domain.UnifiedMarket{cached}

		agg := New(Config{}, Deps{
			Matcher:     match.New(match.DefaultConfig(), testLogger()),
			Comparator:  compare.NewComparator(testLogger()),
			Tracker:     compare.NewDeltaTracker(compare.NewMemoryHistory(domain.DefaultHistoryCapacity)),
			MarketCache: cache,
		}, testLogger())

		got, err := agg.Market(ctx, domain.PlatformKalshi, "k-cached")
		if err != nil {
			t.Fatalf("Market() error = %v", err)
		}
		if got.MarketID != "k-cached" {
			t.Errorf("MarketID = %q, want k-cached", got.MarketID)
		}
	})

	t.Run("falls back to live fetch", func(t *testing.T) {
		fetcher := &fakeSingleFetcher{
			fakeFetcher: fakeFetcher{platform: domain.PlatformKalshi},
			single:      map[string]domain.UnifiedMarket{"k-live": live},
		}
		agg := newTestAggregator(fetcher)

		got, err := agg.Market(ctx, domain.PlatformKalshi, "k-live")
		if err != nil {
			t.Fatalf("Market() error = %v", err)
		}
		if got.MarketID != "k-live" {
			t.Errorf("MarketID = %q, want k-live", got.MarketID)
		}
		if fetcher.singleCalls != 1 {
			t.Errorf("singleCalls = %d, want 1", fetcher.singleCalls)
		}
	})

	t.Run("unknown market", func(t *testing.T) {
		agg := newTestAggregator(&fakeFetcher{platform: domain.PlatformKalshi})
		if _, err := agg.Market(ctx, domain.PlatformKalshi, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Market() error = %v, want ErrNotFound", err)
		}
	})
}

func TestRestoreWarmsStateFromCaches(t *testing.T) {
	ctx := context.Background()
	start := time.Now().UTC().Add(2 * time.Hour)
	cachedMarket := binaryMarket(domain.PlatformKalshi, "k1", "Chiefs beat Jaguars", 0.52, start)

	cache := newFakeMarketCache()
	cache.byPlatform[domain.PlatformKalshi] = []domain.UnifiedMarket{cachedMarket}
	compCache := &fakeComparisonCache{comparisons: []domain.MarketComparison{
		{Question: "chiefs beat jaguars", PriceSpread: 3.0},
	}}

	agg := New(Config{}, Deps{
		Fetchers:        []Fetcher{&fakeFetcher{platform: domain.PlatformKalshi}},
		Matcher:         match.New(match.DefaultConfig(), testLogger()),
		Comparator:      compare.NewComparator(testLogger()),
		Tracker:         compare.NewDeltaTracker(compare.NewMemoryHistory(domain.DefaultHistoryCapacity)),
		MarketCache:     cache,
		ComparisonCache: compCache,
	}, testLogger())

	agg.restore(ctx)

	if got := len(agg.Markets(MarketFilter{})); got != 1 {
		t.Errorf("restored %d markets, want 1", got)
	}
	if got := agg.Comparisons(ComparisonFilter{}); len(got) != 1 || got[0].Question != "chiefs beat jaguars" {
		t.Errorf("restored comparisons = %v, want the cached one", got)
	}
}

func TestSnapshot(t *testing.T) {
	start := time.Now().UTC().Add(2 * time.Hour)
	poly := &fakeFetcher{
		platform: domain.PlatformPolymarket,
		markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", 0.55, start),
		},
	}
	kalshi := &fakeFetcher{
		platform: domain.PlatformKalshi,
		markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformKalshi, "k1", "Chiefs beat Jaguars", 0.52, start),
		},
	}

	agg := newTestAggregator(poly, kalshi)
	if err := agg.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle() error = %v", err)
	}

	snap, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.ID == "" {
		t.Error("snapshot ID is empty")
	}
	if len(snap.Comparisons) != 1 {
		t.Errorf("got %d comparisons in snapshot, want 1", len(snap.Comparisons))
	}
	if snap.Stats.Cycle != 1 {
		t.Errorf("snapshot Stats.Cycle = %d, want 1", snap.Stats.Cycle)
	}
}
