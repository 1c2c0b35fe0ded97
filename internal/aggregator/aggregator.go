// Package aggregator drives the periodic aggregation cycle: concurrent
// platform fetches, then synchronous matching, comparison, and delta
// tracking over the combined result.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketagg/internal/compare"
	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/alanyoungcy/marketagg/internal/match"
	"github.com/alanyoungcy/marketagg/internal/notify"
)

// Signal bus channels published by the aggregator.
const (
	ChannelCycle = "ch:cycle"
	ChannelArb   = "ch:arb"
	ChannelMove  = "ch:move"

	StreamComparisons = "stream:comparisons"
)

// Fetcher is one platform's market source. Implementations live in the
// platform packages.
type Fetcher interface {
	Platform() domain.Platform
	FetchMarkets(ctx context.Context, limit int) ([]domain.UnifiedMarket, error)
}

// Config holds the aggregation loop settings.
type Config struct {
	// Interval between cycle starts.
	Interval time.Duration

	// FetchTimeout bounds each platform fetch independently. A venue that
	// exceeds it contributes nothing to the cycle.
	FetchTimeout time.Duration

	// LimitPerVenue caps how many markets each platform fetch requests.
	LimitPerVenue int
}

// Deps bundles the aggregator's collaborators. Fetchers, Matcher,
// Comparator, and Tracker are required; everything else is optional and
// skipped when nil.
type Deps struct {
	Fetchers   []Fetcher
	Matcher    *match.Matcher
	Comparator *compare.Comparator
	Tracker    *compare.DeltaTracker

	Mappings        domain.MappingStore
	Locks           domain.LockManager
	MarketCache     domain.MarketCache
	ComparisonCache domain.ComparisonCache
	Snapshots       domain.SnapshotStore
	Archive         domain.HistoryArchive
	Bus             domain.SignalBus
	Notifier        *notify.Notifier
}

// Aggregator owns the cycle loop and the latest cycle's output. Cycles
// never overlap: the loop runs them inline and a manual refresh that
// arrives mid-cycle is rejected.
type Aggregator struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	inFlight atomic.Bool
	refresh  chan chan error

	mu          sync.RWMutex
	markets     []domain.UnifiedMarket
	comparisons []domain.MarketComparison
	stats       domain.CycleStats
	cycle       int64
}

// New creates an Aggregator.
func New(cfg Config, deps Deps, logger *slog.Logger) *Aggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.LimitPerVenue <= 0 {
		cfg.LimitPerVenue = 100
	}
	return &Aggregator{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.With(slog.String("component", "aggregator")),
		refresh: make(chan chan error, 1),
	}
}

// Run executes cycles until the context is cancelled. The first cycle
// starts immediately. A manual refresh trigger forces a cycle out of
// schedule. On cancellation the in-flight cycle completes before Run
// returns, so no partial state is ever published.
func (a *Aggregator) Run(ctx context.Context) error {
	a.restore(ctx)
	if err := a.runCycle(ctx); err != nil {
		a.logger.Error("cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("aggregation loop stopped")
			return ctx.Err()

		case <-ticker.C:
			if err := a.runCycle(ctx); err != nil {
				a.logger.Error("cycle failed", slog.String("error", err.Error()))
			}

		case done := <-a.refresh:
			done <- a.runCycle(ctx)
		}
	}
}

// RunManual runs an immediate first cycle and then executes cycles only on
// manual refresh triggers, with no periodic schedule. Used by the serve
// mode, where the API fronts the latest state and operators decide when to
// re-aggregate.
func (a *Aggregator) RunManual(ctx context.Context) error {
	a.restore(ctx)
	if err := a.runCycle(ctx); err != nil {
		a.logger.Error("cycle failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("aggregation loop stopped")
			return ctx.Err()
		case done := <-a.refresh:
			done <- a.runCycle(ctx)
		}
	}
}

// RunOnce executes a single cycle and returns.
func (a *Aggregator) RunOnce(ctx context.Context) error {
	return a.runCycle(ctx)
}

// Refresh forces an immediate cycle and waits for it to finish. Returns
// domain.ErrCycleInFlight when a cycle is already running.
func (a *Aggregator) Refresh(ctx context.Context) error {
	if a.inFlight.Load() {
		return domain.ErrCycleInFlight
	}
	done := make(chan error, 1)
	select {
	case a.refresh <- done:
	default:
		return domain.ErrCycleInFlight
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// restore warms the in-memory state from the caches so a restarted process
// serves the previous run's output until the first cycle lands. Cache
// failures leave the state empty; the cycle fills it shortly after.
func (a *Aggregator) restore(ctx context.Context) {
	var markets []domain.UnifiedMarket
	if a.deps.MarketCache != nil {
		for _, f := range a.deps.Fetchers {
			cached, err := a.deps.MarketCache.GetAll(ctx, f.Platform())
			if err != nil {
				a.logger.Warn("market cache restore failed",
					slog.String("platform", string(f.Platform())),
					slog.String("error", err.Error()),
				)
				continue
			}
			markets = append(markets, cached...)
		}
	}

	var comparisons []domain.MarketComparison
	if a.deps.ComparisonCache != nil {
		cached, err := a.deps.ComparisonCache.GetAll(ctx)
		if err != nil {
			a.logger.Warn("comparison cache restore failed", slog.String("error", err.Error()))
		} else {
			comparisons = cached
		}
	}

	if len(markets) == 0 && len(comparisons) == 0 {
		return
	}

	a.mu.Lock()
	if len(a.markets) == 0 {
		a.markets = markets
	}
	if len(a.comparisons) == 0 {
		a.comparisons = comparisons
	}
	a.mu.Unlock()

	a.logger.Info("state restored from cache",
		slog.Int("markets", len(markets)),
		slog.Int("comparisons", len(comparisons)),
	)
}

// runCycle executes one full aggregation cycle. The in-flight guard makes
// overlapping cycles impossible even if a refresh races the ticker.
func (a *Aggregator) runCycle(ctx context.Context) error {
	if !a.inFlight.CompareAndSwap(false, true) {
		return domain.ErrCycleInFlight
	}
	defer a.inFlight.Store(false)

	// With multiple replicas only one may aggregate at a time. A failed
	// lock acquisition (other than contention) fails open.
	if a.deps.Locks != nil {
		unlock, err := a.deps.Locks.Acquire(ctx, "aggregation-cycle", 2*a.cfg.Interval)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			a.logger.Debug("cycle lock held elsewhere, skipping")
			return nil
		case err != nil:
			a.logger.Warn("cycle lock acquire failed", slog.String("error", err.Error()))
		default:
			defer unlock()
		}
	}

	start := time.Now().UTC()
	cycle := atomic.AddInt64(&a.cycle, 1)

	stats := domain.CycleStats{
		Cycle:          cycle,
		StartedAt:      start,
		MarketsByVenue: make(map[domain.Platform]int),
	}

	markets := a.fetchAll(ctx, &stats)

	// Validate before matching; malformed records are skipped, the rest
	// of the cycle proceeds.
	valid := markets[:0]
	for _, m := range markets {
		if err := m.Validate(); err != nil {
			stats.MarketsSkipped++
			a.logger.Debug("skipping malformed market", slog.String("error", err.Error()))
			continue
		}
		valid = append(valid, m)
	}

	if a.deps.Mappings != nil {
		mappings, err := a.deps.Mappings.List(ctx)
		if err != nil {
			a.logger.Warn("loading manual mappings failed", slog.String("error", err.Error()))
		} else {
			a.deps.Matcher.SetMappings(mappings)
		}
	}

	groups := a.deps.Matcher.BuildGroups(valid)
	stats.GroupsMatched = len(groups)

	now := time.Now().UTC()
	comparisons := make([]domain.MarketComparison, 0, len(groups))
	for _, g := range groups {
		c, ok := a.deps.Comparator.Compare(g, now)
		if !ok {
			continue
		}
		stats.SignificantMoves += a.deps.Tracker.Annotate(&c, g.CanonicalTitle, now)
		if c.ArbitrageOpportunity {
			stats.ArbitrageCount++
		}
		comparisons = append(comparisons, c)
	}
	stats.Comparisons = len(comparisons)
	stats.Duration = time.Since(start)

	a.mu.Lock()
	a.markets = valid
	a.comparisons = comparisons
	a.stats = stats
	a.mu.Unlock()

	a.publish(ctx, stats, comparisons, valid)

	a.logger.Info("cycle complete",
		slog.Int64("cycle", stats.Cycle),
		slog.Int("markets", len(valid)),
		slog.Int("skipped", stats.MarketsSkipped),
		slog.Int("groups", stats.GroupsMatched),
		slog.Int("comparisons", stats.Comparisons),
		slog.Int("arbitrage", stats.ArbitrageCount),
		slog.Duration("duration", stats.Duration),
	)
	return nil
}

// fetchAll fans out to every platform concurrently, each fetch bounded by
// its own timeout. A failing or slow venue contributes zero markets and
// the cycle continues degraded.
func (a *Aggregator) fetchAll(ctx context.Context, stats *domain.CycleStats) []domain.UnifiedMarket {
	var (
		mu      sync.Mutex
		markets []domain.UnifiedMarket
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range a.deps.Fetchers {
		f := f
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, a.cfg.FetchTimeout)
			defer cancel()

			fetched, err := f.FetchMarkets(fetchCtx, a.cfg.LimitPerVenue)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if stats.FetchErrors == nil {
					stats.FetchErrors = make(map[domain.Platform]string)
				}
				stats.FetchErrors[f.Platform()] = err.Error()
				a.logger.Warn("platform fetch failed",
					slog.String("platform", string(f.Platform())),
					slog.String("error", err.Error()),
				)
				// Degraded, not fatal: the other venues still count.
				return nil
			}
			stats.MarketsByVenue[f.Platform()] = len(fetched)
			markets = append(markets, fetched...)
			return nil
		})
	}
	_ = g.Wait()
	return markets
}

// publish pushes cycle output to the optional caches, stores, and signal
// bus. Sink failures are logged and never fail the cycle.
func (a *Aggregator) publish(ctx context.Context, stats domain.CycleStats, comparisons []domain.MarketComparison, markets []domain.UnifiedMarket) {
	if a.deps.MarketCache != nil {
		byVenue := make(map[domain.Platform][]domain.UnifiedMarket)
		for _, m := range markets {
			byVenue[m.Platform] = append(byVenue[m.Platform], m)
		}
		for platform, venueMarkets := range byVenue {
			if err := a.deps.MarketCache.SetAll(ctx, platform, venueMarkets); err != nil {
				a.logger.Warn("market cache write failed", slog.String("error", err.Error()))
			}
		}
	}

	if a.deps.ComparisonCache != nil {
		if err := a.deps.ComparisonCache.SetAll(ctx, comparisons); err != nil {
			a.logger.Warn("comparison cache write failed", slog.String("error", err.Error()))
		}
	}

	if a.deps.Archive != nil {
		points := make([]domain.PriceHistoryPoint, 0, len(comparisons)*2)
		for _, c := range comparisons {
			for _, m := range c.Markets {
				if price, ok := m.PrimaryPrice(); ok {
					points = append(points, domain.PriceHistoryPoint{
						GroupKey:  c.Question,
						Platform:  m.Platform,
						Price:     price,
						Timestamp: c.ComputedAt,
					})
				}
			}
		}
		if len(points) > 0 {
			if err := a.deps.Archive.InsertBatch(ctx, points); err != nil {
				a.logger.Warn("history archive write failed", slog.String("error", err.Error()))
			}
		}
	}

	if a.deps.Notifier != nil {
		for _, c := range comparisons {
			if c.ArbitrageOpportunity {
				if err := a.deps.Notifier.ArbitrageAlert(ctx, c); err != nil {
					a.logger.Warn("arbitrage alert failed", slog.String("error", err.Error()))
				}
			}
			for platform, delta := range c.PriceDeltas {
				if !delta.Significant {
					continue
				}
				if err := a.deps.Notifier.MoveAlert(ctx, c.Question, platform, delta.Delta); err != nil {
					a.logger.Warn("move alert failed", slog.String("error", err.Error()))
				}
			}
		}
	}

	if a.deps.Bus == nil {
		return
	}

	if payload, err := json.Marshal(stats); err == nil {
		if err := a.deps.Bus.Publish(ctx, ChannelCycle, payload); err != nil {
			a.logger.Warn("cycle publish failed", slog.String("error", err.Error()))
		}
	}

	for _, c := range comparisons {
		payload, err := json.Marshal(c)
		if err != nil {
			continue
		}
		if err := a.deps.Bus.StreamAppend(ctx, StreamComparisons, payload); err != nil {
			a.logger.Warn("comparison stream append failed", slog.String("error", err.Error()))
		}
		if c.ArbitrageOpportunity {
			if err := a.deps.Bus.Publish(ctx, ChannelArb, payload); err != nil {
				a.logger.Warn("arbitrage publish failed", slog.String("error", err.Error()))
			}
		}
		for platform, delta := range c.PriceDeltas {
			if !delta.Significant {
				continue
			}
			move, err := json.Marshal(map[string]any{
				"question": c.Question,
				"platform": platform,
				"delta":    delta.Delta,
			})
			if err != nil {
				continue
			}
			if err := a.deps.Bus.Publish(ctx, ChannelMove, move); err != nil {
				a.logger.Warn("move publish failed", slog.String("error", err.Error()))
			}
		}
	}
}
