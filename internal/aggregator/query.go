package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// SingleFetcher is implemented by platform clients that can fetch one
// market by ID without paging the whole venue.
type SingleFetcher interface {
	FetchMarket(ctx context.Context, marketID string) (domain.UnifiedMarket, error)
}

// MarketFilter narrows the Markets query. Zero values match everything.
type MarketFilter struct {
	Platform   domain.Platform
	MarketType domain.MarketType
}

// ComparisonFilter narrows the Comparisons query.
type ComparisonFilter struct {
	MinSpread     float64
	ArbitrageOnly bool
}

// Markets returns the latest cycle's normalized markets, optionally
// filtered by platform and market type.
func (a *Aggregator) Markets(filter MarketFilter) []domain.UnifiedMarket {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.UnifiedMarket, 0, len(a.markets))
	for _, m := range a.markets {
		if filter.Platform != "" && m.Platform != filter.Platform {
			continue
		}
		if filter.MarketType != "" && m.MarketType != filter.MarketType {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Market returns one normalized market by platform and ID. The latest
// cycle's in-memory state is checked first, then the market cache, then a
// live single-market fetch against the platform client. Returns
// domain.ErrNotFound when no source knows the market.
func (a *Aggregator) Market(ctx context.Context, platform domain.Platform, marketID string) (domain.UnifiedMarket, error) {
	a.mu.RLock()
	for _, m := range a.markets {
		if m.Platform == platform && m.MarketID == marketID {
			a.mu.RUnlock()
			return m, nil
		}
	}
	a.mu.RUnlock()

	if a.deps.MarketCache != nil {
		m, err := a.deps.MarketCache.Get(ctx, platform, marketID)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("market cache read failed", slog.String("error", err.Error()))
		}
	}

	for _, f := range a.deps.Fetchers {
		if f.Platform() != platform {
			continue
		}
		single, ok := f.(SingleFetcher)
		if !ok {
			break
		}
		fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
		return single.FetchMarket(fetchCtx, marketID)
	}
	return domain.UnifiedMarket{}, domain.ErrNotFound
}

// Comparisons returns the latest cycle's cross-platform comparisons.
func (a *Aggregator) Comparisons(filter ComparisonFilter) []domain.MarketComparison {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.MarketComparison, 0, len(a.comparisons))
	for _, c := range a.comparisons {
		if filter.ArbitrageOnly && !c.ArbitrageOpportunity {
			continue
		}
		if c.PriceSpread < filter.MinSpread {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Arbitrage returns only the comparisons with a live arbitrage window.
func (a *Aggregator) Arbitrage() []domain.MarketComparison {
	return a.Comparisons(ComparisonFilter{ArbitrageOnly: true})
}

// Stats returns the latest cycle's statistics.
func (a *Aggregator) Stats() domain.CycleStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Snapshot assembles an export snapshot from the latest cycle state and,
// when a snapshot store is wired, persists it.
func (a *Aggregator) Snapshot(ctx context.Context) (domain.ExportSnapshot, error) {
	a.mu.RLock()
	snap := domain.ExportSnapshot{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Stats:       a.stats,
		Comparisons: append([]domain.MarketComparison(nil), a.comparisons...),
	}
	a.mu.RUnlock()

	if a.deps.Snapshots != nil {
		if err := a.deps.Snapshots.Insert(ctx, snap); err != nil {
			return snap, err
		}
	}
	return snap, nil
}
