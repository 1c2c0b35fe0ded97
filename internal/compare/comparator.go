package compare

import (
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// Comparator derives a MarketComparison from a matched group: best
// platform and price, spread, and arbitrage feasibility.
type Comparator struct {
	logger *slog.Logger
}

// NewComparator creates a Comparator.
func NewComparator(logger *slog.Logger) *Comparator {
	return &Comparator{
		logger: logger.With(slog.String("component", "comparator")),
	}
}

// Compare builds the pricing summary for one group. Markets with
// malformed outcomes are skipped with a logged warning; when fewer than
// two valid markets from distinct platforms remain, ok is false and the
// group produces no comparison. Pure function of the group's prices aside
// from logging.
func (c *Comparator) Compare(group domain.MatchedGroup, now time.Time) (domain.MarketComparison, bool) {
	valid := make([]domain.UnifiedMarket, 0, len(group.Markets))
	for _, m := range group.Markets {
		if err := m.Validate(); err != nil {
			c.logger.Warn("skipping malformed market",
				slog.String("platform", string(m.Platform)),
				slog.String("market_id", m.MarketID),
				slog.String("error", err.Error()),
			)
			continue
		}
		valid = append(valid, m)
	}
	if len(valid) < 2 {
		return domain.MarketComparison{}, false
	}

	var (
		bestMarket domain.UnifiedMarket
		bestPrice  = -1.0
		worstPrice = 2.0
	)
	for _, m := range valid {
		price, ok := m.PrimaryPrice()
		if !ok {
			continue
		}
		if price > bestPrice || (price == bestPrice && betterPriority(m.Platform, bestMarket.Platform)) {
			bestPrice = price
			bestMarket = m
		}
		if price < worstPrice {
			worstPrice = price
		}
	}

	comparison := domain.MarketComparison{
		Question:     group.CanonicalTitle,
		Markets:      valid,
		BestPlatform: bestMarket.Platform,
		BestPrice:    bestPrice,
		BestOdds:     domain.FormatAmericanOdds(domain.AmericanOdds(bestPrice)),
		PriceSpread:  round2((bestPrice - worstPrice) * 100),
		ComputedAt:   now,
	}

	if cost, ok := cheapestHedge(valid); ok && cost < 1.0 {
		comparison.ArbitrageOpportunity = true
		comparison.ArbitrageProfit = round2((1.0 - cost) * 100)
	}

	return comparison, true
}

// cheapestHedge finds the lowest combined cost of buying the primary side
// on one platform and the opposing side on another. Requires at least two
// platforms; same-platform pairs never hedge.
func cheapestHedge(markets []domain.UnifiedMarket) (float64, bool) {
	best := math.MaxFloat64
	found := false
	for _, yes := range markets {
		yesPrice, ok := yes.PrimaryPrice()
		if !ok {
			continue
		}
		for _, no := range markets {
			if no.Platform == yes.Platform {
				continue
			}
			noPrice, ok := no.OpposingPrice()
			if !ok {
				continue
			}
			if cost := yesPrice + noPrice; cost < best {
				best = cost
				found = true
			}
		}
	}
	return best, found
}

// betterPriority reports whether platform a outranks b in the fixed
// tie-break order.
func betterPriority(a, b domain.Platform) bool {
	return domain.PlatformPriority[a] < domain.PlatformPriority[b]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
