package domain

import "time"

// MatchScores bundles the similarity signals computed for one candidate
// pair of markets.
type MatchScores struct {
	TitleScore     float64 `json:"title_score"`
	TokenSortScore float64 `json:"token_sort_score"`
	TeamOverlap    int     `json:"team_overlap"`
}

// Best returns the strongest of the text similarity scores, used to order
// candidate pairs before greedy grouping.
func (s MatchScores) Best() float64 {
	if s.TokenSortScore > s.TitleScore {
		return s.TokenSortScore
	}
	return s.TitleScore
}

// MatchedGroup is a set of markets from different platforms that refer to
// the same real-world event. Groups are rebuilt from scratch every
// aggregation cycle; the canonical title is the only identity that
// survives across cycles.
type MatchedGroup struct {
	CanonicalTitle string          `json:"canonical_title"`
	Markets        []UnifiedMarket `json:"markets"`
	ViaMapping     bool            `json:"via_mapping,omitempty"`
}

// HasPlatform reports whether the group already contains a market from the
// given platform. Groups hold at most one market per platform.
func (g MatchedGroup) HasPlatform(p Platform) bool {
	for _, m := range g.Markets {
		if m.Platform == p {
			return true
		}
	}
	return false
}

// MarketComparison is the per-group pricing summary produced each cycle:
// which platform quotes the best primary price, how wide the spread is,
// and whether a cross-platform arbitrage exists.
type MarketComparison struct {
	Question             string                  `json:"question"`
	Markets              []UnifiedMarket         `json:"markets"`
	BestPlatform         Platform                `json:"best_platform"`
	BestPrice            float64                 `json:"best_price"`
	BestOdds             string                  `json:"best_odds"`
	PriceSpread          float64                 `json:"price_spread"`
	ArbitrageOpportunity bool                    `json:"arbitrage_opportunity"`
	ArbitrageProfit      float64                 `json:"arbitrage_profit,omitempty"`
	PriceDeltas          map[Platform]PriceDelta `json:"price_deltas,omitempty"`
	ComputedAt           time.Time               `json:"computed_at"`
}

// PriceDelta is the percentage-point move of one platform's primary price
// since the previous cycle that observed the same group.
type PriceDelta struct {
	Delta       float64 `json:"delta"`
	Significant bool    `json:"significant"`
}

// ExportSnapshot is the serialized form of one cycle's full output,
// suitable for file export or object-storage upload.
type ExportSnapshot struct {
	ID          string             `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	Stats       CycleStats         `json:"stats"`
	Comparisons []MarketComparison `json:"comparisons"`
}

// CycleStats are the counters collected over one aggregation cycle.
type CycleStats struct {
	Cycle            int64               `json:"cycle"`
	StartedAt        time.Time           `json:"started_at"`
	Duration         time.Duration       `json:"duration"`
	MarketsByVenue   map[Platform]int    `json:"markets_by_venue"`
	MarketsSkipped   int                 `json:"markets_skipped"`
	GroupsMatched    int                 `json:"groups_matched"`
	Comparisons      int                 `json:"comparisons"`
	ArbitrageCount   int                 `json:"arbitrage_count"`
	SignificantMoves int                 `json:"significant_moves"`
	FetchErrors      map[Platform]string `json:"fetch_errors,omitempty"`
}
