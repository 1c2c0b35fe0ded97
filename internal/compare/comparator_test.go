package compare

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

func testComparator() *Comparator {
	return NewComparator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func binaryMarket(platform domain.Platform, id string, yes float64) domain.UnifiedMarket {
	return domain.UnifiedMarket{
		Platform: platform,
		MarketID: id,
		Question: "Chiefs vs Jaguars",
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: yes},
			{Name: "No", Price: 1 - yes},
		},
	}
}

func TestCompareSpread(t *testing.T) {
	c := testComparator()
	group := domain.MatchedGroup{
		CanonicalTitle: "Chiefs vs Jaguars",
		Markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformPolymarket, "p1", 0.55),
			binaryMarket(domain.PlatformKalshi, "k1", 0.52),
			binaryMarket(domain.PlatformLimitless, "l1", 0.48),
		},
	}

	cmp, ok := c.Compare(group, time.Now())
	if !ok {
		t.Fatal("Compare returned ok = false")
	}
	if cmp.PriceSpread != 7.00 {
		t.Errorf("PriceSpread = %v, want 7.00", cmp.PriceSpread)
	}
	if cmp.BestPlatform != domain.PlatformPolymarket {
		t.Errorf("BestPlatform = %s, want polymarket", cmp.BestPlatform)
	}
	if cmp.BestPrice != 0.55 {
		t.Errorf("BestPrice = %v, want 0.55", cmp.BestPrice)
	}
}

func TestCompareTieBreakByPriority(t *testing.T) {
	c := testComparator()
	group := domain.MatchedGroup{
		CanonicalTitle: "Chiefs vs Jaguars",
		Markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformLimitless, "l1", 0.55),
			binaryMarket(domain.PlatformKalshi, "k1", 0.55),
		},
	}

	cmp, ok := c.Compare(group, time.Now())
	if !ok {
		t.Fatal("Compare returned ok = false")
	}
	if cmp.BestPlatform != domain.PlatformKalshi {
		t.Errorf("BestPlatform = %s, want kalshi (priority tie-break)", cmp.BestPlatform)
	}
}

func TestCompareArbitrage(t *testing.T) {
	c := testComparator()

	t.Run("sum below one flags arbitrage", func(t *testing.T) {
		// Polymarket Yes at 0.45, Kalshi No at 0.48: hedging costs 0.93.
		group := domain.MatchedGroup{
			CanonicalTitle: "Chiefs vs Jaguars",
			Markets: []domain.UnifiedMarket{
				{
					Platform: domain.PlatformPolymarket,
					MarketID: "p1",
					Question: "Chiefs vs Jaguars",
					Outcomes: []domain.Outcome{
						{Name: "Yes", Price: 0.45},
						{Name: "No", Price: 0.55},
					},
				},
				{
					Platform: domain.PlatformKalshi,
					MarketID: "k1",
					Question: "Chiefs vs Jaguars",
					Outcomes: []domain.Outcome{
						{Name: "Yes", Price: 0.52},
						{Name: "No", Price: 0.48},
					},
				},
			},
		}

		cmp, ok := c.Compare(group, time.Now())
		if !ok {
			t.Fatal("Compare returned ok = false")
		}
		if !cmp.ArbitrageOpportunity {
			t.Fatal("ArbitrageOpportunity = false, want true")
		}
		if cmp.ArbitrageProfit != 7.00 {
			t.Errorf("ArbitrageProfit = %v, want 7.00", cmp.ArbitrageProfit)
		}
	})

	t.Run("no arbitrage when hedge costs one or more", func(t *testing.T) {
		group := domain.MatchedGroup{
			CanonicalTitle: "Chiefs vs Jaguars",
			Markets: []domain.UnifiedMarket{
				binaryMarket(domain.PlatformPolymarket, "p1", 0.55),
				binaryMarket(domain.PlatformKalshi, "k1", 0.55),
			},
		}
		cmp, ok := c.Compare(group, time.Now())
		if !ok {
			t.Fatal("Compare returned ok = false")
		}
		if cmp.ArbitrageOpportunity {
			t.Error("ArbitrageOpportunity = true, want false")
		}
	})
}

func TestCompareDeterministic(t *testing.T) {
	c := testComparator()
	group := domain.MatchedGroup{
		CanonicalTitle: "Chiefs vs Jaguars",
		Markets: []domain.UnifiedMarket{
			binaryMarket(domain.PlatformPolymarket, "p1", 0.61),
			binaryMarket(domain.PlatformKalshi, "k1", 0.57),
		},
	}
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	first, ok1 := c.Compare(group, now)
	second, ok2 := c.Compare(group, now)
	if !ok1 || !ok2 {
		t.Fatal("Compare returned ok = false")
	}
	if first.BestPlatform != second.BestPlatform ||
		first.BestPrice != second.BestPrice ||
		first.PriceSpread != second.PriceSpread ||
		first.ArbitrageOpportunity != second.ArbitrageOpportunity {
		t.Error("Compare is not deterministic for identical input")
	}
}

func TestCompareSkipsMalformedMarkets(t *testing.T) {
	c := testComparator()

	malformed := domain.UnifiedMarket{
		Platform: domain.PlatformLimitless,
		MarketID: "l1",
		Question: "Chiefs vs Jaguars",
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: 0.9},
			{Name: "No", Price: 0.4},
		},
	}

	t.Run("remaining pair still compares", func(t *testing.T) {
		group := domain.MatchedGroup{
			CanonicalTitle: "Chiefs vs Jaguars",
			Markets: []domain.UnifiedMarket{
				binaryMarket(domain.PlatformPolymarket, "p1", 0.55),
				binaryMarket(domain.PlatformKalshi, "k1", 0.50),
				malformed,
			},
		}
		cmp, ok := c.Compare(group, time.Now())
		if !ok {
			t.Fatal("Compare returned ok = false")
		}
		if len(cmp.Markets) != 2 {
			t.Errorf("comparison kept %d markets, want 2", len(cmp.Markets))
		}
	})

	t.Run("too few valid markets yields no comparison", func(t *testing.T) {
		group := domain.MatchedGroup{
			CanonicalTitle: "Chiefs vs Jaguars",
			Markets: []domain.UnifiedMarket{
				binaryMarket(domain.PlatformPolymarket, "p1", 0.55),
				malformed,
			},
		}
		if _, ok := c.Compare(group, time.Now()); ok {
			t.Error("Compare returned ok = true with one valid market, want false")
		}
	})
}
