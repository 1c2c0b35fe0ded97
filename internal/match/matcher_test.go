package match

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

func testMatcher() *Matcher {
	return New(DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mk(platform domain.Platform, id, question string, mt domain.MarketType, start *time.Time) domain.UnifiedMarket {
	return domain.UnifiedMarket{
		Platform:        platform,
		MarketID:        id,
		Question:        question,
		MarketType:      mt,
		StartTime:       start,
		NormalizedTitle: NormalizeTitle(question),
		Teams:           ExtractTeams(question),
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: 0.5},
			{Name: "No", Price: 0.5},
		},
	}
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestIsMatchIdenticalTitles(t *testing.T) {
	m := testMatcher()
	a := mk(domain.PlatformPolymarket, "p1", "Will the Chiefs beat the Jaguars?", domain.MarketTypeSports, nil)
	b := mk(domain.PlatformKalshi, "k1", "Will the Chiefs beat the Jaguars?", domain.MarketTypeSports, nil)
	if !m.IsMatch(a, b) {
		t.Error("IsMatch = false for identical titles, want true")
	}
}

func TestIsMatchSymmetric(t *testing.T) {
	m := testMatcher()
	pairs := [][2]domain.UnifiedMarket{
		{
			mk(domain.PlatformPolymarket, "p1", "Chiefs vs. Jaguars", domain.MarketTypeSports, nil),
			mk(domain.PlatformKalshi, "k1", "Kansas City at Jacksonville Winner?", domain.MarketTypeSports, nil),
		},
		{
			mk(domain.PlatformPolymarket, "p2", "Bitcoin above 100k", domain.MarketTypeCrypto, nil),
			mk(domain.PlatformLimitless, "l1", "Will the Senate flip?", domain.MarketTypePolitics, nil),
		},
	}
	for _, p := range pairs {
		if m.IsMatch(p[0], p[1]) != m.IsMatch(p[1], p[0]) {
			t.Errorf("IsMatch not symmetric for %q / %q", p[0].Question, p[1].Question)
		}
	}
}

func TestIsMatchCategoryGate(t *testing.T) {
	m := testMatcher()
	a := mk(domain.PlatformPolymarket, "p1", "Will Smith win?", domain.MarketTypeSports, nil)
	b := mk(domain.PlatformKalshi, "k1", "Will Smith win?", domain.MarketTypePolitics, nil)
	if m.IsMatch(a, b) {
		t.Error("IsMatch = true across market types, want false")
	}
}

func TestIsMatchSamePlatform(t *testing.T) {
	m := testMatcher()
	a := mk(domain.PlatformKalshi, "k1", "Chiefs vs Jaguars", domain.MarketTypeSports, nil)
	b := mk(domain.PlatformKalshi, "k2", "Chiefs vs Jaguars", domain.MarketTypeSports, nil)
	if m.IsMatch(a, b) {
		t.Error("IsMatch = true for same platform, want false")
	}
}

func TestIsMatchTimeFilter(t *testing.T) {
	m := testMatcher()

	t.Run("30 hours apart rejects identical titles", func(t *testing.T) {
		a := mk(domain.PlatformPolymarket, "p1", "Chiefs vs Jaguars", domain.MarketTypeSports, ts("2026-01-10T18:00:00Z"))
		b := mk(domain.PlatformKalshi, "k1", "Chiefs vs Jaguars", domain.MarketTypeSports, ts("2026-01-12T00:00:00Z"))
		if m.IsMatch(a, b) {
			t.Error("IsMatch = true with 30h start-time gap, want false")
		}
	})

	t.Run("missing start time skips the filter", func(t *testing.T) {
		a := mk(domain.PlatformPolymarket, "p1", "Chiefs vs Jaguars", domain.MarketTypeSports, ts("2026-01-10T18:00:00Z"))
		b := mk(domain.PlatformKalshi, "k1", "Chiefs vs Jaguars", domain.MarketTypeSports, nil)
		if !m.IsMatch(a, b) {
			t.Error("IsMatch = false with one missing start time, want true")
		}
	})

	t.Run("within window matches", func(t *testing.T) {
		a := mk(domain.PlatformPolymarket, "p1", "Chiefs vs Jaguars", domain.MarketTypeSports, ts("2026-01-10T18:00:00Z"))
		b := mk(domain.PlatformKalshi, "k1", "Chiefs vs Jaguars", domain.MarketTypeSports, ts("2026-01-11T02:00:00Z"))
		if !m.IsMatch(a, b) {
			t.Error("IsMatch = false with 8h gap, want true")
		}
	})
}

func TestIsMatchTeamOverlap(t *testing.T) {
	m := testMatcher()
	// Titles differ enough that text scores alone fall short, but both
	// resolve to the same two teams.
	a := mk(domain.PlatformPolymarket, "p1", "Chiefs vs. Jaguars", domain.MarketTypeSports, nil)
	b := mk(domain.PlatformKalshi, "k1", "Kansas City at Jacksonville Winner?", domain.MarketTypeSports, nil)
	if !m.IsMatch(a, b) {
		t.Error("IsMatch = false for same teams under different naming, want true")
	}
}

func TestTeamOverlapStable(t *testing.T) {
	m := testMatcher()
	// "new york" is ambiguous between two franchises; identical lists must
	// still count full overlap on every call.
	a := []string{"new york", "buffalo"}
	b := []string{"new york", "buffalo"}
	for i := 0; i < 200; i++ {
		if got := m.teamOverlap(a, b); got != 2 {
			t.Fatalf("call %d: teamOverlap(%v, %v) = %d, want 2", i, a, b, got)
		}
	}
}

func TestIsMatchManualMappingPrecedence(t *testing.T) {
	m := testMatcher()
	a := mk(domain.PlatformPolymarket, "p-pres", "Presidential winner 2028", domain.MarketTypePolitics, nil)
	b := mk(domain.PlatformKalshi, "k-pres", "Who takes the White House?", domain.MarketTypePolitics, nil)

	if m.IsMatch(a, b) {
		t.Fatal("IsMatch = true without mapping, want false for dissimilar titles")
	}

	m.SetMappings([]domain.ManualMapping{{
		ID:             "map1",
		PlatformA:      domain.PlatformPolymarket,
		MarketIDA:      "p-pres",
		PlatformB:      domain.PlatformKalshi,
		MarketIDB:      "k-pres",
		CanonicalTitle: "Presidential Election 2028",
	}})

	if !m.IsMatch(a, b) {
		t.Error("IsMatch = false with mapping, want true")
	}
	if !m.IsMatch(b, a) {
		t.Error("mapping precedence is not symmetric")
	}
}

func TestBuildGroups(t *testing.T) {
	m := testMatcher()
	markets := []domain.UnifiedMarket{
		mk(domain.PlatformPolymarket, "p1", "Chiefs vs. Jaguars", domain.MarketTypeSports, nil),
		mk(domain.PlatformKalshi, "k1", "Kansas City at Jacksonville Winner?", domain.MarketTypeSports, nil),
		mk(domain.PlatformLimitless, "l1", "Chiefs vs Jaguars", domain.MarketTypeSports, nil),
		mk(domain.PlatformPolymarket, "p2", "Bitcoin above 100k by June", domain.MarketTypeCrypto, nil),
	}

	groups := m.BuildGroups(markets)
	if len(groups) != 1 {
		t.Fatalf("BuildGroups returned %d groups, want 1", len(groups))
	}

	g := groups[0]
	if len(g.Markets) != 3 {
		t.Errorf("group has %d markets, want 3", len(g.Markets))
	}
	seen := make(map[domain.Platform]int)
	for _, mkt := range g.Markets {
		seen[mkt.Platform]++
	}
	for p, n := range seen {
		if n > 1 {
			t.Errorf("group contains %d markets from %s, want at most 1", n, p)
		}
	}
}

func TestBuildGroupsOnePerPlatform(t *testing.T) {
	m := testMatcher()
	// Two Polymarket markets that both match the same Kalshi market; only
	// one may join the group.
	markets := []domain.UnifiedMarket{
		mk(domain.PlatformPolymarket, "p1", "Chiefs vs Jaguars", domain.MarketTypeSports, nil),
		mk(domain.PlatformPolymarket, "p2", "Chiefs vs Jaguars winner", domain.MarketTypeSports, nil),
		mk(domain.PlatformKalshi, "k1", "Chiefs vs Jaguars", domain.MarketTypeSports, nil),
	}

	groups := m.BuildGroups(markets)
	if len(groups) != 1 {
		t.Fatalf("BuildGroups returned %d groups, want 1", len(groups))
	}
	if len(groups[0].Markets) != 2 {
		t.Errorf("group has %d markets, want 2 (one per platform)", len(groups[0].Markets))
	}
}

func TestBuildGroupsDeterministic(t *testing.T) {
	m := testMatcher()
	markets := []domain.UnifiedMarket{
		mk(domain.PlatformPolymarket, "p1", "Chiefs vs. Jaguars", domain.MarketTypeSports, nil),
		mk(domain.PlatformKalshi, "k1", "Kansas City at Jacksonville Winner?", domain.MarketTypeSports, nil),
		mk(domain.PlatformLimitless, "l1", "Chiefs vs Jaguars", domain.MarketTypeSports, nil),
	}
	reversed := []domain.UnifiedMarket{markets[2], markets[1], markets[0]}

	g1 := m.BuildGroups(markets)
	g2 := m.BuildGroups(reversed)

	if len(g1) != len(g2) {
		t.Fatalf("group counts differ: %d vs %d", len(g1), len(g2))
	}
	for i := range g1 {
		if g1[i].CanonicalTitle != g2[i].CanonicalTitle {
			t.Errorf("canonical titles differ: %q vs %q", g1[i].CanonicalTitle, g2[i].CanonicalTitle)
		}
		if len(g1[i].Markets) != len(g2[i].Markets) {
			t.Errorf("group sizes differ: %d vs %d", len(g1[i].Markets), len(g2[i].Markets))
		}
	}
}

func TestBuildGroupsUnmatchedStaySingleton(t *testing.T) {
	m := testMatcher()
	markets := []domain.UnifiedMarket{
		mk(domain.PlatformPolymarket, "p1", "Bitcoin above 100k by June", domain.MarketTypeCrypto, nil),
		mk(domain.PlatformKalshi, "k1", "Will the Fed cut rates in March?", domain.MarketTypeOther, nil),
	}
	if groups := m.BuildGroups(markets); len(groups) != 0 {
		t.Errorf("BuildGroups returned %d groups for unrelated markets, want 0", len(groups))
	}
}
