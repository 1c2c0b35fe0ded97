package match

import (
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// Config holds the tunable thresholds for the match decision. The OR
// policy means any single satisfied threshold produces a match, which can
// over-match on short generic titles; tighten the thresholds rather than
// changing the policy if higher precision is needed.
type Config struct {
	// TitleScore is the minimum Levenshtein ratio between normalized
	// titles for a direct title match.
	TitleScore float64

	// TokenSortScore is the minimum ratio between token-sorted titles.
	TokenSortScore float64

	// PartialScore is the minimum partial ratio, catching titles fully
	// contained in longer ones.
	PartialScore float64

	// TeamScore is the minimum ratio between two extracted entity names
	// for them to count as the same entity.
	TeamScore float64

	// MinTeamOverlap is how many entities two markets must share before
	// the entity signal alone produces a match.
	MinTeamOverlap int

	// TimeWindow rejects pairs whose start times differ by more than this
	// much, regardless of text similarity. Pairs missing a start time on
	// either side skip the filter.
	TimeWindow time.Duration
}

// DefaultConfig returns the thresholds the service ships with.
func DefaultConfig() Config {
	return Config{
		TitleScore:     80,
		TokenSortScore: 85,
		PartialScore:   90,
		TeamScore:      85,
		MinTeamOverlap: 2,
		TimeWindow:     24 * time.Hour,
	}
}

// Matcher decides whether two markets refer to the same event and
// clusters a cycle's markets into cross-platform groups.
type Matcher struct {
	cfg      Config
	mappings []domain.ManualMapping
	logger   *slog.Logger
}

// New creates a Matcher with the given thresholds.
func New(cfg Config, logger *slog.Logger) *Matcher {
	return &Matcher{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "matcher")),
	}
}

// SetMappings replaces the manual mapping set consulted before automatic
// matching. Called by the aggregation loop at the start of each cycle.
func (m *Matcher) SetMappings(mappings []domain.ManualMapping) {
	m.mappings = mappings
}

// mappingFor returns the manual mapping covering the two markets, if any.
func (m *Matcher) mappingFor(a, b domain.UnifiedMarket) *domain.ManualMapping {
	for i := range m.mappings {
		if m.mappings[i].Covers(a.MarketID, b.MarketID) {
			return &m.mappings[i]
		}
	}
	return nil
}

// Scores computes the similarity signal bundle for a pair of markets.
// Pure function of the two markets' normalized titles and entities.
func (m *Matcher) Scores(a, b domain.UnifiedMarket) domain.MatchScores {
	return domain.MatchScores{
		TitleScore:     Ratio(a.NormalizedTitle, b.NormalizedTitle),
		TokenSortScore: TokenSortRatio(a.NormalizedTitle, b.NormalizedTitle),
		TeamOverlap:    m.teamOverlap(a.Teams, b.Teams),
	}
}

// IsMatch reports whether two markets refer to the same event. Symmetric
// in its arguments. Manual mappings take precedence over every automatic
// signal; the category gate and time filter reject before any scoring.
func (m *Matcher) IsMatch(a, b domain.UnifiedMarket) bool {
	if a.Platform == b.Platform {
		return false
	}
	if mapping := m.mappingFor(a, b); mapping != nil {
		return true
	}
	if a.MarketType != b.MarketType {
		return false
	}
	if !m.timeProximate(a, b) {
		return false
	}

	if Ratio(a.NormalizedTitle, b.NormalizedTitle) >= m.cfg.TitleScore {
		return true
	}
	if PartialRatio(a.NormalizedTitle, b.NormalizedTitle) >= m.cfg.PartialScore {
		return true
	}

	if len(a.Teams) > 0 && len(b.Teams) > 0 {
		overlap := m.teamOverlap(a.Teams, b.Teams)
		if overlap >= m.cfg.MinTeamOverlap {
			return true
		}
		if len(a.Teams) == 1 && len(b.Teams) == 1 && SameTeams(a.Teams, b.Teams) {
			return true
		}
	}

	return TokenSortRatio(a.NormalizedTitle, b.NormalizedTitle) >= m.cfg.TokenSortScore
}

// timeProximate applies the hard time filter: both start times present and
// further apart than the window means no match. A missing start time on
// either side is "unknown", not a rejection.
func (m *Matcher) timeProximate(a, b domain.UnifiedMarket) bool {
	if a.StartTime == nil || b.StartTime == nil {
		return true
	}
	diff := a.StartTime.Sub(*b.StartTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= m.cfg.TimeWindow
}

// teamOverlap counts entities from a that have a close-enough counterpart
// in b. Each entity in b is consumed at most once.
func (m *Matcher) teamOverlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	used := make([]bool, len(b))
	overlap := 0
	for _, ta := range a {
		na := NormalizeTeamName(ta)
		for j, tb := range b {
			if used[j] {
				continue
			}
			if Ratio(na, NormalizeTeamName(tb)) >= m.cfg.TeamScore {
				used[j] = true
				overlap++
				break
			}
		}
	}
	return overlap
}

// candidatePair is one matched pair awaiting greedy group assignment.
type candidatePair struct {
	a, b      domain.UnifiedMarket
	score     float64
	canonical string
}

// BuildGroups clusters a cycle's markets into cross-platform groups.
// Candidate pairs are ordered by score descending, then platform-pair,
// then market IDs, so identical inputs always produce identical groups.
// Each group holds at most one market per platform; unmatched markets
// stay ungrouped and never reach the comparison stage.
func (m *Matcher) BuildGroups(markets []domain.UnifiedMarket) []domain.MatchedGroup {
	var pairs []candidatePair

	for i := 0; i < len(markets); i++ {
		for j := i + 1; j < len(markets); j++ {
			a, b := markets[i], markets[j]
			if a.Platform == b.Platform {
				continue
			}
			// Fix the pair orientation so ordering and canonical-title
			// selection do not depend on input order.
			if b.Platform < a.Platform {
				a, b = b, a
			}

			if mapping := m.mappingFor(a, b); mapping != nil {
				canonical := mapping.CanonicalTitle
				if canonical == "" {
					canonical = a.Question
				}
				// Mapped pairs sort ahead of every scored pair.
				pairs = append(pairs, candidatePair{a: a, b: b, score: 101, canonical: canonical})
				continue
			}

			if !m.IsMatch(a, b) {
				continue
			}
			scores := m.Scores(a, b)
			pairs = append(pairs, candidatePair{a: a, b: b, score: scores.Best(), canonical: a.Question})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		pi := string(pairs[i].a.Platform) + "|" + string(pairs[i].b.Platform)
		pj := string(pairs[j].a.Platform) + "|" + string(pairs[j].b.Platform)
		if pi != pj {
			return pi < pj
		}
		ki := pairs[i].a.MarketID + "|" + pairs[i].b.MarketID
		kj := pairs[j].a.MarketID + "|" + pairs[j].b.MarketID
		return ki < kj
	})

	groups := make([]*domain.MatchedGroup, 0)
	assigned := make(map[string]*domain.MatchedGroup)

	for _, p := range pairs {
		ga, okA := assigned[p.a.MarketID]
		gb, okB := assigned[p.b.MarketID]

		switch {
		case !okA && !okB:
			g := &domain.MatchedGroup{
				CanonicalTitle: p.canonical,
				Markets:        []domain.UnifiedMarket{p.a, p.b},
				ViaMapping:     p.score > 100,
			}
			groups = append(groups, g)
			assigned[p.a.MarketID] = g
			assigned[p.b.MarketID] = g

		case okA && !okB:
			if !ga.HasPlatform(p.b.Platform) {
				ga.Markets = append(ga.Markets, p.b)
				assigned[p.b.MarketID] = ga
			}

		case !okA && okB:
			if !gb.HasPlatform(p.a.Platform) {
				gb.Markets = append(gb.Markets, p.a)
				assigned[p.a.MarketID] = gb
			}
		}
	}

	out := make([]domain.MatchedGroup, 0, len(groups))
	for _, g := range groups {
		m.logger.Debug("matched group",
			slog.String("canonical_title", g.CanonicalTitle),
			slog.Int("markets", len(g.Markets)),
			slog.Bool("via_mapping", g.ViaMapping),
		)
		out = append(out, *g)
	}
	return out
}
