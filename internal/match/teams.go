package match

import (
	"sort"
	"strings"
)

// teamEntry pairs a city fragment with its canonical mascot name.
type teamEntry struct {
	city   string
	mascot string
}

// nflTeams lists city fragments and canonical mascots in a fixed order, so
// substring fallbacks resolve ambiguous inputs ("new york", "los angeles")
// to the same franchise on every call. The one-letter disambiguators keep
// the two New York and two Los Angeles franchises apart on exact input.
var nflTeams = []teamEntry{
	{"buffalo", "bills"},
	{"miami", "dolphins"},
	{"new england", "patriots"},
	{"new york j", "jets"},
	{"baltimore", "ravens"},
	{"cincinnati", "bengals"},
	{"cleveland", "browns"},
	{"pittsburgh", "steelers"},
	{"houston", "texans"},
	{"indianapolis", "colts"},
	{"jacksonville", "jaguars"},
	{"tennessee", "titans"},
	{"denver", "broncos"},
	{"kansas city", "chiefs"},
	{"las vegas", "raiders"},
	{"los angeles c", "chargers"},
	{"dallas", "cowboys"},
	{"new york g", "giants"},
	{"philadelphia", "eagles"},
	{"washington", "commanders"},
	{"chicago", "bears"},
	{"detroit", "lions"},
	{"green bay", "packers"},
	{"minnesota", "vikings"},
	{"atlanta", "falcons"},
	{"carolina", "panthers"},
	{"new orleans", "saints"},
	{"tampa bay", "buccaneers"},
	{"arizona", "cardinals"},
	{"los angeles r", "rams"},
	{"san francisco", "49ers"},
	{"seattle", "seahawks"},
}

// knownMascots supports exact mascot lookups.
var knownMascots = func() map[string]bool {
	m := make(map[string]bool, len(nflTeams))
	for _, e := range nflTeams {
		m[e.mascot] = true
	}
	return m
}()

// mascotAliases maps alternative spellings to canonical mascots.
var mascotAliases = map[string]string{
	"bucs":          "buccaneers",
	"niners":        "49ers",
	"football team": "commanders",
}

// connectors separate the two sides of a matchup title. Checked in order;
// " vs. " must precede " vs " so the period is consumed.
var connectors = []string{" vs. ", " vs ", " @ ", " at ", " beat ", " defeat "}

// fillerPhrases are stripped from a split segment before gazetteer lookup.
var fillerPhrases = []string{"winner?", "winner", "spread:", "o/u", "over/under"}

// NormalizeTeamName resolves a team reference to its canonical mascot
// form: "Kansas City", "Chiefs", and "Kansas City Chiefs" all become
// "chiefs". Unrecognized names are returned lowercased as-is.
func NormalizeTeamName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " at ", " ")
	s = strings.ReplaceAll(s, " vs. ", " ")
	s = strings.ReplaceAll(s, " vs ", " ")

	if knownMascots[s] {
		return s
	}
	if canonical, ok := mascotAliases[s]; ok {
		return canonical
	}
	for _, e := range nflTeams {
		if strings.Contains(s, e.city) || strings.Contains(e.city, s) {
			return e.mascot
		}
	}
	for _, e := range nflTeams {
		if strings.Contains(s, e.mascot) {
			return e.mascot
		}
	}
	return s
}

// ExtractTeams pulls team and participant names out of a market title.
// Known NFL teams are resolved through the gazetteer to canonical mascot
// names; segments with no gazetteer hit fall back to the normalized
// segment text so non-NFL matchups still produce comparable entities.
// An empty result means no entity signal, never an error.
func ExtractTeams(title string) []string {
	lower := strings.ToLower(title)

	parts := []string{lower}
	for _, conn := range connectors {
		if strings.Contains(lower, conn) {
			parts = strings.Split(lower, conn)
			break
		}
	}
	if len(parts) < 2 {
		// No matchup connector: only gazetteer hits count, otherwise the
		// whole title would become one meaningless entity.
		return gazetteerHits(lower)
	}

	var teams []string
	seen := make(map[string]bool)
	for _, part := range parts {
		for _, filler := range fillerPhrases {
			part = strings.ReplaceAll(part, filler, "")
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		entity := lookupTeam(part)
		if entity == "" {
			entity = NormalizeTitle(part)
		}
		if entity != "" && !seen[entity] {
			seen[entity] = true
			teams = append(teams, entity)
		}
	}
	return teams
}

// SameTeams reports whether two entity lists resolve to the same set of
// canonical names. Empty lists never match: absence of signal is not
// agreement.
func SameTeams(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[NormalizeTeamName(t)] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[NormalizeTeamName(t)] = true
	}
	if len(setA) != len(setB) {
		return false
	}
	for t := range setA {
		if !setB[t] {
			return false
		}
	}
	return true
}

// lookupTeam returns the canonical mascot for a title segment, or "" when
// no gazetteer entry applies. Entries are scanned in gazetteer order so
// ambiguous segments always resolve to the same franchise.
func lookupTeam(segment string) string {
	for _, e := range nflTeams {
		if strings.Contains(segment, e.city) {
			return e.mascot
		}
	}
	for _, e := range nflTeams {
		if strings.Contains(segment, e.mascot) {
			return e.mascot
		}
	}
	if canonical, ok := mascotAliases[segment]; ok {
		return canonical
	}
	return ""
}

// gazetteerHits collects every known team mentioned anywhere in the text.
func gazetteerHits(text string) []string {
	var teams []string
	seen := make(map[string]bool)
	add := func(mascot string) {
		if !seen[mascot] {
			seen[mascot] = true
			teams = append(teams, mascot)
		}
	}
	for _, e := range nflTeams {
		if strings.Contains(text, e.city) {
			add(e.mascot)
		}
	}
	for _, e := range nflTeams {
		if strings.Contains(text, e.mascot) {
			add(e.mascot)
		}
	}
	sort.Strings(teams)
	return teams
}
