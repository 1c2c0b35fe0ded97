package match

import (
	"sort"
	"strings"
)

// Ratio returns a Levenshtein-derived similarity between two strings,
// scaled to [0,100] where 100 means the strings are identical. The edit
// distance counts substitutions at double weight, so the score behaves
// like (matched characters) / (total characters).
func Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	lenSum := len(ra) + len(rb)
	if lenSum == 0 {
		return 100
	}
	dist := weightedLevenshtein(ra, rb)
	return float64(lenSum-dist) / float64(lenSum) * 100
}

// TokenSortRatio tokenizes both strings on whitespace, sorts the tokens,
// rejoins them, and applies Ratio. Word order carries no weight:
// "lakers vs warriors" and "warriors vs lakers" score 100.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortTokens(a), sortTokens(b))
}

// PartialRatio returns the best Ratio between the shorter string and any
// contiguous window of the same length in the longer string. A title fully
// contained in a longer title scores 100.
func PartialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		if len(rb) == 0 {
			return 100
		}
		return 0
	}
	if len(ra) == len(rb) {
		return Ratio(string(ra), string(rb))
	}

	best := 0.0
	for i := 0; i+len(ra) <= len(rb); i++ {
		score := Ratio(string(ra), string(rb[i:i+len(ra)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// weightedLevenshtein computes edit distance with insert/delete cost 1 and
// substitution cost 2, using a two-row rolling buffer.
func weightedLevenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub += 2
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			cur[j] = min3(sub, del, ins)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
