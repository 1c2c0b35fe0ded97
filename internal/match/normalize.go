// Package match decides which markets from different platforms refer to
// the same real-world event. It combines text similarity, entity
// extraction, category gating, and time proximity into a single match
// decision, then clusters matched pairs into groups.
package match

import "strings"

// titlePrefixes are question scaffolding words stripped from the front of
// a title before comparison. Order matters: longer prefixes first so
// "who will " is removed before "will ".
var titlePrefixes = []string{
	"who will ",
	"which ",
	"what ",
	"will ",
	"does ",
	"is ",
	"are ",
}

// titleSuffixes are trailing filler stripped from the end of a title.
var titleSuffixes = []string{
	" win?",
	" beat?",
	" win",
	" beat",
	" defeat",
	"?",
	".",
}

// NormalizeTitle lowercases a market title, strips question scaffolding
// and trailing filler, and collapses whitespace. Two titles that refer to
// the same event from different platforms usually converge under this
// normalization even when their phrasing differs.
func NormalizeTitle(title string) string {
	normalized := strings.ToLower(title)

	for _, prefix := range titlePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			normalized = normalized[len(prefix):]
			break
		}
	}

	for _, suffix := range titleSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			normalized = normalized[:len(normalized)-len(suffix)]
			break
		}
	}

	return strings.Join(strings.Fields(normalized), " ")
}
