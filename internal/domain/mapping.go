package domain

import "time"

// ManualMapping declares that two platform-specific market IDs refer to
// the same event. Pairs covered by a mapping bypass the automatic matcher
// entirely, which is how low-text-similarity domains (politics wording
// differs wildly between venues) get grouped reliably.
type ManualMapping struct {
	ID             string    `json:"id"`
	PlatformA      Platform  `json:"platform_a"`
	MarketIDA      string    `json:"market_id_a"`
	PlatformB      Platform  `json:"platform_b"`
	MarketIDB      string    `json:"market_id_b"`
	CanonicalTitle string    `json:"canonical_title"`
	CreatedAt      time.Time `json:"created_at"`
}

// Covers reports whether the mapping links the two given market IDs, in
// either order.
func (m ManualMapping) Covers(idA, idB string) bool {
	return (m.MarketIDA == idA && m.MarketIDB == idB) ||
		(m.MarketIDA == idB && m.MarketIDB == idA)
}
