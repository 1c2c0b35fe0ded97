package domain

import "time"

// PriceHistoryPoint is a single observed primary price for one platform
// within a matched group, keyed by the group's canonical title.
type PriceHistoryPoint struct {
	GroupKey  string    `json:"group_key"`
	Platform  Platform  `json:"platform"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// SignificantDeltaPP is the percentage-point move at or above which a
// delta is flagged as significant.
const SignificantDeltaPP = 1.0

// DefaultHistoryCapacity bounds the number of points retained per
// (group key, platform) pair. Oldest points are evicted first.
const DefaultHistoryCapacity = 1000
