package domain

import (
	"fmt"
	"math"
	"time"
)

// Platform identifies which prediction-market venue a record came from.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
	PlatformLimitless  Platform = "limitless"
)

// Valid reports whether p names a known venue.
func (p Platform) Valid() bool {
	switch p {
	case PlatformPolymarket, PlatformKalshi, PlatformLimitless:
		return true
	}
	return false
}

// PlatformPriority is the fixed tie-break ordering used when two platforms
// quote the same best price. Lower rank wins.
var PlatformPriority = map[Platform]int{
	PlatformPolymarket: 0,
	PlatformKalshi:     1,
	PlatformLimitless:  2,
}

// MarketType is the coarse category a market belongs to. Markets of
// different types never match each other.
type MarketType string

const (
	MarketTypeSports   MarketType = "sports"
	MarketTypePolitics MarketType = "politics"
	MarketTypeCrypto   MarketType = "crypto"
	MarketTypeOther    MarketType = "other"
)

// Outcome is a single side of a market with its quoted price and the odds
// derived from it. Price is a probability in [0,1].
type Outcome struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	DecimalOdds  float64 `json:"decimal_odds"`
	AmericanOdds string  `json:"american_odds"`
	BestBid      float64 `json:"best_bid,omitempty"`
	BestAsk      float64 `json:"best_ask,omitempty"`
	Volume       float64 `json:"volume,omitempty"`
}

// UnifiedMarket is the platform-neutral representation every venue's
// payload is converted into. Conversion happens once, inside the platform
// packages; everything downstream of the fetch stage works on this shape.
type UnifiedMarket struct {
	Platform        Platform   `json:"platform"`
	MarketID        string     `json:"market_id"`
	Question        string     `json:"question"`
	Outcomes        []Outcome  `json:"outcomes"`
	MarketType      MarketType `json:"market_type"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Category        string     `json:"category,omitempty"`
	TotalVolume     float64    `json:"total_volume"`
	Liquidity       float64    `json:"liquidity"`
	IsActive        bool       `json:"is_active"`
	NormalizedTitle string     `json:"normalized_title"`
	Teams           []string   `json:"teams,omitempty"`
}

// binarySumTolerance is how far the two outcome prices of a binary market
// may drift from summing to 1.0 before the record is considered malformed.
const binarySumTolerance = 0.02

// Validate reports whether the market is well formed enough to take part in
// matching and comparison. Binary markets must have complementary prices.
func (m UnifiedMarket) Validate() error {
	if m.MarketID == "" {
		return fmt.Errorf("%w: missing market id", ErrMalformedRecord)
	}
	if m.Question == "" {
		return fmt.Errorf("%w: market %s has no question", ErrMalformedRecord, m.MarketID)
	}
	if len(m.Outcomes) == 0 {
		return fmt.Errorf("%w: market %s has no outcomes", ErrMalformedRecord, m.MarketID)
	}
	for _, o := range m.Outcomes {
		if o.Price < 0 || o.Price > 1 {
			return fmt.Errorf("%w: market %s outcome %q price %.4f outside [0,1]",
				ErrMalformedRecord, m.MarketID, o.Name, o.Price)
		}
	}
	if len(m.Outcomes) == 2 {
		sum := m.Outcomes[0].Price + m.Outcomes[1].Price
		if math.Abs(sum-1.0) > binarySumTolerance {
			return fmt.Errorf("%w: market %s binary prices sum to %.4f",
				ErrMalformedRecord, m.MarketID, sum)
		}
	}
	return nil
}

// PrimaryPrice returns the price of the first outcome, conventionally the
// "Yes" side. Returns false when the market has no outcomes.
func (m UnifiedMarket) PrimaryPrice() (float64, bool) {
	if len(m.Outcomes) == 0 {
		return 0, false
	}
	return m.Outcomes[0].Price, true
}

// OpposingPrice returns the price of the second outcome, conventionally the
// "No" side. For binary markets with only a primary quote it falls back to
// the complement of the primary price.
func (m UnifiedMarket) OpposingPrice() (float64, bool) {
	if len(m.Outcomes) >= 2 {
		return m.Outcomes[1].Price, true
	}
	if p, ok := m.PrimaryPrice(); ok {
		return 1.0 - p, true
	}
	return 0, false
}
