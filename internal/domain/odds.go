package domain

import (
	"fmt"
	"math"
)

// DecimalOdds converts an implied probability in (0,1) to decimal odds.
// Out-of-range prices return 0.
func DecimalOdds(price float64) float64 {
	if price <= 0 || price >= 1 {
		return 0
	}
	return math.Round(100/price) / 100
}

// AmericanOdds converts an implied probability in (0,1) to American odds.
// Favorites (price >= 0.5) get negative odds, underdogs positive. The
// result is rounded to the nearest integer; out-of-range prices return 0.
func AmericanOdds(price float64) int {
	if price <= 0 || price >= 1 {
		return 0
	}
	if price >= 0.5 {
		return -int(math.Round(price / (1 - price) * 100))
	}
	return int(math.Round((1 - price) / price * 100))
}

// FormatAmericanOdds renders American odds with an explicit sign, the way
// sportsbooks display them ("+120", "-150"). Zero renders as "0".
func FormatAmericanOdds(odds int) string {
	if odds > 0 {
		return fmt.Sprintf("+%d", odds)
	}
	return fmt.Sprintf("%d", odds)
}
