package match

import (
	"strings"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

var sportsKeywords = []string{
	"nfl", "nba", "mlb", "nhl", "game", "match",
	"football", "basketball", "soccer", "baseball", "hockey",
}

var politicsKeywords = []string{
	"election", "president", "senate", "congress", "politics", "governor",
}

var cryptoKeywords = []string{
	"crypto", "bitcoin", "btc", "ethereum", "eth", "solana",
}

// InferMarketType classifies a market by keyword, scanning whatever text
// the platform provides (title, category, tickers, tags). Sports wins
// over politics wins over crypto when keywords from several categories
// appear.
func InferMarketType(texts ...string) domain.MarketType {
	joined := strings.ToLower(strings.Join(texts, " "))

	for _, kw := range sportsKeywords {
		if strings.Contains(joined, kw) {
			return domain.MarketTypeSports
		}
	}
	for _, kw := range politicsKeywords {
		if strings.Contains(joined, kw) {
			return domain.MarketTypePolitics
		}
	}
	for _, kw := range cryptoKeywords {
		if strings.Contains(joined, kw) {
			return domain.MarketTypeCrypto
		}
	}
	return domain.MarketTypeOther
}
