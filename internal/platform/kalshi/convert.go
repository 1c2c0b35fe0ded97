package kalshi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/alanyoungcy/marketagg/internal/match"
)

// ToUnified converts a Kalshi market into the platform-neutral shape.
// Kalshi quotes in cents, so prices divide by 100. Ask prices are used
// for comparison (what a buyer would pay); when the book is empty the
// last trade price stands in, and a still-unusable price defaults to 0.5.
func (m *KalshiMarket) ToUnified() (domain.UnifiedMarket, error) {
	question := m.Title
	if m.Subtitle != "" && m.Subtitle != m.Title {
		question = fmt.Sprintf("%s: %s", m.Title, m.Subtitle)
	}
	if m.Ticker == "" || question == "" {
		return domain.UnifiedMarket{}, fmt.Errorf("%w: kalshi market missing ticker or title", domain.ErrMalformedRecord)
	}

	yesPrice := m.YesAsk / 100.0
	noPrice := m.NoAsk / 100.0
	if yesPrice == 0 {
		yesPrice = m.LastPrice / 100.0
		if yesPrice == 0 {
			yesPrice = 0.5
		}
	}
	if noPrice == 0 {
		noPrice = 1.0 - yesPrice
	}
	if yesPrice <= 0 || yesPrice >= 1 {
		yesPrice = 0.5
	}
	if noPrice <= 0 || noPrice >= 1 {
		noPrice = 0.5
	}

	outcomes := []domain.Outcome{
		{
			Name:         "Yes",
			Price:        yesPrice,
			DecimalOdds:  domain.DecimalOdds(yesPrice),
			AmericanOdds: domain.FormatAmericanOdds(domain.AmericanOdds(yesPrice)),
			BestBid:      m.YesBid / 100.0,
			BestAsk:      m.YesAsk / 100.0,
			Volume:       m.Volume,
		},
		{
			Name:         "No",
			Price:        noPrice,
			DecimalOdds:  domain.DecimalOdds(noPrice),
			AmericanOdds: domain.FormatAmericanOdds(domain.AmericanOdds(noPrice)),
			BestBid:      m.NoBid / 100.0,
			BestAsk:      m.NoAsk / 100.0,
			Volume:       m.Volume,
		},
	}

	unified := domain.UnifiedMarket{
		Platform:        domain.PlatformKalshi,
		MarketID:        m.Ticker,
		Question:        question,
		Outcomes:        outcomes,
		MarketType:      match.InferMarketType(question, m.Category, m.EventTicker, m.Ticker),
		Category:        m.Category,
		TotalVolume:     m.Volume,
		Liquidity:       m.liquidityValue(),
		IsActive:        m.Status == "open",
		NormalizedTitle: match.NormalizeTitle(question),
		Teams:           match.ExtractTeams(question),
	}

	// expected_expiration_time is the actual event time; open_time is only
	// when the market was listed.
	if t, err := time.Parse(time.RFC3339, m.ExpectedExpirationTime); err == nil {
		unified.StartTime = &t
	}
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		unified.EndTime = &t
	}

	return unified, nil
}

// liquidityValue prefers the formatted dollar figure, falling back to the
// raw liquidity field.
func (m *KalshiMarket) liquidityValue() float64 {
	if m.LiquidityDollars != "" {
		cleaned := strings.ReplaceAll(m.LiquidityDollars, ",", "")
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return v
		}
	}
	return m.Liquidity
}
