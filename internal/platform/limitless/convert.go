package limitless

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/alanyoungcy/marketagg/internal/match"
)

// ToUnified converts a Limitless market into the platform-neutral shape.
// Markets without explicit outcomes are treated as binary Yes/No; a
// missing or invalid price falls back to the last trade price, then 0.5.
func (m *APIMarket) ToUnified() (domain.UnifiedMarket, error) {
	marketID := m.ID.String()
	question := m.Title
	if question == "" {
		question = m.Question
	}
	if marketID == "" || marketID == "0" || question == "" {
		return domain.UnifiedMarket{}, fmt.Errorf("%w: limitless market missing id or title", domain.ErrMalformedRecord)
	}

	names := m.Outcomes
	if len(names) == 0 {
		names = []string{"Yes", "No"}
	}

	lastPrice, _ := m.LastPrice.Float64()

	outcomes := make([]domain.Outcome, 0, len(names))
	for i, name := range names {
		var price float64
		if i < len(m.Prices) {
			price, _ = m.Prices[i].Float64()
		} else {
			price = lastPrice
		}
		if price <= 0 || price >= 1 {
			// Binary complement for the No side when only Yes is quoted.
			if i == 1 && len(outcomes) == 1 {
				price = 1.0 - outcomes[0].Price
			} else {
				price = 0.5
			}
		}
		outcomes = append(outcomes, domain.Outcome{
			Name:         name,
			Price:        price,
			DecimalOdds:  domain.DecimalOdds(price),
			AmericanOdds: domain.FormatAmericanOdds(domain.AmericanOdds(price)),
		})
	}
	if len(outcomes) == 0 {
		return domain.UnifiedMarket{}, fmt.Errorf("%w: limitless market %s has no usable outcomes", domain.ErrMalformedRecord, marketID)
	}

	classifyTexts := append([]string{question, m.Category}, m.Tags...)
	volume, _ := m.VolumeFormatted.Float64()
	liquidity, _ := m.Liquidity.Float64()

	unified := domain.UnifiedMarket{
		Platform:        domain.PlatformLimitless,
		MarketID:        marketID,
		Question:        question,
		Outcomes:        outcomes,
		MarketType:      match.InferMarketType(classifyTexts...),
		Category:        m.Category,
		TotalVolume:     volume,
		Liquidity:       liquidity,
		IsActive:        !m.Expired,
		NormalizedTitle: match.NormalizeTitle(question),
		Teams:           match.ExtractTeams(question),
	}

	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		unified.StartTime = &t
	}
	deadline := m.Deadline
	if deadline == "" {
		deadline = m.ExpirationDate
	}
	if t, err := time.Parse(time.RFC3339, deadline); err == nil {
		unified.EndTime = &t
	}

	return unified, nil
}
