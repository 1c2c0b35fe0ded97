package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/alanyoungcy/marketagg/internal/match"
)

// ToUnified converts a Gamma API market into the platform-neutral shape.
// Outcomes with prices outside (0,1) are dropped; a market that ends up
// with no usable outcomes is malformed.
func (m *APIMarket) ToUnified() (domain.UnifiedMarket, error) {
	marketID := m.ConditionID
	if marketID == "" {
		marketID = m.ID
	}
	if marketID == "" || m.Question == "" {
		return domain.UnifiedMarket{}, fmt.Errorf("%w: polymarket market missing id or question", domain.ErrMalformedRecord)
	}

	var names []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("%w: polymarket market %s outcomes: %v", domain.ErrMalformedRecord, marketID, err)
	}
	var priceStrs []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &priceStrs); err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("%w: polymarket market %s outcome prices: %v", domain.ErrMalformedRecord, marketID, err)
	}
	if len(names) == 0 || len(names) != len(priceStrs) {
		return domain.UnifiedMarket{}, fmt.Errorf("%w: polymarket market %s has %d outcomes and %d prices",
			domain.ErrMalformedRecord, marketID, len(names), len(priceStrs))
	}

	outcomes := make([]domain.Outcome, 0, len(names))
	for i, name := range names {
		price, err := strconv.ParseFloat(priceStrs[i], 64)
		if err != nil || price <= 0 || price >= 1 {
			continue
		}
		outcomes = append(outcomes, domain.Outcome{
			Name:         name,
			Price:        price,
			DecimalOdds:  domain.DecimalOdds(price),
			AmericanOdds: domain.FormatAmericanOdds(domain.AmericanOdds(price)),
		})
	}
	if len(outcomes) == 0 {
		return domain.UnifiedMarket{}, fmt.Errorf("%w: polymarket market %s has no usable outcomes", domain.ErrMalformedRecord, marketID)
	}

	var classifyTexts []string
	classifyTexts = append(classifyTexts, m.Question, m.Category)
	for _, t := range m.Tags {
		classifyTexts = append(classifyTexts, t.Label)
	}
	for _, e := range m.Events {
		classifyTexts = append(classifyTexts, e.SportLabel, e.LeagueName)
	}

	volume, _ := strconv.ParseFloat(m.Volume, 64)
	liquidity, _ := strconv.ParseFloat(m.Liquidity, 64)

	unified := domain.UnifiedMarket{
		Platform:        domain.PlatformPolymarket,
		MarketID:        marketID,
		Question:        m.Question,
		Outcomes:        outcomes,
		MarketType:      match.InferMarketType(classifyTexts...),
		Category:        m.Category,
		TotalVolume:     volume,
		Liquidity:       liquidity,
		IsActive:        bool(m.Active) && !m.Closed,
		NormalizedTitle: match.NormalizeTitle(m.Question),
		Teams:           match.ExtractTeams(m.Question),
	}

	if t, err := time.Parse(time.RFC3339, m.GameStartTime); err == nil {
		unified.StartTime = &t
	}
	if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
		unified.EndTime = &t
	}

	return unified, nil
}
