package polymarket

import (
	"encoding/json"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma
// API responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APITag is a Gamma API tag attached to a market.
type APITag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// APIEventRef is the event metadata embedded in a Gamma market payload.
type APIEventRef struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SportLabel string `json:"sportLabel"`
	LeagueName string `json:"leagueName"`
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Outcomes and OutcomePrices arrive as JSON-encoded string arrays, e.g.
// "[\"Yes\",\"No\"]" and "[\"0.55\",\"0.45\"]".
type APIMarket struct {
	ID            string        `json:"id"`
	ConditionID   string        `json:"conditionId"`
	Question      string        `json:"question"`
	Slug          string        `json:"slug"`
	Active        flexBool      `json:"active"`
	Closed        bool          `json:"closed"`
	Outcomes      string        `json:"outcomes"`
	OutcomePrices string        `json:"outcomePrices"`
	Category      string        `json:"category"`
	GameStartTime string        `json:"gameStartTime"`
	EndDate       string        `json:"endDate"`
	Volume        string        `json:"volume"`
	Liquidity     string        `json:"liquidity"`
	Tags          []APITag      `json:"tags"`
	Events        []APIEventRef `json:"events"`
}

// APIError is the Gamma API error envelope.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"error"`
}
