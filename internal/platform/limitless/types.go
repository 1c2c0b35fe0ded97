package limitless

import "encoding/json"

// APIMarket represents a market as returned by the Limitless exchange
// API. Numeric fields arrive inconsistently typed (numbers or strings),
// so json.Number absorbs both.
type APIMarket struct {
	ID              json.Number `json:"id"`
	Title           string      `json:"title"`
	Question        string      `json:"question"`
	Outcomes        []string    `json:"outcomes"`
	Prices          []json.Number `json:"prices"`
	LastPrice       json.Number `json:"lastPrice"`
	VolumeFormatted json.Number `json:"volumeFormatted"`
	Liquidity       json.Number `json:"liquidity"`
	Category        string      `json:"category"`
	Tags            []string    `json:"tags"`
	Deadline        string      `json:"deadline"`
	ExpirationDate  string      `json:"expirationDate"`
	CreatedAt       string      `json:"createdAt"`
	Expired         bool        `json:"expired"`
}

// APIError is the Limitless API error envelope.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}
