package kalshi

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Prices are quoted in cents.
type KalshiMarket struct {
	Ticker                 string  `json:"ticker"`
	EventTicker            string  `json:"event_ticker"`
	SeriesTicker           string  `json:"series_ticker"`
	Title                  string  `json:"title"`
	Subtitle               string  `json:"subtitle"`
	Status                 string  `json:"status"` // "open", "closed", "settled"
	Category               string  `json:"category"`
	YesBid                 float64 `json:"yes_bid"`
	YesAsk                 float64 `json:"yes_ask"`
	NoBid                  float64 `json:"no_bid"`
	NoAsk                  float64 `json:"no_ask"`
	LastPrice              float64 `json:"last_price"`
	Volume                 float64 `json:"volume"`
	Volume24H              float64 `json:"volume_24h"`
	OpenInterest           float64 `json:"open_interest"`
	Liquidity              float64 `json:"liquidity"`
	LiquidityDollars       string  `json:"liquidity_dollars"`
	OpenTime               string  `json:"open_time"`
	CloseTime              string  `json:"close_time"`
	ExpectedExpirationTime string  `json:"expected_expiration_time"`
}

// KalshiEvent is the event envelope returned by /events/{ticker}. An
// event groups one or more markets; markets with an empty title inherit
// the event title.
type KalshiEvent struct {
	EventTicker  string `json:"event_ticker"`
	SeriesTicker string `json:"series_ticker"`
	Title        string `json:"title"`
	Category     string `json:"category"`
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
