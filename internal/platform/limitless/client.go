// Package limitless is the REST client for the Limitless exchange API
// and the conversion of its market payloads into the unified record
// shape.
package limitless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// DefaultBaseURL is the public Limitless API root.
const DefaultBaseURL = "https://api.limitless.exchange"

// DefaultChainID selects the Base network, where Limitless markets live.
const DefaultChainID = 8453

// Client is the REST client for the Limitless exchange API. The public
// market endpoints require no credentials.
type Client struct {
	baseURL    string
	chainID    int
	httpClient *http.Client
}

// NewClient creates a new Limitless client. Empty baseURL and zero
// chainID select the public endpoint on Base.
func NewClient(baseURL string, chainID int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if chainID <= 0 {
		chainID = DefaultChainID
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		chainID: chainID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Platform identifies this client's venue.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformLimitless
}

// FetchMarkets returns up to limit active markets converted to the
// unified shape. Records that fail conversion are dropped; the rest of
// the page proceeds.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.UnifiedMarket, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sortBy", "volume")

	path := fmt.Sprintf("/markets/active/%d?%s", c.chainID, params.Encode())
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("limitless: fetch markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		// Some deployments wrap the list in a data envelope.
		var envelope struct {
			Data []APIMarket `json:"data"`
		}
		if envErr := json.Unmarshal(body, &envelope); envErr != nil {
			return nil, fmt.Errorf("limitless: decode markets: %w", err)
		}
		apiMarkets = envelope.Data
	}

	markets := make([]domain.UnifiedMarket, 0, len(apiMarkets))
	for i := range apiMarkets {
		unified, err := apiMarkets[i].ToUnified()
		if err != nil {
			if errors.Is(err, domain.ErrMalformedRecord) {
				continue
			}
			return nil, err
		}
		markets = append(markets, unified)
	}
	return markets, nil
}

// FetchMarket returns a single market by its ID.
func (c *Client) FetchMarket(ctx context.Context, marketID string) (domain.UnifiedMarket, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(marketID))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("limitless: fetch market %s: %w", marketID, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("limitless: decode market: %w", err)
	}
	return apiMarket.ToUnified()
}

// doGet sends an unauthenticated GET request to the Limitless API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr APIError
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, apiErr.Message)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrFetchFailed, statusCode, apiErr.Message)
	}
}
