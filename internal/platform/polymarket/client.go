// Package polymarket is the REST client for the Polymarket Gamma API and
// the conversion of its market payloads into the unified record shape.
package polymarket

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

// DefaultBaseURL is the public Gamma API root.
const DefaultBaseURL = "https://gamma-api.polymarket.com"

// DefaultPageSize is the number of markets requested per Gamma API page.
const DefaultPageSize = 100

// Client is the REST client for the Polymarket Gamma API, which provides
// market discovery and metadata. The Gamma API requires no credentials.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a new Gamma API client. An empty baseURL selects the
// public endpoint; a non-positive pageSize selects the default.
func NewClient(baseURL string, pageSize int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Platform identifies this client's venue.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformPolymarket
}

// FetchMarkets returns up to limit active markets converted to the
// unified shape, paginating through the Gamma API in pageSize steps.
// Records that fail conversion are dropped; the rest of the page proceeds.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.UnifiedMarket, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	markets := make([]domain.UnifiedMarket, 0, limit)
	for offset := 0; len(markets) < limit; offset += c.pageSize {
		pageLimit := c.pageSize
		if remaining := limit - len(markets); remaining < pageLimit {
			pageLimit = remaining
		}

		params := url.Values{}
		params.Set("limit", strconv.Itoa(pageLimit))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("active", "true")
		params.Set("closed", "false")

		body, err := c.doGet(ctx, "/markets?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("polymarket: fetch markets: %w", err)
		}

		var apiMarkets []APIMarket
		if err := json.Unmarshal(body, &apiMarkets); err != nil {
			return nil, fmt.Errorf("polymarket: decode markets: %w", err)
		}
		if len(apiMarkets) == 0 {
			break
		}

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

		// A short page means the venue has no more active markets.
		if len(apiMarkets) < pageLimit {
			break
		}
	}
	return markets, nil
}

// FetchMarket returns a single market looked up by its condition ID.
func (c *Client) FetchMarket(ctx context.Context, marketID string) (domain.UnifiedMarket, error) {
	params := url.Values{}
	params.Set("condition_ids", marketID)

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("polymarket: fetch market %s: %w", marketID, err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("polymarket: decode market: %w", err)
	}
	if len(apiMarkets) == 0 {
		return domain.UnifiedMarket{}, fmt.Errorf("polymarket: %w: market %s", domain.ErrNotFound, marketID)
	}
	return apiMarkets[0].ToUnified()
}

// doGet sends an unauthenticated GET request to the Gamma API.
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
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, apiErr.Message)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrFetchFailed, statusCode, apiErr.Message)
	}
}
