// Package kalshi is the REST client for the Kalshi trade API and the
// conversion of its market payloads into the unified record shape.
package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// DefaultBaseURL is the public Kalshi trade API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// Client is the REST client for the Kalshi exchange API. Market data is
// available unauthenticated; configuring an API key and RSA private key
// raises rate limits and unlocks account endpoints.
type Client struct {
	baseURL    string
	apiKeyID   string
	privateKey *rsa.PrivateKey
	httpClient *http.Client
}

// NewClient creates a new Kalshi REST client. An empty baseURL selects
// the public endpoint.
func NewClient(baseURL, apiKeyID string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		apiKeyID: apiKeyID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Platform identifies this client's venue.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformKalshi
}

// SetRSAPrivateKey loads an RSA private key from PEM-encoded bytes and
// configures the client for signed authentication.
func (c *Client) SetRSAPrivateKey(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return fmt.Errorf("kalshi: no PEM block found in private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS1 as fallback.
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return fmt.Errorf("kalshi: parse private key: %w (pkcs1: %v)", err, pkcs1Err)
		}
		c.privateKey = pkcs1Key
		return nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("kalshi: expected RSA private key, got %T", key)
	}
	c.privateKey = rsaKey
	return nil
}

// Authenticated reports whether the client will sign requests.
func (c *Client) Authenticated() bool {
	return c.apiKeyID != "" && c.privateKey != nil
}

// FetchMarkets returns up to limit open markets converted to the unified
// shape. Records that fail conversion are dropped; the rest of the page
// proceeds.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.UnifiedMarket, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("status", "open")

	body, err := c.doRequest(ctx, http.MethodGet, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("kalshi: fetch markets: %w", err)
	}

	var resp struct {
		Markets []KalshiMarket `json:"markets"`
		Cursor  string         `json:"cursor"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kalshi: decode markets: %w", err)
	}

	markets := make([]domain.UnifiedMarket, 0, len(resp.Markets))
	for i := range resp.Markets {
		unified, err := resp.Markets[i].ToUnified()
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

// FetchMarket returns a single market by its ticker. A market whose title
// is blank is re-fetched through its event so it inherits the event title,
// matching what FetchMarkets produces for the same record.
func (c *Client) FetchMarket(ctx context.Context, ticker string) (domain.UnifiedMarket, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/markets/"+url.PathEscape(ticker))
	if err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("kalshi: fetch market %s: %w", ticker, err)
	}

	var resp struct {
		Market KalshiMarket `json:"market"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.UnifiedMarket{}, fmt.Errorf("kalshi: decode market: %w", err)
	}

	if resp.Market.Title == "" && resp.Market.EventTicker != "" {
		eventMarkets, err := c.FetchEventMarkets(ctx, resp.Market.EventTicker)
		if err == nil {
			for _, m := range eventMarkets {
				if m.MarketID == ticker {
					return m, nil
				}
			}
		}
	}
	return resp.Market.ToUnified()
}

// FetchEventMarkets returns every market under one event ticker. Markets
// with an empty title inherit the event title before conversion.
func (c *Client) FetchEventMarkets(ctx context.Context, eventTicker string) ([]domain.UnifiedMarket, error) {
	path := fmt.Sprintf("/events/%s", url.PathEscape(eventTicker))

	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, fmt.Errorf("kalshi: fetch event %s: %w", eventTicker, err)
	}

	var resp struct {
		Event   KalshiEvent    `json:"event"`
		Markets []KalshiMarket `json:"markets"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kalshi: decode event: %w", err)
	}

	markets := make([]domain.UnifiedMarket, 0, len(resp.Markets))
	for i := range resp.Markets {
		if resp.Markets[i].Title == "" {
			resp.Markets[i].Title = resp.Event.Title
		}
		unified, err := resp.Markets[i].ToUnified()
		if err != nil {
			continue
		}
		markets = append(markets, unified)
	}
	return markets, nil
}

// doRequest builds, optionally signs, sends, and reads an HTTP request
// against the Kalshi API.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.Authenticated() {
		if err := c.signRequest(req); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// signRequest adds RSA authentication headers to the HTTP request.
// Kalshi verifies an RSA-PSS-SHA256 signature over timestamp + method +
// full URL path, including the /trade-api/v2 prefix and excluding the
// query string.
func (c *Client) signRequest(req *http.Request) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := ts + req.Method + req.URL.Path

	hash := sha256.Sum256([]byte(message))
	signature, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return fmt.Errorf("RSA sign: %w", err)
	}

	req.Header.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(signature))
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func (c *Client) checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr KalshiErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s (%s)", domain.ErrNotFound, apiErr.Message, apiErr.Code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s (%s)", domain.ErrUnauthorized, apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s (%s)", domain.ErrRateLimited, apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("%w: HTTP %d: %s (%s)", domain.ErrFetchFailed, statusCode, apiErr.Message, apiErr.Code)
	}
}
