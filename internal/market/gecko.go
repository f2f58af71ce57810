// Package market provides REST clients for DEX market data and fiat prices.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultGeckoBaseURL = "https://api.geckoterminal.com/api/v2"
	DefaultNetwork      = "solana"
	DefaultTimeout      = 10 * time.Second
)

// ErrUnexpectedStatus is returned for non-200, non-404 provider responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// TokenAttributes is the normalized market snapshot of a token.
type TokenAttributes struct {
	PriceUSD     string // as reported, for display
	Volume24hUSD float64
	Change1hPct  float64
	ReserveUSD   float64 // pool liquidity
}

// GeckoClient queries the GeckoTerminal token endpoint.
type GeckoClient struct {
	baseURL string
	network string
	client  *http.Client
}

// GeckoOption configures GeckoClient.
type GeckoOption func(*GeckoClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) GeckoOption {
	return func(c *GeckoClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithNetwork sets the network path segment.
func WithNetwork(n string) GeckoOption {
	return func(c *GeckoClient) {
		c.network = n
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) GeckoOption {
	return func(c *GeckoClient) {
		c.client = client
	}
}

// NewGeckoClient creates a new GeckoTerminal client.
func NewGeckoClient(opts ...GeckoOption) *GeckoClient {
	c := &GeckoClient{
		baseURL: DefaultGeckoBaseURL,
		network: DefaultNetwork,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetToken fetches the market snapshot of a token.
// Returns nil, nil when the provider has no trading data for it.
func (c *GeckoClient) GetToken(ctx context.Context, address string) (*TokenAttributes, error) {
	endpoint := fmt.Sprintf("%s/networks/%s/tokens/%s",
		c.baseURL, url.PathEscape(c.network), url.PathEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	var raw geckoTokenResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if raw.Data == nil {
		return nil, nil
	}

	// An absent, null or empty attributes object means no trading data.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw.Data.Attributes, &keys); err != nil && len(raw.Data.Attributes) > 0 {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	var attrs geckoAttributes
	if err := json.Unmarshal(raw.Data.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return attrs.normalize()
}

type geckoTokenResponse struct {
	Data *struct {
		Attributes json.RawMessage `json:"attributes"`
	} `json:"data"`
}

type geckoAttributes struct {
	PriceUSD     json.RawMessage `json:"price_usd"`
	ReserveInUSD json.RawMessage `json:"reserve_in_usd"`
	VolumeUSD    struct {
		H24 json.RawMessage `json:"h24"`
	} `json:"volume_usd"`
	PriceChangePercentage struct {
		H1 json.RawMessage `json:"h1"`
	} `json:"price_change_percentage"`
}

func (a *geckoAttributes) normalize() (*TokenAttributes, error) {
	volume, err := parseNumber(a.VolumeUSD.H24)
	if err != nil {
		return nil, fmt.Errorf("volume_usd.h24: %w", err)
	}
	change, err := parseNumber(a.PriceChangePercentage.H1)
	if err != nil {
		return nil, fmt.Errorf("price_change_percentage.h1: %w", err)
	}
	reserve, err := parseNumber(a.ReserveInUSD)
	if err != nil {
		return nil, fmt.Errorf("reserve_in_usd: %w", err)
	}

	return &TokenAttributes{
		PriceUSD:     rawString(a.PriceUSD),
		Volume24hUSD: volume,
		Change1hPct:  change,
		ReserveUSD:   reserve,
	}, nil
}

// parseNumber accepts a JSON number or a numeric string. Missing and null read as 0.
func parseNumber(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return 0, nil
		}
	}
	return strconv.ParseFloat(s, 64)
}

// rawString renders a string or number field for display. Null reads as "".
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}
