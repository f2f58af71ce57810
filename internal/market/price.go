package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPriceBaseURL is the CoinGecko public API.
const DefaultPriceBaseURL = "https://api.coingecko.com/api/v3"

// ErrPriceUnavailable is returned when the response has no SOL/USD quote.
var ErrPriceUnavailable = errors.New("price unavailable")

// PriceClient reads the SOL/USD spot price.
type PriceClient struct {
	baseURL string
	client  *http.Client
}

// NewPriceClient creates a fiat price client. Empty baseURL uses DefaultPriceBaseURL.
func NewPriceClient(baseURL string, client *http.Client) *PriceClient {
	if baseURL == "" {
		baseURL = DefaultPriceBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &PriceClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// SOLPriceUSD returns the current SOL price in USD.
func (c *PriceClient) SOLPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	endpoint := c.baseURL + "/simple/price?ids=solana&vs_currencies=usd"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	var quotes map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &quotes); err != nil {
		return decimal.Zero, fmt.Errorf("unmarshal response: %w", err)
	}

	usd, ok := quotes["solana"]["usd"]
	if !ok || !usd.IsPositive() {
		return decimal.Zero, ErrPriceUnavailable
	}
	return usd, nil
}
