package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// JupiterSpotClient implements SpotClient against a Jupiter-compatible
// aggregator API, grounded on the teacher's internal/platform/polymarket
// thin-REST-client shape (base URL, timeout, JSON decode).
type JupiterSpotClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewJupiterSpotClient creates a spot client rooted at baseURL (the
// JUPITER_API_URL configuration value).
func NewJupiterSpotClient(baseURL string) *JupiterSpotClient {
	return &JupiterSpotClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Quote asks Jupiter for the USD price and output amount of swapping amountIn
// units of the base asset into tokenAddress.
func (c *JupiterSpotClient) Quote(ctx context.Context, tokenAddress string, amountIn float64) (float64, float64, error) {
	params := url.Values{}
	params.Set("ids", tokenAddress)
	params.Set("amount", strconv.FormatFloat(amountIn, 'f', -1, 64))
	body, err := c.doGet(ctx, "/price/v2?"+params.Encode())
	if err != nil {
		return 0, 0, fmt.Errorf("venue/jupiter: quote %s: %w", tokenAddress, err)
	}

	var parsed struct {
		Data map[string]struct {
			Price     string `json:"price"`
			OutAmount string `json:"outAmount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, 0, fmt.Errorf("venue/jupiter: decode quote %s: %w", tokenAddress, err)
	}
	entry, ok := parsed.Data[tokenAddress]
	if !ok {
		return 0, 0, fmt.Errorf("venue/jupiter: no price for %s", tokenAddress)
	}
	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("venue/jupiter: parse price %s: %w", tokenAddress, err)
	}
	out, _ := strconv.ParseFloat(entry.OutAmount, 64)
	return price, out, nil
}

// Swap requests an unsigned swap transaction from Jupiter sized in USD.
// amountUSD > 0 buys tokenAddress with the base asset; amountUSD < 0 sells
// tokenAddress back to the base asset (closing a Long).
func (c *JupiterSpotClient) Swap(ctx context.Context, tokenAddress string, amountUSD float64) (string, error) {
	sell := amountUSD < 0
	reqBody := map[string]any{
		"tokenAddress": tokenAddress,
		"amountUsd":    amountUSD,
		"sell":         sell,
	}
	respBody, err := c.doPost(ctx, "/swap/v1/swap", reqBody)
	if err != nil {
		return "", fmt.Errorf("venue/jupiter: swap %s: %w", tokenAddress, err)
	}
	var parsed struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("venue/jupiter: decode swap %s: %w", tokenAddress, err)
	}
	if parsed.SwapTransaction == "" {
		return "", fmt.Errorf("venue/jupiter: empty swap transaction for %s", tokenAddress)
	}
	return parsed.SwapTransaction, nil
}

func (c *JupiterSpotClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *JupiterSpotClient) doPost(ctx context.Context, path string, body any) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *JupiterSpotClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

var _ SpotClient = (*JupiterSpotClient)(nil)
