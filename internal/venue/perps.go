package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/riftline/tradecore/internal/domain"
)

const (
	perpsRetryBase = time.Second
	perpsRetryCap  = 10 * time.Second
)

// fullJitterBackoff returns a randomized retry delay for attempt n (1-based),
// the same base-1s/full-jitter shape as the broker adapter's reconnect policy
// (SPEC_FULL.md §4.1), scaled down for an in-request retry loop.
func fullJitterBackoff(attempt int) time.Duration {
	exp := perpsRetryBase << uint(attempt)
	if exp <= 0 || exp > perpsRetryCap {
		exp = perpsRetryCap
	}
	return time.Duration(rand.Int63n(int64(exp) + 1))
}

// HTTPPerpsClient implements PerpsClient against a generic perpetual-futures
// venue REST API rooted at SOLANA_RPC_URL. The spec does not prescribe a
// concrete perp protocol (SPEC_FULL.md §1 Non-goals); requests are shaped as
// a minimal market-order open/close contract any such venue can adapt to.
// Grounded on the teacher's internal/platform/kalshi/client.go for the
// status-mapping-with-retry shape (kalshi signs and retries on rate limits;
// this client retries the same transient statuses without the signing step,
// since the signer oracle is a separate out-of-scope collaborator here).
type HTTPPerpsClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewHTTPPerpsClient creates a perps client rooted at baseURL.
func NewHTTPPerpsClient(baseURL string) *HTTPPerpsClient {
	return &HTTPPerpsClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: 3,
	}
}

type perpOrderResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
}

// Open submits a market order on the given side, reduceOnly as given.
func (c *HTTPPerpsClient) Open(ctx context.Context, side domain.Side, baseAssetAmount float64, reduceOnly bool) (string, error) {
	reqBody := map[string]any{
		"side":        string(side),
		"base_amount": baseAssetAmount,
		"order_type":  "market",
		"reduce_only": reduceOnly,
	}
	return c.doOrder(ctx, "/v1/orders", reqBody)
}

// Close closes the position identified by positionID (a token address in
// this deployment profile) via a reduce-only market order.
func (c *HTTPPerpsClient) Close(ctx context.Context, positionID string) (string, error) {
	reqBody := map[string]any{
		"position_id": positionID,
		"order_type":  "market",
		"reduce_only": true,
	}
	return c.doOrder(ctx, "/v1/positions/close", reqBody)
}

func (c *HTTPPerpsClient) doOrder(ctx context.Context, path string, reqBody any) (string, error) {
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(fullJitterBackoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		sig, retryable, err := c.send(req)
		if err == nil {
			return sig, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("venue/perps: exhausted retries: %w", lastErr)
}

func (c *HTTPPerpsClient) send(req *http.Request) (signature string, retryable bool, err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("venue/perps: request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("venue/perps: read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("venue/perps: status %d: %s", resp.StatusCode, string(data))
	}
	if resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("venue/perps: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed perpOrderResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, fmt.Errorf("venue/perps: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", false, fmt.Errorf("venue/perps: %s", parsed.Error)
	}
	return parsed.Signature, false, nil
}

var _ PerpsClient = (*HTTPPerpsClient)(nil)
