// Package signerclient implements the HTTP client to the external signer
// oracle (SPEC_FULL.md §1: opaque collaborator translating unsigned
// transactions into signed ones). Grounded on the teacher's thin-REST-client
// idiom; the wire contract (domain.SignRequest/SignResponse) is carried over
// verbatim from original_source's shared-models crate.
package signerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/riftline/tradecore/internal/domain"
)

// Client signs unsigned transactions via the external signer's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a signer Client rooted at baseURL (the SIGNER_URL configuration
// value).
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Sign sends an unsigned base64 transaction to the signer and returns the
// signed base64 transaction.
func (c *Client) Sign(ctx context.Context, unsignedTxB64 string) (string, error) {
	reqBody := domain.SignRequest{TransactionB64: unsignedTxB64}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("signerclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sign", bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("signerclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("signerclient: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrSigningFailed, resp.StatusCode, string(data))
	}

	var parsed domain.SignResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("signerclient: decode response: %w", err)
	}
	if parsed.SignedTransactionB64 == "" {
		return "", fmt.Errorf("%w: empty signed transaction", domain.ErrSigningFailed)
	}
	return parsed.SignedTransactionB64, nil
}
