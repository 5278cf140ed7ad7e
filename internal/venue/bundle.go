package venue

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// JitoBundleClient submits signed transactions through a Jito-style
// bundle-aware RPC endpoint (JITO_RPC_URL), attaching a tip instruction
// reference so the bundle is prioritized by the block builder. Grounded on
// the teacher's internal/platform/polymarket/relayer.go request-relay shape.
type JitoBundleClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewJitoBundleClient creates a bundle submitter rooted at baseURL.
func NewJitoBundleClient(baseURL string) *JitoBundleClient {
	return &JitoBundleClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonRPCResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AttachTip encodes a tip marker alongside the signed transaction, for the
// relay to extract and pay out of the included bundle. The tip itself is a
// metadata envelope, not a mutation of the transaction bytes.
func (c *JitoBundleClient) AttachTip(tx string, lamports uint64) string {
	envelope := fmt.Sprintf(`{"tx":%q,"tip_lamports":%d}`, tx, lamports)
	return base64.StdEncoding.EncodeToString([]byte(envelope))
}

// Submit sends tx (as returned by AttachTip) as a single-transaction bundle,
// returning the venue-assigned signature.
func (c *JitoBundleClient) Submit(ctx context.Context, tx string) (string, error) {
	reqBody := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params:  []any{[]string{tx}},
	}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("venue/jito: submit bundle: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("venue/jito: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("venue/jito: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed jsonRPCResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("venue/jito: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("venue/jito: %s", parsed.Error.Message)
	}
	return parsed.Result, nil
}

var _ BundleSubmitter = (*JitoBundleClient)(nil)
