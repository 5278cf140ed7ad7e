// Package venue provides the thin HTTP clients through which the Master
// Executor and the Position Manager place and close orders against spot and
// perpetual venues. The protocol is intentionally generic (SPEC_FULL.md §1
// Non-goals: no specific venue protocol is prescribed); concrete clients are
// grounded on the teacher's thin-HTTP-client idiom in
// internal/platform/polymarket/{clob,gamma}.go and internal/platform/kalshi
// for the signing/retry shape.
package venue

import (
	"context"

	"github.com/riftline/tradecore/internal/domain"
)

// SpotClient quotes and executes spot swaps against a Jupiter-compatible
// aggregator.
type SpotClient interface {
	// Quote returns the USD price and output amount for swapping amountIn
	// units of the base asset into tokenAddress.
	Quote(ctx context.Context, tokenAddress string, amountIn float64) (price float64, out float64, err error)
	// Swap builds an unsigned transaction sized in USD. A positive amountUSD
	// buys tokenAddress with the base asset; a negative amountUSD sells
	// tokenAddress back to the base asset (closing a Long). Returns
	// base64-encoded transaction bytes ready for the signer.
	Swap(ctx context.Context, tokenAddress string, amountUSD float64) (unsignedTxB64 string, err error)
}

// PerpsClient opens and closes perpetual positions. This deployment profile
// identifies an open position by its token address, so positionID is a token
// address.
type PerpsClient interface {
	// Open submits a market order on the given side, reduceOnly as given.
	Open(ctx context.Context, side domain.Side, baseAssetAmount float64, reduceOnly bool) (signature string, err error)
	// Close closes the position identified by positionID.
	Close(ctx context.Context, positionID string) (signature string, err error)
}

// BundleSubmitter submits an already-signed transaction through a
// bundle-aware RPC (e.g. Jito).
type BundleSubmitter interface {
	// AttachTip returns tx wrapped together with a tip of lamports, ready to
	// submit; the transaction bytes themselves are not modified.
	AttachTip(tx string, lamports uint64) string
	// Submit sends tx to the bundle-aware RPC and returns its signature.
	Submit(ctx context.Context, tx string) (signature string, err error)
}
