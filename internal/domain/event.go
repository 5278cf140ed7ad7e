package domain

import (
	"encoding/json"
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// EventType identifies the discriminant of a MarketEvent, used for strategy
// subscription matching.
type EventType string

const (
	EventTypePrice         EventType = "Price"
	EventTypeSocial        EventType = "Social"
	EventTypeDepth         EventType = "Depth"
	EventTypeBridge        EventType = "Bridge"
	EventTypeFunding       EventType = "Funding"
	EventTypeSolPrice      EventType = "SolPrice"
	EventTypeOnChain       EventType = "OnChain"
	EventTypeHeartbeat     EventType = "DataSourceHeartbeat"
)

// StalenessBound is the maximum age a non-heartbeat event may have before the
// router drops it.
const StalenessBound = 30 * time.Second

// NormalizeTokenAddress canonicalizes an EVM-style hex token address. It
// returns an error if addr is non-empty but not a valid hex address.
func NormalizeTokenAddress(addr string) (string, error) {
	if addr == "" {
		return "", nil
	}
	if !ethcommon.IsHexAddress(addr) {
		return "", fmt.Errorf("domain: invalid token address %q", addr)
	}
	return ethcommon.HexToAddress(addr).Hex(), nil
}

// MarketEvent is a closed tagged sum over the telemetry variants the system
// consumes. Exactly one of the payload fields is populated, matching Type.
type MarketEvent struct {
	Type      EventType `json:"type"`
	Token     string    `json:"token,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Price    *PriceTick    `json:"price,omitempty"`
	Social   *SocialMention `json:"social,omitempty"`
	Depth    *DepthEvent    `json:"depth,omitempty"`
	Bridge   *BridgeEvent   `json:"bridge,omitempty"`
	Funding  *FundingEvent  `json:"funding,omitempty"`
	SolPrice *SolPriceEvent `json:"sol_price,omitempty"`
	OnChain  *OnChainEvent  `json:"onchain,omitempty"`
	Source   string         `json:"source,omitempty"` // heartbeat source name
}

// PriceTick carries a spot price observation for a token.
type PriceTick struct {
	PriceUSD float64 `json:"price_usd"`
	VolumeUSD float64 `json:"volume_usd,omitempty"`
}

// SocialMention carries an aggregated social-sentiment sample.
type SocialMention struct {
	MentionCount int     `json:"mention_count"`
	SentimentAvg float64 `json:"sentiment_avg"`
	Platform     string  `json:"platform,omitempty"`
}

// DepthEvent carries an order-book depth snapshot.
type DepthEvent struct {
	BidDepthUSD float64 `json:"bid_depth_usd"`
	AskDepthUSD float64 `json:"ask_depth_usd"`
}

// BridgeEvent carries a cross-chain bridge inflow/outflow observation.
type BridgeEvent struct {
	NetInflowUSD float64 `json:"net_inflow_usd"`
	FromChain    string  `json:"from_chain,omitempty"`
}

// FundingEvent carries a perpetual funding-rate observation.
type FundingEvent struct {
	FundingRateBps float64 `json:"funding_rate_bps"`
}

// SolPriceEvent carries the canonical SOL/USD price used to size orders
// denominated in base-asset units.
type SolPriceEvent struct {
	PriceUSD float64 `json:"price_usd"`
}

// OnChainEvent carries an arbitrary on-chain program event (mint, transfer,
// liquidity-pool creation, ...).
type OnChainEvent struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// GetType returns the event's discriminant, mirroring the original Rust
// MarketEvent::get_type() accessor.
func (e MarketEvent) GetType() EventType { return e.Type }

// IsStale reports whether the event is older than StalenessBound relative to
// now. Heartbeats are never considered stale.
func (e MarketEvent) IsStale(now time.Time) bool {
	if e.Type == EventTypeHeartbeat {
		return false
	}
	return now.Sub(e.Timestamp) > StalenessBound
}

// MarshalEvent serializes a MarketEvent to JSON for transport over the broker.
func MarshalEvent(e MarketEvent) ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserializes a MarketEvent previously produced by MarshalEvent.
func UnmarshalEvent(data []byte) (MarketEvent, error) {
	var e MarketEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return MarketEvent{}, fmt.Errorf("domain: unmarshal event: %w", err)
	}
	return e, nil
}
