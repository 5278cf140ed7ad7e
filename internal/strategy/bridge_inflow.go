package strategy

import (
	"context"

	"github.com/riftline/tradecore/internal/domain"
)

// bridgeInflow trades on large net cross-chain bridge inflows for a token,
// grounded on original_source's bridge_inflow strategy family.
type bridgeInflow struct {
	id string

	inflowThresholdUSD float64
	sizeUSD            float64
}

// NewBridgeInflow constructs a fresh bridge_inflow strategy instance.
func NewBridgeInflow(id string) domain.Strategy { return &bridgeInflow{id: id} }

func (s *bridgeInflow) ID() string { return s.id }

func (s *bridgeInflow) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypeBridge}
}

func (s *bridgeInflow) Init(ctx context.Context, params map[string]any) error {
	s.inflowThresholdUSD = paramFloat(params, "inflow_threshold_usd", 250000)
	s.sizeUSD = paramFloat(params, "size_usd", 400)
	return nil
}

func (s *bridgeInflow) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Type != domain.EventTypeBridge || event.Bridge == nil {
		return domain.Hold(), nil
	}
	if event.Bridge.NetInflowUSD < s.inflowThresholdUSD {
		return domain.Hold(), nil
	}

	return domain.Execute(domain.OrderDetails{
		TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
		Confidence: clamp01(event.Bridge.NetInflowUSD / (s.inflowThresholdUSD * 2)), Side: domain.SideLong,
		TriggeringFeatures: map[string]any{
			"net_inflow_usd": event.Bridge.NetInflowUSD, "from_chain": event.Bridge.FromChain,
		},
	}), nil
}
