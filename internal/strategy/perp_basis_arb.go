package strategy

import (
	"context"

	"github.com/riftline/tradecore/internal/domain"
)

// perpBasisArb combines spot price and perpetual funding rate to trade the
// basis: a sufficiently positive funding rate implies perp longs are paying
// shorts, so it opens a Short; sufficiently negative implies the opposite.
// Grounded on original_source's perp_basis_arb strategy family.
type perpBasisArb struct {
	id string

	fundingEntryBps float64
	sizeUSD         float64

	lastPriceKnown bool
}

// NewPerpBasisArb constructs a fresh perp_basis_arb strategy instance.
func NewPerpBasisArb(id string) domain.Strategy { return &perpBasisArb{id: id} }

func (s *perpBasisArb) ID() string { return s.id }

func (s *perpBasisArb) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypePrice, domain.EventTypeFunding}
}

func (s *perpBasisArb) Init(ctx context.Context, params map[string]any) error {
	s.fundingEntryBps = paramFloat(params, "funding_entry_bps", 50)
	s.sizeUSD = paramFloat(params, "size_usd", 400)
	return nil
}

func (s *perpBasisArb) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	switch event.Type {
	case domain.EventTypePrice:
		s.lastPriceKnown = true
		return domain.Hold(), nil

	case domain.EventTypeFunding:
		if event.Funding == nil || !s.lastPriceKnown {
			return domain.Hold(), nil
		}
		rate := event.Funding.FundingRateBps
		switch {
		case rate >= s.fundingEntryBps:
			return domain.Execute(domain.OrderDetails{
				TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
				Confidence: clamp01(rate / s.fundingEntryBps / 2), Side: domain.SideShort,
				TriggeringFeatures: map[string]any{"funding_rate_bps": rate},
			}), nil
		case rate <= -s.fundingEntryBps:
			return domain.Execute(domain.OrderDetails{
				TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
				Confidence: clamp01(-rate / s.fundingEntryBps / 2), Side: domain.SideLong,
				TriggeringFeatures: map[string]any{"funding_rate_bps": rate},
			}), nil
		}
	}
	return domain.Hold(), nil
}
