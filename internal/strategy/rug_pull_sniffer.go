package strategy

import (
	"context"

	"github.com/riftline/tradecore/internal/domain"
)

// rugPullSniffer watches for a simultaneous depth collapse and price crash,
// a pattern consistent with liquidity being pulled, and shorts the
// remaining position; grounded on original_source's rug_pull_sniffer
// strategy family.
type rugPullSniffer struct {
	id string

	depthCollapseRatio float64 // current/previous depth must fall below this
	priceDropThreshold float64
	sizeUSD            float64

	lastDepthUSD   float64
	depthCollapsed bool
	lastPrice      float64
}

// NewRugPullSniffer constructs a fresh rug_pull_sniffer strategy instance.
func NewRugPullSniffer(id string) domain.Strategy { return &rugPullSniffer{id: id} }

func (s *rugPullSniffer) ID() string { return s.id }

func (s *rugPullSniffer) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypeDepth, domain.EventTypePrice}
}

func (s *rugPullSniffer) Init(ctx context.Context, params map[string]any) error {
	s.depthCollapseRatio = paramFloat(params, "depth_collapse_ratio", 0.2)
	s.priceDropThreshold = paramFloat(params, "price_drop_threshold", 0.15)
	s.sizeUSD = paramFloat(params, "size_usd", 250)
	return nil
}

func (s *rugPullSniffer) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	switch event.Type {
	case domain.EventTypeDepth:
		if event.Depth == nil {
			return domain.Hold(), nil
		}
		total := event.Depth.BidDepthUSD + event.Depth.AskDepthUSD
		s.depthCollapsed = s.lastDepthUSD > 0 && total <= s.lastDepthUSD*s.depthCollapseRatio
		s.lastDepthUSD = total
		if s.depthCollapsed && s.lastPrice > 0 {
			return domain.Execute(domain.OrderDetails{
				TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
				Confidence: 0.7, Side: domain.SideShort,
				TriggeringFeatures: map[string]any{"depth_usd": total},
			}), nil
		}
		return domain.Hold(), nil

	case domain.EventTypePrice:
		if event.Price == nil {
			return domain.Hold(), nil
		}
		prev := s.lastPrice
		s.lastPrice = event.Price.PriceUSD
		if prev > 0 {
			drop := (prev - event.Price.PriceUSD) / prev
			if drop >= s.priceDropThreshold && s.depthCollapsed {
				return domain.Execute(domain.OrderDetails{
					TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
					Confidence: 0.7, Side: domain.SideShort,
					TriggeringFeatures: map[string]any{"price_drop_pct": drop},
				}), nil
			}
		}
		return domain.Hold(), nil
	}
	return domain.Hold(), nil
}
