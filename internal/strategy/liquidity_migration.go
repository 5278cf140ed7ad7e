package strategy

import (
	"context"

	"github.com/riftline/tradecore/internal/domain"
)

// liquidityMigration watches sustained bridge volume into a token combined
// with growing depth as a signal that liquidity is migrating toward it,
// grounded on original_source's liquidity_migration strategy family.
type liquidityMigration struct {
	id string

	sustainedTicks   int
	depthGrowthRatio float64
	sizeUSD          float64

	consecutivePositive int
	lastDepthUSD        float64
}

// NewLiquidityMigration constructs a fresh liquidity_migration strategy instance.
func NewLiquidityMigration(id string) domain.Strategy { return &liquidityMigration{id: id} }

func (s *liquidityMigration) ID() string { return s.id }

func (s *liquidityMigration) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypeBridge, domain.EventTypeDepth}
}

func (s *liquidityMigration) Init(ctx context.Context, params map[string]any) error {
	s.sustainedTicks = paramInt(params, "sustained_ticks", 3)
	s.depthGrowthRatio = paramFloat(params, "depth_growth_ratio", 1.5)
	s.sizeUSD = paramFloat(params, "size_usd", 350)
	return nil
}

func (s *liquidityMigration) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	switch event.Type {
	case domain.EventTypeBridge:
		if event.Bridge == nil {
			return domain.Hold(), nil
		}
		if event.Bridge.NetInflowUSD > 0 {
			s.consecutivePositive++
		} else {
			s.consecutivePositive = 0
		}
		return domain.Hold(), nil

	case domain.EventTypeDepth:
		if event.Depth == nil {
			return domain.Hold(), nil
		}
		total := event.Depth.BidDepthUSD + event.Depth.AskDepthUSD
		grown := s.lastDepthUSD > 0 && total >= s.lastDepthUSD*s.depthGrowthRatio
		s.lastDepthUSD = total

		if grown && s.consecutivePositive >= s.sustainedTicks {
			s.consecutivePositive = 0
			return domain.Execute(domain.OrderDetails{
				TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
				Confidence: 0.6, Side: domain.SideLong,
				TriggeringFeatures: map[string]any{"depth_usd": total},
			}), nil
		}
		return domain.Hold(), nil
	}
	return domain.Hold(), nil
}
