package strategy

import (
	"context"

	"github.com/riftline/tradecore/internal/domain"
)

// devWalletDrain detects a sharp simultaneous price-and-volume crash
// consistent with a developer wallet dumping supply, and shorts it, grounded
// on original_source's dev_wallet_drain strategy family.
type devWalletDrain struct {
	id string

	crashThreshold float64 // fractional drop, e.g. 0.20
	volSpike       float64
	sizeUSD        float64

	lastPrice  float64
	lastVolume float64
}

// NewDevWalletDrain constructs a fresh dev_wallet_drain strategy instance.
func NewDevWalletDrain(id string) domain.Strategy { return &devWalletDrain{id: id} }

func (s *devWalletDrain) ID() string { return s.id }

func (s *devWalletDrain) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypePrice}
}

func (s *devWalletDrain) Init(ctx context.Context, params map[string]any) error {
	s.crashThreshold = paramFloat(params, "crash_threshold", 0.20)
	s.volSpike = paramFloat(params, "vol_spike_multiplier", 5.0)
	s.sizeUSD = paramFloat(params, "size_usd", 300)
	return nil
}

func (s *devWalletDrain) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Type != domain.EventTypePrice || event.Price == nil {
		return domain.Hold(), nil
	}

	prevPrice, prevVolume := s.lastPrice, s.lastVolume
	s.lastPrice, s.lastVolume = event.Price.PriceUSD, event.Price.VolumeUSD

	if prevPrice <= 0 || prevVolume <= 0 {
		return domain.Hold(), nil
	}

	drop := (prevPrice - event.Price.PriceUSD) / prevPrice
	volRatio := event.Price.VolumeUSD / prevVolume

	if drop >= s.crashThreshold && volRatio >= s.volSpike {
		return domain.Execute(domain.OrderDetails{
			TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
			Confidence: clamp01(drop / s.crashThreshold / 2), Side: domain.SideShort,
			TriggeringFeatures: map[string]any{"drop_pct": drop, "volume_ratio": volRatio},
		}), nil
	}
	return domain.Hold(), nil
}
