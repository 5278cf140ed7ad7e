package strategy

import (
	"context"

	"github.com/riftline/tradecore/internal/domain"
)

// airdropRotation watches for on-chain events tagged as airdrop claims and
// rotates a small long position into the claimed token, on the premise that
// freshly-airdropped tokens see a short post-claim demand bump, grounded on
// original_source's airdrop_rotation strategy family.
type airdropRotation struct {
	id string

	minClaimsPerWindow int
	sizeUSD            float64

	claimCount int
}

// NewAirdropRotation constructs a fresh airdrop_rotation strategy instance.
func NewAirdropRotation(id string) domain.Strategy { return &airdropRotation{id: id} }

func (s *airdropRotation) ID() string { return s.id }

func (s *airdropRotation) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypeOnChain}
}

func (s *airdropRotation) Init(ctx context.Context, params map[string]any) error {
	s.minClaimsPerWindow = paramInt(params, "min_claims_per_window", 10)
	s.sizeUSD = paramFloat(params, "size_usd", 200)
	return nil
}

func (s *airdropRotation) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Type != domain.EventTypeOnChain || event.OnChain == nil {
		return domain.Hold(), nil
	}
	if event.OnChain.Kind != "airdrop_claim" {
		return domain.Hold(), nil
	}

	s.claimCount++
	if s.claimCount < s.minClaimsPerWindow {
		return domain.Hold(), nil
	}
	s.claimCount = 0

	return domain.Execute(domain.OrderDetails{
		TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
		Confidence: 0.4, Side: domain.SideLong,
		TriggeringFeatures: map[string]any{"kind": event.OnChain.Kind},
	}), nil
}
