package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/riftline/tradecore/internal/domain"
)

func priceEvent(token string, price, volume float64, ts time.Time) domain.MarketEvent {
	return domain.MarketEvent{
		Type:      domain.EventTypePrice,
		Token:     token,
		Timestamp: ts,
		Price:     &domain.PriceTick{PriceUSD: price, VolumeUSD: volume},
	}
}

func TestMomentum5mHoldsUntilWindowFull(t *testing.T) {
	s := NewMomentum5m("m1")
	if err := s.Init(context.Background(), map[string]any{"window_len": 5}); err != nil {
		t.Fatalf("init: %v", err)
	}
	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		action, err := s.OnEvent(context.Background(), priceEvent("tok", 1.0, 100, now))
		if err != nil {
			t.Fatalf("on_event: %v", err)
		}
		if action.Kind != domain.ActionHold {
			t.Fatalf("expected Hold before window fills, got %v at tick %d", action.Kind, i)
		}
	}
}

func TestMomentum5mExecutesOnRiseAndVolumeSpike(t *testing.T) {
	s := NewMomentum5m("m1")
	if err := s.Init(context.Background(), map[string]any{
		"window_len": 5, "rise_threshold": 0.03, "vol_multiplier": 3.0, "size_usd": 500,
	}); err != nil {
		t.Fatalf("init: %v", err)
	}
	now := time.Now().UTC()

	prices := []float64{1.00, 1.005, 1.01, 1.015, 1.03}
	volumes := []float64{100, 100, 100, 100, 400}
	var last domain.StrategyAction
	for i, p := range prices {
		action, err := s.OnEvent(context.Background(), priceEvent("tok", p, volumes[i], now))
		if err != nil {
			t.Fatalf("on_event: %v", err)
		}
		last = action
	}
	if last.Kind != domain.ActionExecute {
		t.Fatalf("expected Execute once window fills with rise+volume spike, got %v", last.Kind)
	}
	if last.Order.Side != domain.SideLong {
		t.Fatalf("momentum breakout must be Long, got %v", last.Order.Side)
	}
	if last.Order.SuggestedSizeUSD != 500 {
		t.Fatalf("expected configured size_usd 500, got %v", last.Order.SuggestedSizeUSD)
	}
}

func TestMomentum5mIgnoresNonPriceEvents(t *testing.T) {
	s := NewMomentum5m("m1")
	if err := s.Init(context.Background(), map[string]any{"window_len": 2}); err != nil {
		t.Fatalf("init: %v", err)
	}
	action, err := s.OnEvent(context.Background(), domain.MarketEvent{Type: domain.EventTypeSocial, Token: "tok", Timestamp: time.Now().UTC()})
	if err != nil {
		t.Fatalf("on_event: %v", err)
	}
	if action.Kind != domain.ActionHold {
		t.Fatalf("a strategy must Hold on an event outside its subscriptions, got %v", action.Kind)
	}
}

func TestMeanRevert1hHoldsUntilBufferFull(t *testing.T) {
	s := NewMeanRevert1h("mr1")
	if err := s.Init(context.Background(), map[string]any{"period_hours": 1, "z_entry": 2.0}); err != nil {
		t.Fatalf("init: %v", err)
	}
	now := time.Now().UTC()
	for i := 0; i < 59; i++ { // buffer is period_hours*60 == 60 one-minute ticks
		action, err := s.OnEvent(context.Background(), priceEvent("tok", 100, 0, now))
		if err != nil {
			t.Fatalf("on_event: %v", err)
		}
		if action.Kind != domain.ActionHold {
			t.Fatalf("z-score buffer must stay Hold until full, got %v at tick %d", action.Kind, i)
		}
	}
}

func TestMeanRevert1hExecutesShortOnPositiveZSpike(t *testing.T) {
	s := NewMeanRevert1h("mr1")
	if err := s.Init(context.Background(), map[string]any{"period_hours": 1, "z_entry": 1.0, "size_usd": 300}); err != nil {
		t.Fatalf("init: %v", err)
	}
	now := time.Now().UTC()
	prices := make([]float64, 0, 60)
	for i := 0; i < 59; i++ { // fill the 60-tick buffer (period_hours*60) before the spike
		prices = append(prices, 100)
	}
	prices = append(prices, 140)
	var last domain.StrategyAction
	for _, p := range prices {
		action, err := s.OnEvent(context.Background(), priceEvent("tok", p, 0, now))
		if err != nil {
			t.Fatalf("on_event: %v", err)
		}
		last = action
	}
	if last.Kind != domain.ActionExecute {
		t.Fatalf("expected Execute on a positive z-score spike, got %v", last.Kind)
	}
	if last.Order.Side != domain.SideShort {
		t.Fatalf("a price spike above mean should fade Short, got %v", last.Order.Side)
	}
}

func TestDefaultRegistryFamiliesDeclareSubscriptions(t *testing.T) {
	reg := NewDefaultRegistry()
	for _, family := range reg.Families() {
		s, err := reg.Build(family, family+"-test")
		if err != nil {
			t.Fatalf("build %s: %v", family, err)
		}
		if len(s.Subscriptions()) == 0 {
			t.Fatalf("strategy %s declared no subscriptions", family)
		}
	}
}
