package strategy

import (
	"context"
	"fmt"

	"github.com/riftline/tradecore/internal/domain"
)

// momentum5m trades breakouts in a rolling window of price/volume ticks,
// grounded on original_source's momentum_5m strategy family.
type momentum5m struct {
	id string

	windowLen     int
	riseThreshold float64 // fractional rise over the window, e.g. 0.03
	volMultiplier float64 // current volume / average volume trigger
	sizeUSD       float64

	prices  []float64
	volumes []float64
}

// NewMomentum5m constructs a fresh momentum_5m strategy instance.
func NewMomentum5m(id string) domain.Strategy { return &momentum5m{id: id} }

func (s *momentum5m) ID() string { return s.id }

func (s *momentum5m) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypePrice}
}

func (s *momentum5m) Init(ctx context.Context, params map[string]any) error {
	s.windowLen = paramInt(params, "window_len", 30)
	s.riseThreshold = paramFloat(params, "rise_threshold", 0.03)
	s.volMultiplier = paramFloat(params, "vol_multiplier", 3.0)
	s.sizeUSD = paramFloat(params, "size_usd", 500)
	if s.windowLen < 2 {
		return fmt.Errorf("strategy momentum_5m: window_len must be >= 2")
	}
	return nil
}

func (s *momentum5m) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Type != domain.EventTypePrice || event.Price == nil {
		return domain.Hold(), nil
	}

	s.prices = append(s.prices, event.Price.PriceUSD)
	s.volumes = append(s.volumes, event.Price.VolumeUSD)
	if overflow := len(s.prices) - s.windowLen; overflow > 0 {
		s.prices = s.prices[overflow:]
		s.volumes = s.volumes[overflow:]
	}
	if len(s.prices) < s.windowLen {
		return domain.Hold(), nil
	}

	first := s.prices[0]
	last := s.prices[len(s.prices)-1]
	if first <= 0 {
		return domain.Hold(), nil
	}
	rise := (last - first) / first

	avgVol := average(s.volumes[:len(s.volumes)-1])
	curVol := s.volumes[len(s.volumes)-1]

	if rise >= s.riseThreshold && avgVol > 0 && curVol >= avgVol*s.volMultiplier {
		return domain.Execute(domain.OrderDetails{
			TokenAddress:     event.Token,
			SuggestedSizeUSD: s.sizeUSD,
			Confidence:       clamp01(rise / s.riseThreshold / 2),
			Side:             domain.SideLong,
			TriggeringFeatures: map[string]any{
				"rise_pct": rise, "volume_multiplier": curVol / avgVol,
			},
		}), nil
	}
	return domain.Hold(), nil
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func paramFloat(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func paramInt(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

func paramString(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}
