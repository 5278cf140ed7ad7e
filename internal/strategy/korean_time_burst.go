package strategy

import (
	"context"
	"time"

	"github.com/riftline/tradecore/internal/domain"
)

// koreanTimeBurst trades volume bursts that occur inside a configurable
// exchange-local time window, grounded on original_source's
// korean_time_burst strategy family (time-of-day volume burst detector).
type koreanTimeBurst struct {
	id string

	timezone     *time.Location
	windowStart  int // minutes since local midnight
	windowEnd    int
	volMultiplier float64
	sizeUSD      float64

	volumes []float64
}

// NewKoreanTimeBurst constructs a fresh korean_time_burst strategy instance.
func NewKoreanTimeBurst(id string) domain.Strategy { return &koreanTimeBurst{id: id} }

func (s *koreanTimeBurst) ID() string { return s.id }

func (s *koreanTimeBurst) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypePrice}
}

func (s *koreanTimeBurst) Init(ctx context.Context, params map[string]any) error {
	tzName := paramString(params, "timezone", "Asia/Seoul")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
	}
	s.timezone = loc
	s.windowStart = paramInt(params, "window_start_minutes", 21*60) // 21:00 local
	s.windowEnd = paramInt(params, "window_end_minutes", 24*60)     // midnight
	s.volMultiplier = paramFloat(params, "vol_multiplier", 4.0)
	s.sizeUSD = paramFloat(params, "size_usd", 300)
	return nil
}

func (s *koreanTimeBurst) inWindow(t time.Time) bool {
	local := t.In(s.timezone)
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= s.windowStart && minutes < s.windowEnd
}

func (s *koreanTimeBurst) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Type != domain.EventTypePrice || event.Price == nil {
		return domain.Hold(), nil
	}

	s.volumes = append(s.volumes, event.Price.VolumeUSD)
	if overflow := len(s.volumes) - 30; overflow > 0 {
		s.volumes = s.volumes[overflow:]
	}
	if len(s.volumes) < 5 || !s.inWindow(event.Timestamp) {
		return domain.Hold(), nil
	}

	baseline := average(s.volumes[:len(s.volumes)-1])
	current := s.volumes[len(s.volumes)-1]
	if baseline > 0 && current >= baseline*s.volMultiplier {
		return domain.Execute(domain.OrderDetails{
			TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
			Confidence: 0.5, Side: domain.SideLong,
			TriggeringFeatures: map[string]any{"volume_usd": current, "baseline_usd": baseline},
		}), nil
	}
	return domain.Hold(), nil
}
