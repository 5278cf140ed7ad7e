package strategy

import (
	"context"

	"github.com/riftline/tradecore/internal/domain"
)

// socialBuzz trades spikes in social-mention rate combined with a sentiment
// floor, grounded on original_source's social_buzz strategy family.
type socialBuzz struct {
	id string

	mentionSpikeMultiplier float64
	sentimentFloor         float64
	sizeUSD                float64

	mentionCounts []int
}

// NewSocialBuzz constructs a fresh social_buzz strategy instance.
func NewSocialBuzz(id string) domain.Strategy { return &socialBuzz{id: id} }

func (s *socialBuzz) ID() string { return s.id }

func (s *socialBuzz) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypeSocial}
}

func (s *socialBuzz) Init(ctx context.Context, params map[string]any) error {
	s.mentionSpikeMultiplier = paramFloat(params, "mention_spike_multiplier", 5.0)
	s.sentimentFloor = paramFloat(params, "sentiment_floor", 0.2)
	s.sizeUSD = paramFloat(params, "size_usd", 250)
	return nil
}

func (s *socialBuzz) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	if event.Type != domain.EventTypeSocial || event.Social == nil {
		return domain.Hold(), nil
	}

	s.mentionCounts = append(s.mentionCounts, event.Social.MentionCount)
	if overflow := len(s.mentionCounts) - 20; overflow > 0 {
		s.mentionCounts = s.mentionCounts[overflow:]
	}
	if len(s.mentionCounts) < 5 {
		return domain.Hold(), nil
	}

	baseline := averageInt(s.mentionCounts[:len(s.mentionCounts)-1])
	current := s.mentionCounts[len(s.mentionCounts)-1]

	if baseline > 0 && float64(current) >= baseline*s.mentionSpikeMultiplier && event.Social.SentimentAvg >= s.sentimentFloor {
		return domain.Execute(domain.OrderDetails{
			TokenAddress: event.Token, SuggestedSizeUSD: s.sizeUSD,
			Confidence: clamp01(event.Social.SentimentAvg), Side: domain.SideLong,
			TriggeringFeatures: map[string]any{
				"mention_count": current, "sentiment_avg": event.Social.SentimentAvg,
			},
		}), nil
	}
	return domain.Hold(), nil
}

func averageInt(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}
