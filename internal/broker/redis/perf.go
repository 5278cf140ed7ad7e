package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// PerfSource implements allocator.PerfSource by reading the per-strategy
// pnl-history stream and trade-count key published alongside the rest of the
// event-and-command bus.
type PerfSource struct {
	rdb *redis.Client
}

// NewPerfSource creates a PerfSource backed by the given Client.
func NewPerfSource(c *Client) *PerfSource {
	return &PerfSource{rdb: c.Underlying()}
}

// PnLHistory reads every recorded pnl value from perf:<id>:pnl_history,
// oldest first.
func (p *PerfSource) PnLHistory(ctx context.Context, strategyID string) ([]float64, error) {
	stream := fmt.Sprintf("perf:%s:pnl_history", strategyID)
	results, err := p.rdb.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: pnl history %s: %w", strategyID, err)
	}
	out := make([]float64, 0, len(results))
	for _, msg := range results {
		raw, ok := msg.Values["pnl"]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// TradeCount reads perf:<id>:trade_count as a decimal string, 0 if absent.
func (p *PerfSource) TradeCount(ctx context.Context, strategyID string) (int, error) {
	key := fmt.Sprintf("perf:%s:trade_count", strategyID)
	val, err := p.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: trade count %s: %w", strategyID, err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("redis: parse trade count %s: %w", strategyID, err)
	}
	return n, nil
}
