package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/metrics"
)

// RouteEvent applies the staleness check, the SolPrice/heartbeat special
// cases, and fans out to every mailbox subscribed to the event's type. This
// is the Master Executor's event router (SPEC_FULL.md §4.3).
func (e *Executor) RouteEvent(ctx context.Context, event domain.MarketEvent) {
	now := time.Now().UTC()
	if event.IsStale(now) {
		metrics.StaleEventsTotal.WithLabelValues(string(event.Type)).Inc()
		return
	}

	switch event.Type {
	case domain.EventTypeSolPrice:
		if event.SolPrice != nil {
			e.solUSD.Store(event.SolPrice.PriceUSD)
			metrics.SolUSDPrice.Set(event.SolPrice.PriceUSD)
		}
		return
	case domain.EventTypeHeartbeat:
		e.mu.Lock()
		e.dataSourceLastSeen[event.Source] = now
		e.mu.Unlock()
		return
	}

	if event.Token != "" {
		if e.prices != nil && event.Type == domain.EventTypePrice && event.Price != nil {
			if err := e.prices.SetPrice(ctx, event.Token, event.Price.PriceUSD, event.Timestamp); err != nil {
				e.logger.Warn("price cache update failed", slog.String("token", event.Token), slog.String("error", err.Error()))
			}
		}
	}

	e.mu.RLock()
	mailboxes := e.subscriptions[event.Type]
	e.mu.RUnlock()
	for _, as := range mailboxes {
		deliver(as, event)
	}
}

// DataSourceLastSeen returns the last-seen time for a heartbeat source, or
// the zero time if none has ever been observed.
func (e *Executor) DataSourceLastSeen(source string) time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dataSourceLastSeen[source]
}
