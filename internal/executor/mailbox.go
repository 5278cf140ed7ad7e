package executor

import (
	"context"
	"log/slog"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/metrics"
)

// mailboxCapacity bounds each strategy's event queue (SPEC_FULL.md §5 Bounded queues).
const mailboxCapacity = 100

// activeStrategy is the executor's handle on one live strategy instance: its
// mailbox, its subscriptions (for router fan-out), and the cancel func for
// its consumer task. The executor owns mailbox and task handle; the strategy
// owns only its own state (SPEC_FULL.md §9: no cyclic references).
type activeStrategy struct {
	id     string
	strat  domain.Strategy
	mbox   chan domain.MarketEvent
	subs   []domain.EventType
	cancel context.CancelFunc
}

// runTask consumes the mailbox in arrival order, calling OnEvent and routing
// the resulting action into the signal pipeline. A panic in OnEvent is
// caught, logged, and terminates this strategy's task only.
func (e *Executor) runTask(ctx context.Context, as *activeStrategy) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("strategy task panicked",
				slog.String("strategy_id", as.id),
				slog.Any("panic", r),
			)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-as.mbox:
			if !ok {
				return
			}
			action, err := as.strat.OnEvent(ctx, event)
			if err != nil {
				e.logger.Warn("strategy on_event error",
					slog.String("strategy_id", as.id),
					slog.String("error", err.Error()),
				)
				continue
			}
			if action.Kind == domain.ActionExecute {
				e.handleSignal(ctx, as.id, action.Order)
			}
		}
	}
}

// deliver performs a non-blocking send to as.mbox, incrementing the
// per-strategy drop counter when the mailbox is saturated. This is the
// router's backpressure contract: drop and count, never block.
func deliver(as *activeStrategy, event domain.MarketEvent) {
	select {
	case as.mbox <- event:
	default:
		metrics.MailboxDroppedTotal.WithLabelValues(as.id).Inc()
	}
}
