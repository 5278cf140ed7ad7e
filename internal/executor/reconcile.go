package executor

import (
	"context"
	"log/slog"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/metrics"
)

// Reconcile diffs the active strategy set against a new allocation snapshot
// and stops, starts, or updates strategies accordingly (SPEC_FULL.md §4.3).
// Applying the same snapshot twice is idempotent: no stops, no starts.
func (e *Executor) Reconcile(ctx context.Context, snapshot domain.AllocationSnapshot) {
	e.mu.Lock()

	newByID := make(map[string]domain.StrategyAllocation, len(snapshot.Allocations))
	for _, a := range snapshot.Allocations {
		newByID[a.ID] = a
	}

	var toStop []string
	for id := range e.active {
		if _, ok := newByID[id]; !ok {
			toStop = append(toStop, id)
		}
	}
	var toStart []string
	for id := range newByID {
		if _, ok := e.active[id]; !ok {
			toStart = append(toStart, id)
		}
	}

	for _, id := range toStop {
		e.stopLocked(id)
	}
	for id, alloc := range newByID {
		e.currentAllocations[id] = alloc
	}

	starts := make([]domain.StrategySpec, 0, len(toStart))
	for _, id := range toStart {
		spec, ok := e.specs[id]
		if !ok {
			e.logger.Warn("reconcile: no registered spec for allocated strategy, skipping",
				slog.String("strategy_id", id))
			continue
		}
		starts = append(starts, spec)
	}
	e.mu.Unlock()

	for _, spec := range starts {
		e.startLocked(ctx, spec)
	}
	metrics.ActiveStrategies.Set(float64(e.ActiveCount()))
}

// stopLocked aborts a strategy's task and purges it from subscriptions and
// the active map. Callers must hold e.mu.
func (e *Executor) stopLocked(id string) {
	as, ok := e.active[id]
	if !ok {
		return
	}
	as.cancel()
	close(as.mbox)
	delete(e.active, id)
	for _, et := range as.subs {
		list := e.subscriptions[et]
		for i, candidate := range list {
			if candidate == as {
				e.subscriptions[et] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	e.logger.Info("strategy stopped", slog.String("strategy_id", id))
}

// startLocked constructs a strategy via the registry, initializes it, and
// spawns its consumer task. On construction or init error it logs and skips
// (SPEC_FULL.md §4.3: "on error, skip and log"). Does not hold e.mu while
// calling Init or spawning, since Init may do bounded CPU work but must not
// block router fan-out.
func (e *Executor) startLocked(ctx context.Context, spec domain.StrategySpec) {
	strat, err := e.registry.Build(spec.Family, spec.ID)
	if err != nil {
		e.logger.Error("reconcile: unknown strategy family",
			slog.String("strategy_id", spec.ID), slog.String("family", spec.Family), slog.String("error", err.Error()))
		return
	}
	if err := strat.Init(ctx, spec.Params); err != nil {
		e.logger.Error("reconcile: strategy init failed",
			slog.String("strategy_id", spec.ID), slog.String("error", err.Error()))
		return
	}

	taskCtx, cancel := context.WithCancel(ctx)
	as := &activeStrategy{
		id:     spec.ID,
		strat:  strat,
		mbox:   make(chan domain.MarketEvent, mailboxCapacity),
		subs:   strat.Subscriptions(),
		cancel: cancel,
	}

	e.mu.Lock()
	e.active[spec.ID] = as
	for _, et := range as.subs {
		e.subscriptions[et] = append(e.subscriptions[et], as)
	}
	e.mu.Unlock()

	go e.runTask(taskCtx, as)
	e.logger.Info("strategy started", slog.String("strategy_id", spec.ID), slog.String("family", spec.Family))
}
