package executor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riftline/tradecore/internal/domain"
)

// eventStreams lists every inbound market-event stream the router consumes.
var eventStreams = []string{
	"events:price",
	"events:social",
	"events:depth",
	"events:bridge",
	"events:funding",
	"events:sol_price",
	"events:onchain",
	"events:data_source_heartbeat",
}

const (
	allocationsStream      = "allocations"
	strategyRegistryStream = "strategy_registry_stream"
	killSwitchTopic        = "kill_switch_channel"

	readCount = 100
	blockMs   = 5000
)

// Run starts the Master Executor's consumer loops: one per market-event
// stream, one for allocation snapshots, one for strategy registrations, and
// one for the kill-switch topic. It blocks until ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("master executor started")
	defer e.logger.Info("master executor stopped")

	g, gctx := errgroup.WithContext(ctx)
	for _, stream := range eventStreams {
		stream := stream
		g.Go(func() error { return e.consumeEvents(gctx, stream) })
	}
	g.Go(func() error { return e.consumeAllocations(gctx) })
	g.Go(func() error { return e.consumeRegistry(gctx) })
	g.Go(func() error { return e.consumeKillSwitch(gctx) })
	return g.Wait()
}

// consumeEvents reads one market-event stream with at-least-once semantics,
// reconnecting with full-jitter backoff on transient errors (SPEC_FULL.md
// §4.1, §4.3 Failure semantics).
func (e *Executor) consumeEvents(ctx context.Context, stream string) error {
	lastID := "$"
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := e.broker.StreamRead(ctx, stream, lastID, readCount, blockMs)
		if err != nil {
			if !e.waitBrokerBackoff(ctx, stream, err, &attempt) {
				return ctx.Err()
			}
			continue
		}
		if attempt > 0 {
			e.pause.Store(false)
			attempt = 0
		}
		for _, m := range msgs {
			event, perr := domain.UnmarshalEvent(m.Payload)
			if perr != nil {
				e.logger.Warn("event parse failed", slog.String("stream", stream), slog.String("error", perr.Error()))
				continue
			}
			e.RouteEvent(ctx, event)
			lastID = m.ID
		}
	}
}

// consumeAllocations reads allocation snapshots published by the
// Meta-Allocator and reconciles the active strategy set against each.
func (e *Executor) consumeAllocations(ctx context.Context) error {
	lastID := "$"
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := e.broker.StreamRead(ctx, allocationsStream, lastID, readCount, blockMs)
		if err != nil {
			if !e.waitBrokerBackoff(ctx, allocationsStream, err, &attempt) {
				return ctx.Err()
			}
			continue
		}
		if attempt > 0 {
			e.pause.Store(false)
			attempt = 0
		}
		for _, m := range msgs {
			snap, perr := domain.UnmarshalAllocationSnapshot(m.Payload)
			if perr != nil {
				e.logger.Warn("allocation snapshot parse failed", slog.String("error", perr.Error()))
				continue
			}
			e.Reconcile(ctx, snap)
			lastID = m.ID
		}
	}
}

// consumeRegistry reads strategy_registry_stream and records each spec.
func (e *Executor) consumeRegistry(ctx context.Context) error {
	lastID := "$"
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := e.broker.StreamRead(ctx, strategyRegistryStream, lastID, readCount, blockMs)
		if err != nil {
			if !e.waitBrokerBackoff(ctx, strategyRegistryStream, err, &attempt) {
				return ctx.Err()
			}
			continue
		}
		if attempt > 0 {
			e.pause.Store(false)
			attempt = 0
		}
		for _, m := range msgs {
			spec, perr := domain.UnmarshalStrategySpec(m.Payload)
			if perr != nil {
				e.logger.Warn("strategy spec parse failed", slog.String("error", perr.Error()))
				continue
			}
			e.RegisterSpec(spec)
			lastID = m.ID
		}
	}
}

// consumeKillSwitch subscribes to the kill-switch topic and toggles the
// pause flag on PAUSE*/RESUME* messages (SPEC_FULL.md §4.3).
func (e *Executor) consumeKillSwitch(ctx context.Context) error {
	ch, err := e.broker.Subscribe(ctx, killSwitchTopic)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			text := string(msg)
			switch {
			case strings.HasPrefix(text, "PAUSE"):
				e.pause.Store(true)
				e.logger.Warn("kill switch engaged", slog.String("message", text))
			case strings.HasPrefix(text, "RESUME"):
				e.pause.Store(false)
				e.logger.Info("kill switch released", slog.String("message", text))
			}
		}
	}
}

// waitBrokerBackoff sets the pause flag, logs, and waits with full-jitter
// backoff before the caller retries the read. Returns false if ctx was
// cancelled during the wait.
func (e *Executor) waitBrokerBackoff(ctx context.Context, stream string, err error, attempt *int) bool {
	e.pause.Store(true)
	e.logger.Error("broker stream read failed, pausing", slog.String("stream", stream), slog.String("error", err.Error()))
	delay := fullJitterBackoff(*attempt)
	*attempt++
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
