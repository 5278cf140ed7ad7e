package executor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/strategy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExecutor(t *testing.T) (*Executor, *fakeBroker, *fakeLedger, *fakePriceCache) {
	t.Helper()
	reg := strategy.NewRegistry()
	reg.Register("recorder", newRecordingStrategy)

	broker := &fakeBroker{}
	ledger := newFakeLedger()
	prices := newFakePriceCache()

	e := New(broker, ledger, prices, reg, nil, nil, nil, nil, Config{
		GlobalMaxPositionUSD: 1000,
		VenueTimeout:         time.Second,
	}, testLogger())
	return e, broker, ledger, prices
}

func TestReconcileIsIdempotent(t *testing.T) {
	e, _, _, _ := newTestExecutor(t)
	ctx := context.Background()

	e.RegisterSpec(domain.StrategySpec{ID: "s1", Family: "recorder"})
	snapshot := domain.AllocationSnapshot{
		Allocations: []domain.StrategyAllocation{{ID: "s1", Weight: 1.0, Mode: domain.ModePaper}},
	}

	e.Reconcile(ctx, snapshot)
	if got := e.ActiveCount(); got != 1 {
		t.Fatalf("after first reconcile: ActiveCount() = %d, want 1", got)
	}
	firstActive := e.active["s1"]

	// Applying the identical snapshot again must not stop/restart the strategy.
	e.Reconcile(ctx, snapshot)
	if got := e.ActiveCount(); got != 1 {
		t.Fatalf("after second reconcile: ActiveCount() = %d, want 1", got)
	}
	if e.active["s1"] != firstActive {
		t.Fatal("reconcile restarted an already-active strategy on an unchanged snapshot")
	}
}

func TestReconcileStopsRemovedStrategies(t *testing.T) {
	e, _, _, _ := newTestExecutor(t)
	ctx := context.Background()

	e.RegisterSpec(domain.StrategySpec{ID: "s1", Family: "recorder"})
	e.Reconcile(ctx, domain.AllocationSnapshot{
		Allocations: []domain.StrategyAllocation{{ID: "s1", Weight: 1.0, Mode: domain.ModePaper}},
	})
	if e.ActiveCount() != 1 {
		t.Fatal("expected strategy to start")
	}

	e.Reconcile(ctx, domain.AllocationSnapshot{Allocations: nil})
	if got := e.ActiveCount(); got != 0 {
		t.Fatalf("after empty snapshot: ActiveCount() = %d, want 0", got)
	}
}

func TestReconcileSkipsUnregisteredStrategy(t *testing.T) {
	e, _, _, _ := newTestExecutor(t)
	ctx := context.Background()

	// No RegisterSpec call for "ghost" -- reconcile must skip it, not panic.
	e.Reconcile(ctx, domain.AllocationSnapshot{
		Allocations: []domain.StrategyAllocation{{ID: "ghost", Weight: 1.0, Mode: domain.ModePaper}},
	})
	if got := e.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d, want 0 for an unregistered strategy", got)
	}
}

func TestRouteEventDropsStaleEvents(t *testing.T) {
	e, _, _, _ := newTestExecutor(t)
	ctx := context.Background()

	e.RegisterSpec(domain.StrategySpec{ID: "s1", Family: "recorder"})
	e.Reconcile(ctx, domain.AllocationSnapshot{
		Allocations: []domain.StrategyAllocation{{ID: "s1", Weight: 1.0, Mode: domain.ModePaper}},
	})
	events := recordingEvents("s1")

	stale := domain.MarketEvent{
		Type: domain.EventTypePrice, Token: "tok", Timestamp: time.Now().UTC().Add(-time.Hour),
		Price: &domain.PriceTick{PriceUSD: 1},
	}
	e.RouteEvent(ctx, stale)

	fresh := domain.MarketEvent{
		Type: domain.EventTypePrice, Token: "tok", Timestamp: time.Now().UTC(),
		Price: &domain.PriceTick{PriceUSD: 2},
	}
	e.RouteEvent(ctx, fresh)

	select {
	case got := <-events:
		if got.Price.PriceUSD != 2 {
			t.Fatalf("expected only the fresh event to reach the strategy, got price %v", got.Price.PriceUSD)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the fresh event to be delivered")
	}

	select {
	case got := <-events:
		t.Fatalf("stale event was unexpectedly delivered: %+v", got)
	case <-time.After(100 * time.Millisecond):
		// expected: nothing further delivered
	}
}

func TestRouteEventUpdatesSolPrice(t *testing.T) {
	e, _, _, _ := newTestExecutor(t)
	ctx := context.Background()

	e.RouteEvent(ctx, domain.MarketEvent{
		Type: domain.EventTypeSolPrice, Timestamp: time.Now().UTC(),
		SolPrice: &domain.SolPriceEvent{PriceUSD: 150},
	})
	if got := e.SolUSDPrice(); got != 150 {
		t.Fatalf("SolUSDPrice() = %v, want 150", got)
	}
}

func TestHandleSignalSkippedWhenPaused(t *testing.T) {
	e, _, ledger, _ := newTestExecutor(t)
	ctx := context.Background()

	e.SetPaused(true)
	e.handleSignal(ctx, "s1", domain.OrderDetails{
		TokenAddress: "tok", SuggestedSizeUSD: 100, Side: domain.SideLong, LimitPriceUSD: 1,
	})

	all, err := ledger.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no trade to be logged while paused, got %d", len(all))
	}
}

func TestHandleSignalPaperRoundTrip(t *testing.T) {
	e, broker, ledger, _ := newTestExecutor(t)
	ctx := context.Background()

	e.RegisterSpec(domain.StrategySpec{ID: "s1", Family: "recorder"})
	e.Reconcile(ctx, domain.AllocationSnapshot{
		Allocations: []domain.StrategyAllocation{{ID: "s1", Weight: 1.0, Mode: domain.ModePaper}},
	})

	e.handleSignal(ctx, "s1", domain.OrderDetails{
		TokenAddress: "tok", SuggestedSizeUSD: 100, Side: domain.SideLong, LimitPriceUSD: 1,
	})

	all, err := ledger.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one logged trade, got %d", len(all))
	}
	trade := all[0]
	if trade.Status != domain.StatusClosedProfit && trade.Status != domain.StatusClosedLoss {
		t.Fatalf("paper trade must synthesize a close, got status %q", trade.Status)
	}
	if trade.Signature != domain.PaperSignature {
		t.Fatalf("paper trade signature = %q, want %q", trade.Signature, domain.PaperSignature)
	}

	broker.mu.Lock()
	n := len(broker.published)
	broker.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected one position update published, got %d", n)
	}
}
