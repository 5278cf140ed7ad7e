// Package executor implements the Master Executor: it multiplexes market
// events to a dynamic set of strategy tasks, reconciles the active strategy
// population against the latest allocation snapshot, and funnels strategy
// signals into the paper/live execution pipeline. Grounded on the teacher's
// internal/executor/executor.go (signal pipeline shape, logger-with-fields
// idiom) and original_source/executor/src/executor.rs (event routing,
// reconciliation, kill-switch, paper/live branching).
package executor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/strategy"
	"github.com/riftline/tradecore/internal/venue"
)

// Signer is the capability the signal pipeline needs from the external
// signer oracle.
type Signer interface {
	Sign(ctx context.Context, unsignedTxB64 string) (signedTxB64 string, err error)
}

// Config holds the environment-driven tunables the signal pipeline applies.
type Config struct {
	GlobalMaxPositionUSD float64
	TipLamports          uint64
	VenueTimeout         time.Duration
}

// Executor is the Master Executor. Construct with New and start with Run.
type Executor struct {
	broker domain.Broker
	ledger domain.TradeLedger
	prices domain.PriceCache

	registry *strategy.Registry
	spot     venue.SpotClient
	perps    venue.PerpsClient
	bundle   venue.BundleSubmitter
	signer   Signer

	cfg    Config
	logger *slog.Logger

	// mu guards subscriptions, active, specs, and currentAllocations.
	// Lock order (SPEC_FULL.md §4.3): this mutex before pause.
	mu                  sync.RWMutex
	subscriptions       map[domain.EventType][]*activeStrategy
	active              map[string]*activeStrategy
	specs               map[string]domain.StrategySpec
	currentAllocations  map[string]domain.StrategyAllocation
	dataSourceLastSeen  map[string]time.Time

	pause   atomic.Bool
	solUSD  atomic.Value // float64
}

// New constructs an Executor. spot, perps, bundle, and signer may be nil in
// paper-only deployments; the live path returns an error if it needs one
// that is absent.
func New(
	broker domain.Broker,
	ledger domain.TradeLedger,
	prices domain.PriceCache,
	registry *strategy.Registry,
	spot venue.SpotClient,
	perps venue.PerpsClient,
	bundle venue.BundleSubmitter,
	signer Signer,
	cfg Config,
	logger *slog.Logger,
) *Executor {
	e := &Executor{
		broker:             broker,
		ledger:             ledger,
		prices:             prices,
		registry:           registry,
		spot:               spot,
		perps:              perps,
		bundle:             bundle,
		signer:             signer,
		cfg:                cfg,
		logger:             logger.With(slog.String("component", "master_executor")),
		subscriptions:      make(map[domain.EventType][]*activeStrategy),
		active:             make(map[string]*activeStrategy),
		specs:              make(map[string]domain.StrategySpec),
		currentAllocations: make(map[string]domain.StrategyAllocation),
		dataSourceLastSeen: make(map[string]time.Time),
	}
	e.solUSD.Store(0.0)
	return e
}

// IsPaused reports the current kill-switch/broker-outage pause state.
func (e *Executor) IsPaused() bool { return e.pause.Load() }

// SetPaused sets the pause flag directly; used by the kill-switch listener
// and the broker reconnect loop.
func (e *Executor) SetPaused(v bool) { e.pause.Store(v) }

// SolUSDPrice returns the last-observed SOL/USD price (last-writer-wins).
func (e *Executor) SolUSDPrice() float64 {
	v, _ := e.solUSD.Load().(float64)
	return v
}

// ActiveCount returns the number of strategies currently reconciled into the
// active set, for the /api/v1/state snapshot.
func (e *Executor) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}

// Snapshot returns a point-in-time view of active strategy ids, their
// allocation, and whether they are currently running, for the state endpoint.
type StrategyView struct {
	ID       string
	Weight   float64
	Mode     domain.Mode
	Params   map[string]any
	IsActive bool
}

// StrategySnapshot returns the union of known specs and current allocations.
func (e *Executor) StrategySnapshot() []StrategyView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]StrategyView, 0, len(e.specs))
	for id, spec := range e.specs {
		alloc, hasAlloc := e.currentAllocations[id]
		_, active := e.active[id]
		v := StrategyView{ID: id, Params: spec.Params, IsActive: active}
		if hasAlloc {
			v.Weight = alloc.Weight
			v.Mode = alloc.Mode
		} else {
			v.Mode = domain.ModePaper
		}
		out = append(out, v)
		seen[id] = struct{}{}
	}
	for id, alloc := range e.currentAllocations {
		if _, ok := seen[id]; ok {
			continue
		}
		_, active := e.active[id]
		out = append(out, StrategyView{ID: id, Weight: alloc.Weight, Mode: alloc.Mode, IsActive: active})
	}
	return out
}

// StrategyIDs returns the ids of every strategy spec currently known to the
// executor. It is used as the Meta-Allocator's universe callback: the
// allocator computes Sharpe/weighting only over strategies the executor has
// already seen on strategy_registry_stream, so a strategy with no trade
// history yet is skipped rather than crashing the epoch.
func (e *Executor) StrategyIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.specs))
	for id := range e.specs {
		ids = append(ids, id)
	}
	return ids
}

// RegisterSpec records (or updates) a strategy's family/params, consumed from
// strategy_registry_stream. It does not itself start or stop any task.
func (e *Executor) RegisterSpec(spec domain.StrategySpec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.specs[spec.ID] = spec
}
