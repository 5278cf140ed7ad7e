// Package allocator implements the Meta-Allocator: it aggregates per-strategy
// pnl history, computes a Sharpe-like score, assigns capital weights, and
// promotes strategies from Paper to Live once they graduate. Grounded on
// original_source/meta_allocator/src/main.rs for the metrics/weighting/
// graduation math, and the teacher's internal/pipeline/orchestrator.go for
// the periodic-loop idiom.
package allocator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/metrics"
	"github.com/riftline/tradecore/internal/notify"
)

const (
	// epochInterval is the Meta-Allocator's publish cadence (SPEC_FULL.md §4.6).
	epochInterval = 60 * time.Second
	// errorBackoff is the retry delay after a broker error mid-epoch.
	errorBackoff = 10 * time.Second

	activeAllocationsKey = "active_allocations"
	allocationsStream    = "allocations"

	// minWeightFactor is the floor applied to any Sharpe score below it
	// (including negative or zero scores) so every strategy retains some
	// capital allocation.
	minWeightFactor = 0.1

	graduationSharpeThreshold = 1.25
)

// KV is the minimal key/value capability the allocator needs to snapshot
// active_allocations.
type KV interface {
	Set(ctx context.Context, key string, value []byte) error
}

// PerfSource reads per-strategy performance history from the broker.
type PerfSource interface {
	// PnLHistory reads every recorded pnl value from perf:<id>:pnl_history.
	PnLHistory(ctx context.Context, strategyID string) ([]float64, error)
	// TradeCount reads perf:<id>:trade_count, 0 if absent.
	TradeCount(ctx context.Context, strategyID string) (int, error)
}

// Allocator is the Meta-Allocator.
type Allocator struct {
	broker             domain.Broker
	perf               PerfSource
	kv                 KV
	notifier           *notify.Notifier
	minTradesGraduate  int
	logger             *slog.Logger

	graduated map[string]bool
}

// New constructs an Allocator. The strategy universe is supplied per-epoch
// by the universe callback passed to Run; an empty universe produces an
// empty snapshot. notifier may be nil, in which case graduation alerts are
// skipped.
func New(broker domain.Broker, perf PerfSource, kv KV, notifier *notify.Notifier, minTradesForGraduation int, logger *slog.Logger) *Allocator {
	return &Allocator{
		broker:            broker,
		perf:              perf,
		kv:                kv,
		notifier:          notifier,
		minTradesGraduate: minTradesForGraduation,
		logger:            logger.With(slog.String("component", "meta_allocator")),
		graduated:         make(map[string]bool),
	}
}

// Run executes the epoch loop until ctx is done: compute, publish, sleep.
func (a *Allocator) Run(ctx context.Context, universe func() []string) error {
	a.logger.Info("meta-allocator started")
	defer a.logger.Info("meta-allocator stopped")

	ticker := time.NewTicker(epochInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.runEpoch(ctx, universe()); err != nil {
				a.logger.Error("epoch failed, retrying with backoff", slog.String("error", err.Error()))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(errorBackoff):
				}
			}
		}
	}
}

// runEpoch computes one allocation snapshot and publishes it.
func (a *Allocator) runEpoch(ctx context.Context, strategyIDs []string) error {
	snapshot, err := a.Compute(ctx, strategyIDs)
	if err != nil {
		return err
	}
	return a.publish(ctx, snapshot)
}

// strategyMetrics is the per-strategy intermediate result before weighting.
type strategyMetrics struct {
	id         string
	mean       float64
	sharpe     float64
	tradeCount int
	weightFac  float64
}

// Compute aggregates performance history for each strategy id and returns the
// resulting allocation snapshot (SPEC_FULL.md §4.6). Exported for direct
// testing without a broker round trip.
func (a *Allocator) Compute(ctx context.Context, strategyIDs []string) (domain.AllocationSnapshot, error) {
	metricsByID := make([]strategyMetrics, 0, len(strategyIDs))
	for _, id := range strategyIDs {
		history, err := a.perf.PnLHistory(ctx, id)
		if err != nil {
			return domain.AllocationSnapshot{}, fmt.Errorf("allocator: pnl history %s: %w", id, err)
		}
		tradeCount, err := a.perf.TradeCount(ctx, id)
		if err != nil {
			return domain.AllocationSnapshot{}, fmt.Errorf("allocator: trade count %s: %w", id, err)
		}

		mean, sharpe := sharpeRatio(history)
		weightFac := math.Max(sharpe, minWeightFactor)
		metricsByID = append(metricsByID, strategyMetrics{id: id, mean: mean, sharpe: sharpe, tradeCount: tradeCount, weightFac: weightFac})

		metrics.AllocatorSharpe.WithLabelValues(id).Set(sharpe)
	}

	var sumWeightFac float64
	for _, m := range metricsByID {
		sumWeightFac += m.weightFac
	}

	allocations := make([]domain.StrategyAllocation, 0, len(metricsByID))
	for _, m := range metricsByID {
		var weight float64
		if sumWeightFac > 0 {
			weight = m.weightFac / sumWeightFac
		} else if len(metricsByID) > 0 {
			weight = 1.0 / float64(len(metricsByID))
		}

		mode := domain.ModePaper
		if m.tradeCount >= a.minTradesGraduate && m.sharpe >= graduationSharpeThreshold {
			mode = domain.ModeLive
			if !a.graduated[m.id] {
				a.graduated[m.id] = true
				metrics.GraduationsTotal.WithLabelValues(m.id).Inc()
				a.logger.Info("strategy graduated to live trading", slog.String("strategy_id", m.id), slog.Float64("sharpe", m.sharpe))
				a.notifyGraduation(ctx, m)
			}
		} else {
			a.graduated[m.id] = false
		}

		metrics.AllocatorWeight.WithLabelValues(m.id).Set(weight)
		allocations = append(allocations, domain.StrategyAllocation{
			ID: m.id, Weight: weight, SharpeRatio: m.sharpe, Mode: mode,
		})
	}

	sort.Slice(allocations, func(i, j int) bool {
		if allocations[i].SharpeRatio != allocations[j].SharpeRatio {
			return allocations[i].SharpeRatio > allocations[j].SharpeRatio
		}
		return meanOf(metricsByID, allocations[i].ID) > meanOf(metricsByID, allocations[j].ID)
	})

	return domain.AllocationSnapshot{Allocations: allocations, EpochUnix: time.Now().Unix()}, nil
}

// notifyGraduation sends the single idempotent-per-epoch graduation alert
// (SPEC_FULL.md §4.6) through the alert relay. A nil notifier (no senders
// configured) is a no-op.
func (a *Allocator) notifyGraduation(ctx context.Context, m strategyMetrics) {
	if a.notifier == nil {
		return
	}
	title := "Strategy graduated to live trading"
	message := fmt.Sprintf("%s graduated to live trading (sharpe=%.2f, trades=%d)", m.id, m.sharpe, m.tradeCount)
	if err := a.notifier.Notify(ctx, "graduation", title, message); err != nil {
		a.logger.Error("graduation alert failed", slog.String("strategy_id", m.id), slog.String("error", err.Error()))
	}
}

func meanOf(ms []strategyMetrics, id string) float64 {
	for _, m := range ms {
		if m.id == id {
			return m.mean
		}
	}
	return 0
}

// sharpeRatio computes mean/stdev over a pnl history, collapsing to 0 on
// n<2, zero/non-finite stdev, or a non-finite result (SPEC_FULL.md §4.6).
func sharpeRatio(history []float64) (mean, sharpe float64) {
	n := len(history)
	if n < 2 {
		return meanOnly(history), 0
	}
	mean = meanOnly(history)
	var sumSq float64
	for _, x := range history {
		d := x - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(n-1))
	if std <= 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return mean, 0
	}
	s := mean / std
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return mean, 0
	}
	return mean, s
}

func meanOnly(history []float64) float64 {
	if len(history) == 0 {
		return 0
	}
	var sum float64
	for _, x := range history {
		sum += x
	}
	return sum / float64(len(history))
}

// publish overwrites active_allocations and appends a record to the
// allocations stream.
func (a *Allocator) publish(ctx context.Context, snapshot domain.AllocationSnapshot) error {
	payload, err := domain.MarshalAllocationSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("allocator: marshal snapshot: %w", err)
	}
	if a.kv != nil {
		if err := a.kv.Set(ctx, activeAllocationsKey, payload); err != nil {
			return fmt.Errorf("allocator: set active_allocations: %w", err)
		}
	}
	if _, err := a.broker.StreamPublish(ctx, allocationsStream, payload); err != nil {
		return fmt.Errorf("allocator: publish allocations stream: %w", err)
	}
	return nil
}
