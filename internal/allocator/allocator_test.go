package allocator

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/notify"
)

// fakePerfSource is an in-memory PerfSource keyed by strategy id.
type fakePerfSource struct {
	history map[string][]float64
	counts  map[string]int
}

func (f *fakePerfSource) PnLHistory(ctx context.Context, strategyID string) ([]float64, error) {
	return f.history[strategyID], nil
}

func (f *fakePerfSource) TradeCount(ctx context.Context, strategyID string) (int, error) {
	return f.counts[strategyID], nil
}

// fakeKV is an in-memory KV recording the last value written per key.
type fakeKV struct {
	values map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{values: make(map[string][]byte)} }

func (f *fakeKV) Set(ctx context.Context, key string, value []byte) error {
	f.values[key] = value
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSharpeRatioCollapsesOnShortOrDegenerateHistory(t *testing.T) {
	if _, s := sharpeRatio(nil); s != 0 {
		t.Errorf("empty history: sharpe = %v, want 0", s)
	}
	if _, s := sharpeRatio([]float64{5}); s != 0 {
		t.Errorf("single-sample history: sharpe = %v, want 0", s)
	}
	if _, s := sharpeRatio([]float64{1, 1, 1, 1}); s != 0 {
		t.Errorf("zero-variance history: sharpe = %v, want 0", s)
	}
}

func TestSharpeRatioPositiveMean(t *testing.T) {
	mean, sharpe := sharpeRatio([]float64{10, -2, 8, -1, 6})
	if mean <= 0 {
		t.Fatalf("expected positive mean, got %v", mean)
	}
	if sharpe <= 0 {
		t.Fatalf("expected positive sharpe for a net-positive, varying history, got %v", sharpe)
	}
}

func TestComputeWeightsFavorHigherSharpe(t *testing.T) {
	perf := &fakePerfSource{
		history: map[string][]float64{
			"strong": {20, -2, 18, -1, 22, -3},
			"weak":   {1, -5, 2, -6, 1, -4},
		},
		counts: map[string]int{"strong": 50, "weak": 50},
	}
	a := New(nil, perf, nil, nil, 100, testLogger())

	snap, err := a.Compute(context.Background(), []string{"strong", "weak"})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(snap.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(snap.Allocations))
	}

	byID := map[string]domain.StrategyAllocation{}
	for _, alloc := range snap.Allocations {
		byID[alloc.ID] = alloc
	}
	if byID["strong"].Weight <= byID["weak"].Weight {
		t.Fatalf("expected strong.Weight > weak.Weight, got strong=%v weak=%v", byID["strong"].Weight, byID["weak"].Weight)
	}
	total := byID["strong"].Weight + byID["weak"].Weight
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("weights must sum to 1, got %v", total)
	}
}

func TestComputeEmptyUniverseProducesEmptySnapshot(t *testing.T) {
	perf := &fakePerfSource{history: map[string][]float64{}, counts: map[string]int{}}
	a := New(nil, perf, nil, nil, 10, testLogger())

	snap, err := a.Compute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(snap.Allocations) != 0 {
		t.Fatalf("expected no allocations for an empty universe, got %d", len(snap.Allocations))
	}
}

func TestComputeFlatStrategyStillGetsFloorWeight(t *testing.T) {
	// A strategy with no history (new, never traded) must not be starved to
	// zero: minWeightFactor guarantees it some capital until it builds a
	// track record.
	perf := &fakePerfSource{
		history: map[string][]float64{"new": nil, "established": {5, -1, 6, -2}},
		counts:  map[string]int{"new": 0, "established": 50},
	}
	a := New(nil, perf, nil, nil, 50, testLogger())

	snap, err := a.Compute(context.Background(), []string{"new", "established"})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, alloc := range snap.Allocations {
		if alloc.ID == "new" && alloc.Weight <= 0 {
			t.Fatalf("strategy with no history got zero weight: %+v", alloc)
		}
	}
}

func TestComputeGraduatesOnSharpeAndTradeCount(t *testing.T) {
	perf := &fakePerfSource{
		history: map[string][]float64{"star": {30, 20, 28, 22, 32, 18, 29}},
		counts:  map[string]int{"star": 100},
	}
	a := New(nil, perf, nil, nil, 50, testLogger())

	snap, err := a.Compute(context.Background(), []string{"star"})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := snap.Allocations[0].Mode; got != domain.ModeLive {
		t.Fatalf("expected graduation to ModeLive, got %q (sharpe=%v)", got, snap.Allocations[0].SharpeRatio)
	}
}

// fakeSender is an in-memory notify.Sender recording every delivered message.
type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (s *fakeSender) Send(ctx context.Context, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, title)
	return nil
}

func (s *fakeSender) Name() string { return "fake" }

func TestComputeSendsGraduationAlertOnceOnFirstGraduation(t *testing.T) {
	perf := &fakePerfSource{
		history: map[string][]float64{"star": {30, 20, 28, 22, 32, 18, 29}},
		counts:  map[string]int{"star": 100},
	}
	sender := &fakeSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())
	a := New(nil, perf, nil, notifier, 50, testLogger())

	if _, err := a.Compute(context.Background(), []string{"star"}); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if _, err := a.Compute(context.Background(), []string{"star"}); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.messages) != 1 {
		t.Fatalf("expected exactly one graduation alert across repeated epochs, got %d", len(sender.messages))
	}
}

func TestComputeWithholdsGraduationBelowTradeCount(t *testing.T) {
	perf := &fakePerfSource{
		history: map[string][]float64{"star": {30, 20, 28, 22, 32, 18, 29}},
		counts:  map[string]int{"star": 3}, // below minTradesForGraduation
	}
	a := New(nil, perf, nil, nil, 50, testLogger())

	snap, err := a.Compute(context.Background(), []string{"star"})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := snap.Allocations[0].Mode; got != domain.ModePaper {
		t.Fatalf("expected ModePaper while under the trade-count floor, got %q", got)
	}
}
