package portfolio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/riftline/tradecore/internal/domain"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeBroker) StreamPublish(ctx context.Context, stream string, payload []byte) (string, error) {
	return "0-1", nil
}
func (f *fakeBroker) StreamRead(ctx context.Context, stream, lastID string, count int, blockMs int) ([]domain.StreamMessage, error) {
	return nil, nil
}
func (f *fakeBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, string(payload))
	return nil
}
func (f *fakeBroker) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() { <-ctx.Done(); close(ch) }()
	return ch, nil
}

type fakeLedger struct {
	pnl float64
	err error
}

func (l *fakeLedger) LogAttempt(ctx context.Context, order domain.OrderDetails, strategyID string, entryPrice float64, mode domain.Mode) (int64, error) {
	return 0, nil
}
func (l *fakeLedger) Open(ctx context.Context, tradeID int64, signature string) error { return nil }
func (l *fakeLedger) UpdateExtremePrice(ctx context.Context, tradeID int64, price float64) error {
	return nil
}
func (l *fakeLedger) Close(ctx context.Context, tradeID int64, status domain.TradeStatus, closePrice, pnl float64) error {
	return nil
}
func (l *fakeLedger) GetOpen(ctx context.Context) ([]domain.TradeRecord, error) { return nil, nil }
func (l *fakeLedger) GetAll(ctx context.Context) ([]domain.TradeRecord, error)  { return nil, nil }
func (l *fakeLedger) TotalPnLClosed(ctx context.Context) (float64, error)       { return l.pnl, l.err }
func (l *fakeLedger) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	return nil, nil
}
func (l *fakeLedger) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckTriggersPauseOnDrawdownBreach(t *testing.T) {
	ledger := &fakeLedger{pnl: 1000}
	broker := &fakeBroker{}
	m := New(broker, ledger, Config{StopLossPercent: 0.15}, testLogger())

	m.check(context.Background()) // establish high-water mark at 1000

	ledger.pnl = 800 // 20% drawdown from peak, exceeds 15% threshold
	m.check(context.Background())

	broker.mu.Lock()
	defer broker.mu.Unlock()
	if len(broker.published) != 1 {
		t.Fatalf("expected one PAUSE publish, got %d: %v", len(broker.published), broker.published)
	}
	if broker.published[0][:5] != "PAUSE" {
		t.Fatalf("expected a PAUSE* message, got %q", broker.published[0])
	}
	if !m.paused {
		t.Fatal("monitor should record itself as paused")
	}
}

func TestCheckStaysQuietWithinThreshold(t *testing.T) {
	ledger := &fakeLedger{pnl: 1000}
	broker := &fakeBroker{}
	m := New(broker, ledger, Config{StopLossPercent: 0.15}, testLogger())

	m.check(context.Background())

	ledger.pnl = 900 // 10% drawdown, within the 15% threshold
	m.check(context.Background())

	broker.mu.Lock()
	defer broker.mu.Unlock()
	if len(broker.published) != 0 {
		t.Fatalf("expected no publish within threshold, got %v", broker.published)
	}
}

func TestCheckResumesAfterRecoveryPastHysteresis(t *testing.T) {
	ledger := &fakeLedger{pnl: 1000}
	broker := &fakeBroker{}
	m := New(broker, ledger, Config{StopLossPercent: 0.15}, testLogger())

	m.check(context.Background())
	ledger.pnl = 700 // 30% drawdown, breaches threshold
	m.check(context.Background())
	if !m.paused {
		t.Fatal("expected paused after breach")
	}

	ledger.pnl = 990 // drawdown now 1%, well under 0.15*0.8=12% resume bar
	m.check(context.Background())

	broker.mu.Lock()
	defer broker.mu.Unlock()
	if len(broker.published) != 2 {
		t.Fatalf("expected PAUSE then RESUME, got %d: %v", len(broker.published), broker.published)
	}
	if broker.published[1][:6] != "RESUME" {
		t.Fatalf("expected a RESUME* message second, got %q", broker.published[1])
	}
	if m.paused {
		t.Fatal("monitor should record itself as resumed")
	}
}

func TestCheckNoHighWaterMarkYieldsNoDrawdown(t *testing.T) {
	ledger := &fakeLedger{pnl: -50} // never profitable: no drawdown possible yet
	broker := &fakeBroker{}
	m := New(broker, ledger, Config{StopLossPercent: 0.15}, testLogger())

	m.check(context.Background())

	broker.mu.Lock()
	defer broker.mu.Unlock()
	if len(broker.published) != 0 {
		t.Fatalf("expected no publish with no positive high-water mark, got %v", broker.published)
	}
}
