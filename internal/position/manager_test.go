package position

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
	published [][]byte
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
	f.published = append(f.published, payload)
	return nil
}
func (f *fakeBroker) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() { <-ctx.Done(); close(ch) }()
	return ch, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	open    []domain.TradeRecord
	closed  []domain.TradeRecord
	extreme map[int64]float64
}

func newFakeLedger(open ...domain.TradeRecord) *fakeLedger {
	l := &fakeLedger{open: open, extreme: make(map[int64]float64)}
	for _, t := range open {
		l.extreme[t.ID] = t.ExtremePriceUSD
	}
	return l
}

func (l *fakeLedger) LogAttempt(ctx context.Context, order domain.OrderDetails, strategyID string, entryPrice float64, mode domain.Mode) (int64, error) {
	return 0, nil
}
func (l *fakeLedger) Open(ctx context.Context, tradeID int64, signature string) error { return nil }

func (l *fakeLedger) UpdateExtremePrice(ctx context.Context, tradeID int64, price float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.extreme[tradeID] = price
	return nil
}

func (l *fakeLedger) Close(ctx context.Context, tradeID int64, status domain.TradeStatus, closePrice, pnl float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, t := range l.open {
		if t.ID == tradeID {
			t.Status = status
			t.ClosePriceUSD = &closePrice
			t.PnLUSD = &pnl
			l.closed = append(l.closed, t)
			l.open = append(l.open[:i], l.open[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (l *fakeLedger) GetOpen(ctx context.Context) ([]domain.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TradeRecord, len(l.open))
	copy(out, l.open)
	return out, nil
}

func (l *fakeLedger) GetAll(ctx context.Context) ([]domain.TradeRecord, error) { return nil, nil }
func (l *fakeLedger) TotalPnLClosed(ctx context.Context) (float64, error)      { return 0, nil }
func (l *fakeLedger) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	return nil, nil
}
func (l *fakeLedger) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakePriceCache struct {
	prices map[string]float64
}

func (c *fakePriceCache) SetPrice(ctx context.Context, token string, price float64, ts time.Time) error {
	c.prices[token] = price
	return nil
}
func (c *fakePriceCache) GetPrice(ctx context.Context, token string) (float64, time.Time, error) {
	p, ok := c.prices[token]
	if !ok {
		return 0, time.Time{}, domain.ErrNoPrice
	}
	return p, time.Now().UTC(), nil
}
func (c *fakePriceCache) GetPrices(ctx context.Context, tokens []string) (map[string]float64, error) {
	return c.prices, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEvaluateLongTriggersTrailingStop(t *testing.T) {
	trade := domain.TradeRecord{
		ID: 1, Side: domain.SideLong, TokenAddress: "tok",
		EntryPriceUSD: 100, ExtremePriceUSD: 120, AmountUSD: 1000, Status: domain.StatusOpen,
	}
	ledger := newFakeLedger(trade)
	prices := &fakePriceCache{prices: map[string]float64{"tok": 107}} // 120*(1-0.1)=108, 107<108 triggers
	broker := &fakeBroker{}

	m := New(broker, ledger, prices, nil, nil, nil, nil, Config{TrailingStopFraction: 0.1, PaperMode: true}, testLogger())
	m.evaluate(context.Background(), trade)

	if len(ledger.closed) != 1 {
		t.Fatalf("expected trade to close, got %d closed", len(ledger.closed))
	}
	if len(ledger.open) != 0 {
		t.Fatalf("expected no open trades remaining, got %d", len(ledger.open))
	}
}

func TestEvaluateLongHoldsAboveTrigger(t *testing.T) {
	trade := domain.TradeRecord{
		ID: 1, Side: domain.SideLong, TokenAddress: "tok",
		EntryPriceUSD: 100, ExtremePriceUSD: 120, AmountUSD: 1000, Status: domain.StatusOpen,
	}
	ledger := newFakeLedger(trade)
	prices := &fakePriceCache{prices: map[string]float64{"tok": 115}} // above 108 trigger: hold
	m := New(&fakeBroker{}, ledger, prices, nil, nil, nil, nil, Config{TrailingStopFraction: 0.1, PaperMode: true}, testLogger())

	m.evaluate(context.Background(), trade)

	if len(ledger.closed) != 0 {
		t.Fatalf("expected trade to remain open, got %d closed", len(ledger.closed))
	}
	if got := ledger.extreme[1]; got != 120 {
		t.Fatalf("extreme should stay at prior high, got %v", got)
	}
}

func TestEvaluateLongRatchetsExtremeUpward(t *testing.T) {
	trade := domain.TradeRecord{
		ID: 1, Side: domain.SideLong, TokenAddress: "tok",
		EntryPriceUSD: 100, ExtremePriceUSD: 100, AmountUSD: 1000, Status: domain.StatusOpen,
	}
	ledger := newFakeLedger(trade)
	prices := &fakePriceCache{prices: map[string]float64{"tok": 130}}
	m := New(&fakeBroker{}, ledger, prices, nil, nil, nil, nil, Config{TrailingStopFraction: 0.1, PaperMode: true}, testLogger())

	m.evaluate(context.Background(), trade)

	if got := ledger.extreme[1]; got != 130 {
		t.Fatalf("expected extreme to ratchet to new high 130, got %v", got)
	}
	if len(ledger.closed) != 0 {
		t.Fatal("a new high should never itself trigger a close")
	}
}

func TestEvaluateShortTriggersOnRiseAboveBand(t *testing.T) {
	trade := domain.TradeRecord{
		ID: 1, Side: domain.SideShort, TokenAddress: "tok",
		EntryPriceUSD: 100, ExtremePriceUSD: 80, AmountUSD: 1000, Status: domain.StatusOpen,
	}
	ledger := newFakeLedger(trade)
	// trigger = 80*(1+0.1) = 88; price above it closes the short, and 110 is
	// also above the 100 entry, so the close is a loss.
	prices := &fakePriceCache{prices: map[string]float64{"tok": 110}}
	m := New(&fakeBroker{}, ledger, prices, nil, nil, nil, nil, Config{TrailingStopFraction: 0.1, PaperMode: true}, testLogger())

	m.evaluate(context.Background(), trade)

	if len(ledger.closed) != 1 {
		t.Fatalf("expected short to close, got %d closed", len(ledger.closed))
	}
	pnl := *ledger.closed[0].PnLUSD
	if pnl >= 0 {
		t.Fatalf("expected a loss for a short closed above entry, got pnl=%v", pnl)
	}
}

func TestEvaluateSkipsWithoutCachedPrice(t *testing.T) {
	trade := domain.TradeRecord{ID: 1, Side: domain.SideLong, TokenAddress: "missing", ExtremePriceUSD: 100, EntryPriceUSD: 100, AmountUSD: 1000}
	ledger := newFakeLedger(trade)
	prices := &fakePriceCache{prices: map[string]float64{}}
	m := New(&fakeBroker{}, ledger, prices, nil, nil, nil, nil, Config{TrailingStopFraction: 0.1, PaperMode: true}, testLogger())

	m.evaluate(context.Background(), trade)

	if len(ledger.closed) != 0 || len(ledger.open) != 1 {
		t.Fatal("a trade with no cached price must be left untouched, not closed")
	}
}

func TestEvaluatePublishesPositionUpdateOnClose(t *testing.T) {
	trade := domain.TradeRecord{
		ID: 1, Side: domain.SideLong, TokenAddress: "tok",
		EntryPriceUSD: 100, ExtremePriceUSD: 120, AmountUSD: 1000, Status: domain.StatusOpen,
	}
	ledger := newFakeLedger(trade)
	prices := &fakePriceCache{prices: map[string]float64{"tok": 100}}
	broker := &fakeBroker{}
	m := New(broker, ledger, prices, nil, nil, nil, nil, Config{TrailingStopFraction: 0.1, PaperMode: true}, testLogger())

	m.evaluate(context.Background(), trade)

	broker.mu.Lock()
	n := len(broker.published)
	broker.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected one position update published on close, got %d", n)
	}
}

func TestComputePnLLongAndShort(t *testing.T) {
	long := domain.TradeRecord{Side: domain.SideLong, EntryPriceUSD: 100, AmountUSD: 1000}
	if got := computePnL(long, 110); got <= 0 {
		t.Fatalf("long pnl should be positive when price rises, got %v", got)
	}
	short := domain.TradeRecord{Side: domain.SideShort, EntryPriceUSD: 100, AmountUSD: 1000}
	if got := computePnL(short, 110); got >= 0 {
		t.Fatalf("short pnl should be negative when price rises, got %v", got)
	}
	degenerate := domain.TradeRecord{Side: domain.SideLong, EntryPriceUSD: 0, AmountUSD: 1000}
	if got := computePnL(degenerate, 110); got != 0 {
		t.Fatalf("zero entry price must collapse to zero pnl, got %v", got)
	}
}
