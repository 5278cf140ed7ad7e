package executor

import (
	"context"
	"sync"
	"time"

	"github.com/riftline/tradecore/internal/domain"
)

// fakeBroker is an in-memory domain.Broker sufficient for executor tests:
// StreamPublish/Publish just record, nothing reads them back.
type fakeBroker struct {
	mu        sync.Mutex
	published [][]byte
}

func (f *fakeBroker) StreamPublish(ctx context.Context, stream string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return "0-1", nil
}

func (f *fakeBroker) StreamRead(ctx context.Context, stream, lastID string, count int, blockMs int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (f *fakeBroker) Publish(ctx context.Context, topic string, payload []byte) error { return nil }

func (f *fakeBroker) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// fakeLedger is an in-memory domain.TradeLedger.
type fakeLedger struct {
	mu     sync.Mutex
	nextID int64
	trades map[int64]*domain.TradeRecord
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{trades: make(map[int64]*domain.TradeRecord)}
}

func (l *fakeLedger) LogAttempt(ctx context.Context, order domain.OrderDetails, strategyID string, entryPrice float64, mode domain.Mode) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.trades[id] = &domain.TradeRecord{
		ID: id, StrategyID: strategyID, TokenAddress: order.TokenAddress,
		AmountUSD: order.SuggestedSizeUSD, Side: order.Side, Mode: mode,
		Confidence: order.Confidence, Status: domain.StatusPending,
		EntryTime: time.Now().UTC(), EntryPriceUSD: entryPrice,
		ExtremePriceUSD: entryPrice,
	}
	return id, nil
}

func (l *fakeLedger) Open(ctx context.Context, tradeID int64, signature string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trades[tradeID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.StatusOpen
	t.Signature = signature
	return nil
}

func (l *fakeLedger) UpdateExtremePrice(ctx context.Context, tradeID int64, price float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trades[tradeID]
	if !ok {
		return domain.ErrNotFound
	}
	t.ExtremePriceUSD = price
	return nil
}

func (l *fakeLedger) Close(ctx context.Context, tradeID int64, status domain.TradeStatus, closePrice, pnl float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trades[tradeID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	t.Status = status
	t.CloseTime = &now
	t.ClosePriceUSD = &closePrice
	t.PnLUSD = &pnl
	return nil
}

func (l *fakeLedger) GetOpen(ctx context.Context) ([]domain.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.TradeRecord
	for _, t := range l.trades {
		if t.Status == domain.StatusOpen {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (l *fakeLedger) GetAll(ctx context.Context) ([]domain.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.TradeRecord
	for _, t := range l.trades {
		out = append(out, *t)
	}
	return out, nil
}

func (l *fakeLedger) TotalPnLClosed(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, t := range l.trades {
		if t.PnLUSD != nil {
			total += *t.PnLUSD
		}
	}
	return total, nil
}

func (l *fakeLedger) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (l *fakeLedger) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

// fakePriceCache is an in-memory domain.PriceCache.
type fakePriceCache struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{prices: make(map[string]float64)}
}

func (c *fakePriceCache) SetPrice(ctx context.Context, token string, price float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[token] = price
	return nil
}

func (c *fakePriceCache) GetPrice(ctx context.Context, token string) (float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[token]
	if !ok {
		return 0, time.Time{}, domain.ErrNoPrice
	}
	return p, time.Now().UTC(), nil
}

func (c *fakePriceCache) GetPrices(ctx context.Context, tokens []string) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		if p, ok := c.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

// recordingStrategy is a domain.Strategy that forwards every delivered event
// onto a channel so tests can synchronize on delivery without sleeping. The
// channel is registered in recordingChannels under the strategy's id at
// construction time since the registry's Constructor signature only returns
// the domain.Strategy interface.
type recordingStrategy struct {
	id     string
	events chan domain.MarketEvent
}

var (
	recordingChannelsMu sync.Mutex
	recordingChannels   = map[string]chan domain.MarketEvent{}
)

func newRecordingStrategy(id string) domain.Strategy {
	ch := make(chan domain.MarketEvent, 16)
	recordingChannelsMu.Lock()
	recordingChannels[id] = ch
	recordingChannelsMu.Unlock()
	return &recordingStrategy{id: id, events: ch}
}

func recordingEvents(id string) chan domain.MarketEvent {
	recordingChannelsMu.Lock()
	defer recordingChannelsMu.Unlock()
	return recordingChannels[id]
}

func (s *recordingStrategy) ID() string { return s.id }
func (s *recordingStrategy) Subscriptions() []domain.EventType {
	return []domain.EventType{domain.EventTypePrice}
}
func (s *recordingStrategy) Init(ctx context.Context, params map[string]any) error { return nil }
func (s *recordingStrategy) OnEvent(ctx context.Context, event domain.MarketEvent) (domain.StrategyAction, error) {
	s.events <- event
	return domain.Hold(), nil
}
