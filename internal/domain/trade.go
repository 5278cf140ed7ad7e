package domain

import (
	"context"
	"time"
)

// TradeStatus is the trade-ledger row's lifecycle state. Transitions are
// strictly PENDING -> OPEN -> CLOSED_PROFIT|CLOSED_LOSS, with CANCELED only
// reachable from PENDING.
type TradeStatus string

const (
	StatusPending      TradeStatus = "PENDING"
	StatusOpen         TradeStatus = "OPEN"
	StatusClosedProfit TradeStatus = "CLOSED_PROFIT"
	StatusClosedLoss   TradeStatus = "CLOSED_LOSS"
	StatusCanceled     TradeStatus = "CANCELED"
)

// PaperSignature is the synthetic signature written for simulated fills.
const PaperSignature = "PAPER_TRADE"

// TradeRecord is one row of the trade ledger.
type TradeRecord struct {
	ID           int64
	StrategyID   string
	TokenAddress string
	AmountUSD    float64
	Side         Side
	Mode         Mode
	Confidence   float64
	Status       TradeStatus

	Signature string

	EntryTime     time.Time
	EntryPriceUSD float64

	CloseTime      *time.Time
	ClosePriceUSD  *float64
	PnLUSD         *float64

	// ExtremePriceUSD is highest_price for Long trades and lowest_price for
	// Short trades (side-dependent semantics, see DESIGN.md / SPEC_FULL.md §3.1).
	ExtremePriceUSD float64
}

// TradeLedger is the durable store for trade attempts and their lifecycle.
type TradeLedger interface {
	LogAttempt(ctx context.Context, order OrderDetails, strategyID string, entryPrice float64, mode Mode) (int64, error)
	Open(ctx context.Context, tradeID int64, signature string) error
	UpdateExtremePrice(ctx context.Context, tradeID int64, price float64) error
	Close(ctx context.Context, tradeID int64, status TradeStatus, closePrice, pnl float64) error
	GetOpen(ctx context.Context) ([]TradeRecord, error)
	GetAll(ctx context.Context) ([]TradeRecord, error)
	TotalPnLClosed(ctx context.Context) (float64, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
