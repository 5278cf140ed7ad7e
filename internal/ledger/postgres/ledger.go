package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riftline/tradecore/internal/domain"
)

// Ledger implements domain.TradeLedger using PostgreSQL, grounded on the
// teacher's internal/store/postgres/trade_store.go.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a new Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

const tradeSelectCols = `id, strategy_id, token_address, amount_usd, side, mode, confidence,
	status, signature, entry_time, entry_price_usd, close_time, close_price_usd,
	pnl_usd, extreme_price_usd`

func scanTradeRow(row pgx.Row) (domain.TradeRecord, error) {
	var t domain.TradeRecord
	var side, mode, status string
	if err := row.Scan(
		&t.ID, &t.StrategyID, &t.TokenAddress, &t.AmountUSD, &side, &mode, &t.Confidence,
		&status, &t.Signature, &t.EntryTime, &t.EntryPriceUSD, &t.CloseTime, &t.ClosePriceUSD,
		&t.PnLUSD, &t.ExtremePriceUSD,
	); err != nil {
		return domain.TradeRecord{}, err
	}
	t.Side = domain.Side(side)
	t.Mode = domain.Mode(mode)
	t.Status = domain.TradeStatus(status)
	return t, nil
}

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var out []domain.TradeRecord
	for rows.Next() {
		t, err := scanTradeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LogAttempt inserts a new PENDING row and returns its id.
func (l *Ledger) LogAttempt(ctx context.Context, order domain.OrderDetails, strategyID string, entryPrice float64, mode domain.Mode) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx, `
		INSERT INTO trades (strategy_id, token_address, amount_usd, side, mode, confidence,
			status, entry_time, entry_price_usd, extreme_price_usd)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8, $8)
		RETURNING id`,
		strategyID, order.TokenAddress, order.SuggestedSizeUSD, order.Side, mode, order.Confidence,
		domain.StatusPending, entryPrice,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: log trade attempt: %w", err)
	}
	return id, nil
}

// Open transitions a PENDING row to OPEN with the given venue signature.
func (l *Ledger) Open(ctx context.Context, tradeID int64, signature string) error {
	tag, err := l.pool.Exec(ctx, `
		UPDATE trades SET status = $1, signature = $2
		WHERE id = $3 AND status = $4`,
		domain.StatusOpen, signature, tradeID, domain.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("postgres: open trade %d: %w", tradeID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: open trade %d: %w", tradeID, domain.ErrNotFound)
	}
	return nil
}

// UpdateExtremePrice stores the new favorable-extreme price for an open
// trade. Callers are responsible for only ever moving it in the favorable
// direction (max for Long, min for Short); see internal/position.
func (l *Ledger) UpdateExtremePrice(ctx context.Context, tradeID int64, price float64) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE trades SET extreme_price_usd = $1 WHERE id = $2 AND status = $3`,
		price, tradeID, domain.StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("postgres: update extreme price %d: %w", tradeID, err)
	}
	return nil
}

// Close transitions an OPEN row to a terminal CLOSED_* status.
func (l *Ledger) Close(ctx context.Context, tradeID int64, status domain.TradeStatus, closePrice, pnl float64) error {
	tag, err := l.pool.Exec(ctx, `
		UPDATE trades SET status = $1, close_time = NOW(), close_price_usd = $2, pnl_usd = $3
		WHERE id = $4 AND status = $5`,
		status, closePrice, pnl, tradeID, domain.StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("postgres: close trade %d: %w", tradeID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: close trade %d: %w", tradeID, domain.ErrNotFound)
	}
	return nil
}

// GetOpen returns all OPEN rows, used by the Position Manager's control loop.
func (l *Ledger) GetOpen(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+tradeSelectCols+` FROM trades WHERE status = $1`, domain.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("postgres: get open trades: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// GetAll returns every trade row, newest first.
func (l *Ledger) GetAll(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+tradeSelectCols+` FROM trades ORDER BY entry_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: get all trades: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// TotalPnLClosed sums pnl_usd over every closed (profit or loss) row.
func (l *Ledger) TotalPnLClosed(ctx context.Context) (float64, error) {
	var total *float64
	err := l.pool.QueryRow(ctx, `
		SELECT SUM(pnl_usd) FROM trades WHERE status IN ($1, $2)`,
		domain.StatusClosedProfit, domain.StatusClosedLoss,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: total pnl: %w", err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// ListBefore returns closed/canceled trades older than before, for archiving.
func (l *Ledger) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+tradeSelectCols+` FROM trades
		WHERE entry_time < $1 AND status IN ($2, $3, $4)
		ORDER BY entry_time ASC`,
		before, domain.StatusClosedProfit, domain.StatusClosedLoss, domain.StatusCanceled,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore removes rows previously returned by ListBefore, once archived.
func (l *Ledger) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := l.pool.Exec(ctx, `
		DELETE FROM trades
		WHERE entry_time < $1 AND status IN ($2, $3, $4)`,
		before, domain.StatusClosedProfit, domain.StatusClosedLoss, domain.StatusCanceled,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.TradeLedger = (*Ledger)(nil)
