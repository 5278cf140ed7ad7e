package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/metrics"
)

// positionUpdatesStream is the outbound analytics stream carrying one record
// per opened (and, for paper, immediately closed) trade.
const positionUpdatesStream = "position_updates_channel"

type positionUpdate struct {
	TradeID    int64          `json:"trade_id"`
	StrategyID string         `json:"strategy_id"`
	Token      string         `json:"token"`
	Status     string         `json:"status"`
	PnLUSD     float64        `json:"pnl_usd"`
	EntryTime  time.Time      `json:"entry_time"`
	Features   map[string]any `json:"triggering_features,omitempty"`
}

// handleSignal is the Master Executor's signal pipeline (SPEC_FULL.md §4.3
// steps 1-9). It resolves the effective mode, clamps size, obtains a price,
// logs the attempt, executes paper or live, publishes a position update, and
// records metrics. Errors surface only as counters; the caller never blocks
// on retry (strategies may re-emit).
func (e *Executor) handleSignal(ctx context.Context, strategyID string, order domain.OrderDetails) {
	log := e.logger.With(slog.String("strategy_id", strategyID), slog.String("token", order.TokenAddress))

	if e.pause.Load() {
		metrics.SkippedSignalsTotal.WithLabelValues(strategyID).Inc()
		log.Debug("signal dropped: portfolio paused")
		return
	}

	e.mu.RLock()
	alloc, hasAlloc := e.currentAllocations[strategyID]
	e.mu.RUnlock()
	mode := domain.ModePaper
	if hasAlloc && alloc.Mode != "" {
		mode = alloc.Mode
	}

	sizeUSD := order.SuggestedSizeUSD
	if e.cfg.GlobalMaxPositionUSD > 0 && sizeUSD > e.cfg.GlobalMaxPositionUSD {
		sizeUSD = e.cfg.GlobalMaxPositionUSD
	}

	price, err := e.resolvePrice(ctx, order, sizeUSD)
	if err != nil {
		metrics.SignalErrorsTotal.WithLabelValues(strategyID, "quote").Inc()
		log.Warn("signal dropped: quote failed", slog.String("error", err.Error()))
		return
	}

	start := time.Now()
	tradeID, err := e.ledger.LogAttempt(ctx, order, strategyID, price, mode)
	if err != nil {
		metrics.SignalErrorsTotal.WithLabelValues(strategyID, "ledger").Inc()
		log.Error("signal dropped: log attempt failed", slog.String("error", err.Error()))
		return
	}

	var execErr error
	if mode == domain.ModePaper {
		execErr = e.executePaper(ctx, tradeID, order, sizeUSD, price)
	} else {
		execErr = e.executeLive(ctx, tradeID, order, sizeUSD)
	}
	if execErr != nil {
		metrics.SignalErrorsTotal.WithLabelValues(strategyID, "venue").Inc()
		log.Error("signal execution failed, ledger row remains PENDING", slog.String("error", execErr.Error()))
		return
	}

	metrics.TradesTotal.WithLabelValues(strategyID, string(mode)).Inc()
	metrics.SignalLatencySeconds.WithLabelValues(strategyID, string(mode)).Observe(time.Since(start).Seconds())

	payload, err := json.Marshal(positionUpdate{
		TradeID:    tradeID,
		StrategyID: strategyID,
		Token:      order.TokenAddress,
		Status:     string(domain.StatusOpen),
		PnLUSD:     0,
		EntryTime:  start.UTC(),
		Features:   order.TriggeringFeatures,
	})
	if err == nil {
		if _, pubErr := e.broker.StreamPublish(ctx, positionUpdatesStream, payload); pubErr != nil {
			log.Warn("position update publish failed", slog.String("error", pubErr.Error()))
		}
	}
}

// resolvePrice returns the order's limit price if present, otherwise quotes
// the current token price via the spot client using size_usd/sol_usd_price as
// the input amount (SPEC_FULL.md §4.3 step 4).
func (e *Executor) resolvePrice(ctx context.Context, order domain.OrderDetails, sizeUSD float64) (float64, error) {
	if order.LimitPriceUSD > 0 {
		return order.LimitPriceUSD, nil
	}
	if e.spot == nil {
		return 0, fmt.Errorf("executor: no spot client configured for quote")
	}
	solPrice := e.SolUSDPrice()
	if solPrice <= 0 {
		return 0, fmt.Errorf("executor: no sol/usd price available for quote sizing")
	}
	vctx, cancel := context.WithTimeout(ctx, e.cfg.VenueTimeout)
	defer cancel()
	price, _, err := e.spot.Quote(vctx, order.TokenAddress, sizeUSD/solPrice)
	return price, err
}

// executePaper marks the trade OPEN with the synthetic signature, then
// immediately synthesizes a close (SPEC_FULL.md §4.3 step 6, §9 Open
// Question: the paper path bypasses the Position Manager by design).
func (e *Executor) executePaper(ctx context.Context, tradeID int64, order domain.OrderDetails, sizeUSD, entryPrice float64) error {
	if err := e.ledger.Open(ctx, tradeID, domain.PaperSignature); err != nil {
		return fmt.Errorf("paper open: %w", err)
	}

	priceFrac := -0.05 + rand.Float64()*0.10 // U(-0.05, +0.05) price move since entry
	pnl := sizeUSD * priceFrac
	if order.Side == domain.SideShort {
		pnl = -pnl // a short profits when price falls
	}
	status := domain.StatusClosedProfit
	if pnl < 0 {
		status = domain.StatusClosedLoss
	}

	closePrice := entryPrice * (1 + priceFrac)
	if err := e.ledger.Close(ctx, tradeID, status, closePrice, pnl); err != nil {
		return fmt.Errorf("paper close: %w", err)
	}
	return nil
}

// executeLive submits the order to the appropriate venue and marks the
// ledger row OPEN with the returned signature (SPEC_FULL.md §4.3 step 7).
func (e *Executor) executeLive(ctx context.Context, tradeID int64, order domain.OrderDetails, sizeUSD float64) error {
	vctx, cancel := context.WithTimeout(ctx, e.cfg.VenueTimeout)
	defer cancel()

	solPrice := e.SolUSDPrice()
	if solPrice <= 0 {
		return fmt.Errorf("executor: no sol/usd price available for venue sizing")
	}
	baseAmount := sizeUSD / solPrice

	var signature string
	var err error
	switch order.Side {
	case domain.SideShort:
		if e.perps == nil {
			return fmt.Errorf("executor: no perps client configured")
		}
		signature, err = e.perps.Open(vctx, domain.SideShort, baseAmount, false)
	default:
		if e.spot == nil || e.signer == nil || e.bundle == nil {
			return fmt.Errorf("executor: incomplete live-trading wiring (spot/signer/bundle)")
		}
		var unsignedTx string
		unsignedTx, err = e.spot.Swap(vctx, order.TokenAddress, sizeUSD)
		if err == nil {
			var signedTx string
			signedTx, err = e.signer.Sign(vctx, unsignedTx)
			if err == nil {
				tipped := e.bundle.AttachTip(signedTx, e.cfg.TipLamports)
				signature, err = e.bundle.Submit(vctx, tipped)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("venue submit: %w", err)
	}
	if err := e.ledger.Open(ctx, tradeID, signature); err != nil {
		return fmt.Errorf("live open: %w", err)
	}
	return nil
}
