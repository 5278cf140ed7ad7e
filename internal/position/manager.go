// Package position implements the Position Manager: it drives open trades
// through a trailing-stop-loss state machine using live prices from the
// shared price cache, and issues closing orders against the venue clients.
// Grounded on original_source/position_manager/src/position_monitor.rs for
// the control-loop math and the teacher's internal/cache/redis/price_cache.go
// for the price-cache idiom.
package position

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/metrics"
	"github.com/riftline/tradecore/internal/venue"
)

// positionUpdatesTopic is the outbound pub/sub topic the dashboard WS hub
// rebroadcasts (SPEC_FULL.md §6).
const positionUpdatesTopic = "position_updates_channel"

// PositionUpdate is the payload published to positionUpdatesTopic whenever
// the control loop closes a trade.
type PositionUpdate struct {
	TradeID      int64             `json:"trade_id"`
	StrategyID   string            `json:"strategy_id"`
	TokenAddress string            `json:"token_address"`
	Status       domain.TradeStatus `json:"status"`
	ClosePriceUSD float64          `json:"close_price_usd"`
	PnLUSD       float64           `json:"pnl_usd"`
	ClosedAt     int64             `json:"closed_at"`
}

// Signer is the capability the close-routing path needs from the external
// signer oracle.
type Signer interface {
	Sign(ctx context.Context, unsignedTxB64 string) (signedTxB64 string, err error)
}

// controlLoopInterval is the cadence of the trailing-stop sweep
// (SPEC_FULL.md §4.5).
const controlLoopInterval = 10 * time.Second

// Config holds the Position Manager's tunables.
type Config struct {
	// TrailingStopFraction is τ, the fractional retracement from the
	// favorable extreme that triggers a close.
	TrailingStopFraction float64
	// PaperMode disables venue calls entirely: closes are recorded in the
	// ledger without routing to a venue.
	PaperMode bool
	TipLamports  uint64
	VenueTimeout time.Duration
}

// Manager is the Position Manager.
type Manager struct {
	broker domain.Broker
	ledger domain.TradeLedger
	prices domain.PriceCache

	spot   venue.SpotClient
	perps  venue.PerpsClient
	bundle venue.BundleSubmitter
	signer Signer

	cfg    Config
	logger *slog.Logger
}

// New constructs a Manager.
func New(
	broker domain.Broker,
	ledger domain.TradeLedger,
	prices domain.PriceCache,
	spot venue.SpotClient,
	perps venue.PerpsClient,
	bundle venue.BundleSubmitter,
	signer Signer,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		broker: broker,
		ledger: ledger,
		prices: prices,
		spot:   spot,
		perps:  perps,
		bundle: bundle,
		signer: signer,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "position_manager")),
	}
}

// Run drives the control loop every controlLoopInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("position manager started")
	defer m.logger.Info("position manager stopped")

	ticker := time.NewTicker(controlLoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep runs one pass of the trailing-stop control loop over every open
// trade (SPEC_FULL.md §4.5).
func (m *Manager) sweep(ctx context.Context) {
	open, err := m.ledger.GetOpen(ctx)
	if err != nil {
		m.logger.Error("get open trades failed", slog.String("error", err.Error()))
		return
	}
	metrics.OpenPositions.Set(float64(len(open)))
	for _, trade := range open {
		m.evaluate(ctx, trade)
	}
}

// evaluate applies the TSL state machine to a single open trade.
func (m *Manager) evaluate(ctx context.Context, trade domain.TradeRecord) {
	log := m.logger.With(slog.Int64("trade_id", trade.ID), slog.String("token", trade.TokenAddress))

	price, _, err := m.prices.GetPrice(ctx, trade.TokenAddress)
	if err != nil {
		log.Warn("no cached price, skipping", slog.String("error", err.Error()))
		return
	}

	extreme := trade.ExtremePriceUSD
	switch trade.Side {
	case domain.SideLong:
		if price > extreme {
			extreme = price
		}
	case domain.SideShort:
		if price < extreme {
			extreme = price
		}
	}
	if extreme != trade.ExtremePriceUSD {
		if err := m.ledger.UpdateExtremePrice(ctx, trade.ID, extreme); err != nil {
			log.Warn("update extreme price failed", slog.String("error", err.Error()))
		}
	}

	tau := m.cfg.TrailingStopFraction
	var trigger float64
	var shouldClose bool
	switch trade.Side {
	case domain.SideLong:
		trigger = extreme * (1 - tau)
		shouldClose = price < trigger
	case domain.SideShort:
		trigger = extreme * (1 + tau)
		shouldClose = price > trigger
	}
	if !shouldClose {
		return
	}

	pnl := computePnL(trade, price)
	status := domain.StatusClosedProfit
	if pnl < 0 {
		status = domain.StatusClosedLoss
	}

	if !m.cfg.PaperMode {
		if err := m.routeClose(ctx, trade); err != nil {
			log.Error("close routing failed, leaving trade open", slog.String("error", err.Error()))
			return
		}
	}

	if err := m.ledger.Close(ctx, trade.ID, status, price, pnl); err != nil {
		log.Error("ledger close failed", slog.String("error", err.Error()))
		return
	}
	metrics.PositionsClosedTotal.WithLabelValues(string(status)).Inc()
	log.Info("position closed via trailing stop",
		slog.Float64("trigger", trigger), slog.Float64("close_price", price), slog.Float64("pnl_usd", pnl))

	m.publishUpdate(ctx, trade, status, price, pnl)
}

// publishUpdate broadcasts the closed position to dashboards over
// positionUpdatesTopic. Publish failures are logged, not propagated: the
// ledger write already committed and a dashboard miss is not fatal.
func (m *Manager) publishUpdate(ctx context.Context, trade domain.TradeRecord, status domain.TradeStatus, closePrice, pnl float64) {
	if m.broker == nil {
		return
	}
	payload, err := json.Marshal(PositionUpdate{
		TradeID:       trade.ID,
		StrategyID:    trade.StrategyID,
		TokenAddress:  trade.TokenAddress,
		Status:        status,
		ClosePriceUSD: closePrice,
		PnLUSD:        pnl,
		ClosedAt:      time.Now().UTC().Unix(),
	})
	if err != nil {
		m.logger.Warn("marshal position update failed", slog.String("error", err.Error()))
		return
	}
	if err := m.broker.Publish(ctx, positionUpdatesTopic, payload); err != nil {
		m.logger.Warn("publish position update failed", slog.String("error", err.Error()))
	}
}

// computePnL applies the side-dependent pnl formula from SPEC_FULL.md §4.5.
func computePnL(trade domain.TradeRecord, closePrice float64) float64 {
	if trade.EntryPriceUSD <= 0 {
		return 0
	}
	switch trade.Side {
	case domain.SideShort:
		return (trade.EntryPriceUSD - closePrice) * trade.AmountUSD / trade.EntryPriceUSD
	default:
		return (closePrice - trade.EntryPriceUSD) * trade.AmountUSD / trade.EntryPriceUSD
	}
}

// routeClose sends the closing order to the appropriate venue: a Long closes
// via swap -> signer -> bundle submit, a Short closes via the perps client.
func (m *Manager) routeClose(ctx context.Context, trade domain.TradeRecord) error {
	vctx, cancel := context.WithTimeout(ctx, m.cfg.VenueTimeout)
	defer cancel()

	if trade.Side == domain.SideShort {
		if m.perps == nil {
			return errNoVenue("perps")
		}
		_, err := m.perps.Close(vctx, trade.TokenAddress)
		return err
	}

	if m.spot == nil || m.signer == nil || m.bundle == nil {
		return errNoVenue("spot/signer/bundle")
	}
	unsignedTx, err := m.spot.Swap(vctx, trade.TokenAddress, -trade.AmountUSD)
	if err != nil {
		return err
	}
	signedTx, err := m.signer.Sign(vctx, unsignedTx)
	if err != nil {
		return err
	}
	tipped := m.bundle.AttachTip(signedTx, m.cfg.TipLamports)
	_, err = m.bundle.Submit(vctx, tipped)
	return err
}

type venueErr string

func (e venueErr) Error() string { return "position: no " + string(e) + " client configured" }

func errNoVenue(which string) error { return venueErr(which) }
