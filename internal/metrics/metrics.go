// Package metrics declares the Prometheus collectors exposed on the core
// binary's /metrics endpoint (SPEC_FULL.md §6.1). The client_golang
// dependency is carried over from benedict-anokye-davies-atlas-ai's go.mod,
// the only example repo in the pack that imports it; this package gives it a
// concrete home wired into every counting surface named by the spec.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StaleEventsTotal counts events dropped for exceeding the staleness bound, by event type.
	StaleEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_stale_events_total",
		Help: "Market events dropped for exceeding the 30s staleness bound, by event type.",
	}, []string{"event_type"})

	// MailboxDroppedTotal counts events dropped because a strategy's mailbox was full.
	MailboxDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_mailbox_dropped_total",
		Help: "Events dropped due to a full per-strategy mailbox.",
	}, []string{"strategy_id"})

	// SkippedSignalsTotal counts signals dropped because the pause flag was set.
	SkippedSignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_signals_skipped_total",
		Help: "Strategy Execute signals dropped because the portfolio was paused.",
	}, []string{"strategy_id"})

	// SignalErrorsTotal counts failed signal executions, by stage.
	SignalErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_signal_errors_total",
		Help: "Signal pipeline failures, by stage (quote, ledger, venue).",
	}, []string{"strategy_id", "stage"})

	// TradesTotal counts trades executed, by strategy and mode.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_trades_total",
		Help: "Trades opened, by strategy id and mode.",
	}, []string{"strategy_id", "mode"})

	// SignalLatencySeconds observes signal-to-ledger-open latency.
	SignalLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "executor_signal_latency_seconds",
		Help:    "Latency from strategy Execute decision to ledger Open.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy_id", "mode"})

	// ActiveStrategies reports the current size of the active strategy set.
	ActiveStrategies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "executor_active_strategies",
		Help: "Number of strategies currently reconciled into the active set.",
	})

	// PortfolioPaused reports the pause flag as a 0/1 gauge.
	PortfolioPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "executor_portfolio_paused",
		Help: "1 when the kill-switch pause flag is set, 0 otherwise.",
	})

	// SolUSDPrice reports the last-observed SOL/USD price.
	SolUSDPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "executor_sol_usd_price",
		Help: "Last-observed SOL/USD price used for order sizing.",
	})

	// PositionsClosedTotal counts Position Manager TSL closes, by outcome.
	PositionsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "position_manager_closes_total",
		Help: "Trades closed by the trailing-stop control loop, by status.",
	}, []string{"status"})

	// OpenPositions reports the number of open trades the control loop is
	// currently monitoring.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "position_manager_open_positions",
		Help: "Number of open trades currently monitored by the trailing-stop control loop.",
	})

	// AllocatorSharpe reports the most recent Sharpe-like score, by strategy.
	AllocatorSharpe = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "allocator_sharpe_ratio",
		Help: "Most recently computed Sharpe-like ratio, by strategy id.",
	}, []string{"strategy_id"})

	// AllocatorWeight reports the most recent capital weight, by strategy.
	AllocatorWeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "allocator_weight",
		Help: "Most recently computed capital weight, by strategy id.",
	}, []string{"strategy_id"})

	// GraduationsTotal counts paper-to-live promotions.
	GraduationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allocator_graduations_total",
		Help: "Strategy Paper-to-Live graduation events, by strategy id.",
	}, []string{"strategy_id"})

	// PortfolioDrawdownPercent reports the most recent drawdown from the
	// all-time-high closed pnl, as a percentage.
	PortfolioDrawdownPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_monitor_drawdown_percent",
		Help: "Most recently observed drawdown from the portfolio's high-water-mark closed pnl, as a percentage.",
	})

	// PortfolioStopLossTriggeredTotal counts portfolio-level stop-loss
	// pause/resume transitions, by action.
	PortfolioStopLossTriggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_monitor_stop_loss_triggered_total",
		Help: "Portfolio stop-loss PAUSE/RESUME transitions published to the kill switch, by action.",
	}, []string{"action"})
)
