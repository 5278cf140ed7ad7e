// Package portfolio implements the Portfolio Monitor: a drawdown watchdog
// that compares realized pnl against its high-water mark and engages the
// global kill switch when losses exceed the configured stop-loss threshold.
// Grounded on original_source/executor/src/portfolio_monitor.rs (30s loop,
// highest_water_mark_pnl tracking, hysteresis resume at 80% of the
// threshold) and the teacher's periodic-loop idiom already used by
// internal/allocator and internal/position.
package portfolio

import (
	"context"
	"log/slog"
	"time"

	"github.com/riftline/tradecore/internal/domain"
	"github.com/riftline/tradecore/internal/metrics"
)

// killSwitchTopic is the pub/sub topic the Master Executor's kill-switch
// listener subscribes to (SPEC_FULL.md §4.3, §6). The Portfolio Monitor
// drives the shared pause flag indirectly through this channel rather than
// reaching into the executor directly, matching the original's
// conn.publish("kill_switch_channel", ...) and spec.md §5's "writer is
// kill-switch listener and portfolio monitor."
const killSwitchTopic = "kill_switch_channel"

// checkInterval is the Portfolio Monitor's sweep cadence.
const checkInterval = 30 * time.Second

// resumeHysteresis scales the stop-loss threshold down for the resume
// check, so a drawdown hovering right at the threshold doesn't flap the
// kill switch (original: "Resume if recovered significantly").
const resumeHysteresis = 0.8

// Config holds the Portfolio Monitor's tunables.
type Config struct {
	// StopLossPercent is the fractional drawdown from the high-water mark
	// (0-1) that triggers a pause, e.g. 0.15 for 15%.
	StopLossPercent float64
}

// Monitor is the Portfolio Monitor.
type Monitor struct {
	broker domain.Broker
	ledger domain.TradeLedger
	cfg    Config
	logger *slog.Logger

	highWaterMarkPnL float64
	paused           bool
}

// New constructs a Monitor.
func New(broker domain.Broker, ledger domain.TradeLedger, cfg Config, logger *slog.Logger) *Monitor {
	return &Monitor{
		broker: broker,
		ledger: ledger,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "portfolio_monitor")),
	}
}

// Run drives the drawdown watchdog every checkInterval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("portfolio monitor started")
	defer m.logger.Info("portfolio monitor stopped")

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check reads the total closed pnl, updates the high-water mark, and
// engages or releases the kill switch on a drawdown breach (SPEC_FULL.md's
// Portfolio Monitor component, grounded on portfolio_monitor.rs).
func (m *Monitor) check(ctx context.Context) {
	currentPnL, err := m.ledger.TotalPnLClosed(ctx)
	if err != nil {
		m.logger.Error("portfolio monitor: failed to read total pnl", slog.String("error", err.Error()))
		return
	}

	if currentPnL > m.highWaterMarkPnL {
		m.highWaterMarkPnL = currentPnL
	}

	var drawdownPercent float64
	if m.highWaterMarkPnL > 0 {
		drawdownPercent = (m.highWaterMarkPnL - currentPnL) / m.highWaterMarkPnL * 100
	}
	metrics.PortfolioDrawdownPercent.Set(drawdownPercent)

	thresholdPercent := m.cfg.StopLossPercent * 100
	m.logger.Info("portfolio pnl checked",
		slog.Float64("current_pnl_usd", currentPnL),
		slog.Float64("high_water_mark_usd", m.highWaterMarkPnL),
		slog.Float64("drawdown_percent", drawdownPercent))

	switch {
	case drawdownPercent > thresholdPercent && !m.paused:
		m.logger.Error("portfolio stop loss triggered, pausing trading",
			slog.Float64("drawdown_percent", drawdownPercent),
			slog.Float64("threshold_percent", thresholdPercent))
		if err := m.broker.Publish(ctx, killSwitchTopic, []byte("PAUSE_PORTFOLIO_DRAWDOWN")); err != nil {
			m.logger.Error("portfolio monitor: failed to publish PAUSE", slog.String("error", err.Error()))
			return
		}
		metrics.PortfolioStopLossTriggeredTotal.WithLabelValues("pause").Inc()
		m.paused = true
	case m.paused && drawdownPercent < thresholdPercent*resumeHysteresis:
		m.logger.Info("portfolio recovered, resuming trading",
			slog.Float64("drawdown_percent", drawdownPercent),
			slog.Float64("resume_threshold_percent", thresholdPercent*resumeHysteresis))
		if err := m.broker.Publish(ctx, killSwitchTopic, []byte("RESUME_PORTFOLIO_RECOVERED")); err != nil {
			m.logger.Error("portfolio monitor: failed to publish RESUME", slog.String("error", err.Error()))
			return
		}
		metrics.PortfolioStopLossTriggeredTotal.WithLabelValues("resume").Inc()
		m.paused = false
	}
}
