// Package app wires every collaborator the trading core needs and runs them
// under a single supervised lifecycle: no mode dispatch, one process runs the
// Master Executor, the Meta-Allocator, the Position Manager, the Portfolio
// Monitor, the dashboard HTTP/WebSocket server, and the archive sweep
// together (SPEC_FULL.md §1, §9.1). Grounded on the teacher's
// internal/app/{app,modes}.go for the errgroup-supervised goroutine set and
// reverse-order teardown shape.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riftline/tradecore/internal/config"
)

// archiveSweepInterval is the cadence at which the archive sweep runs. The
// corpus carries no cron-expression library (grep across _examples/*/go.mod
// found none), so ArchiveCron is accepted for operator-facing configuration
// compatibility but the sweep itself runs on a fixed daily ticker rather than
// parsing the cron string; see DESIGN.md.
const archiveSweepInterval = 24 * time.Hour

// App owns every wired dependency and the top-level supervised goroutine set.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   *Dependencies
}

// New constructs an App. Dependencies are wired lazily on Run so that
// construction errors surface through Run's error return rather than a
// separate two-phase API.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Close tears down any dependencies wire built. Safe to call even if Run was
// never called or failed during wiring.
func (a *App) Close() {
	if a.deps != nil {
		a.deps.Close()
	}
}

// Run wires every dependency and starts the Master Executor, Meta-Allocator,
// Position Manager, Portfolio Monitor, archive sweep loop, and HTTP/WebSocket
// server under a
// single errgroup. It blocks until ctx is cancelled or any component returns
// a non-nil, non-context error, at which point the remaining components are
// cancelled and Run returns the first such error.
func (a *App) Run(ctx context.Context) error {
	deps, err := wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.deps = deps

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return deps.executor.Run(gctx) })
	g.Go(func() error { return deps.allocator.Run(gctx, deps.executor.StrategyIDs) })
	g.Go(func() error { return deps.position.Run(gctx) })
	g.Go(func() error { return deps.portfolio.Run(gctx) })
	g.Go(func() error { return deps.wsHub.Run(gctx) })
	g.Go(func() error { return a.runArchiveSweep(gctx) })
	g.Go(func() error { return a.startHTTPServer(gctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runArchiveSweep periodically moves closed/canceled trades older than the
// configured retention window to S3 and deletes them from the ledger only
// after the upload succeeds (SPEC_FULL.md §9.1).
func (a *App) runArchiveSweep(ctx context.Context) error {
	ticker := time.NewTicker(archiveSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Ledger.ArchiveRetentionDays)
			n, err := a.deps.archiver.Sweep(ctx, cutoff)
			if err != nil {
				a.logger.Error("archive sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n == 0 {
				continue
			}
			if _, err := a.deps.ledger.DeleteBefore(ctx, cutoff); err != nil {
				a.logger.Error("archive sweep: delete archived rows failed", slog.String("error", err.Error()))
				continue
			}
			a.logger.Info("archive sweep complete", slog.Int64("trades_archived", n))
		}
	}
}

// startHTTPServer runs the HTTP/WebSocket server until ctx is cancelled,
// then shuts it down gracefully, mirroring the teacher's
// internal/app/modes.go startHTTPServer goroutine pairing.
func (a *App) startHTTPServer(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.deps.httpSrv.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.deps.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: http server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	}
}
