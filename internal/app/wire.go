package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riftline/tradecore/internal/allocator"
	"github.com/riftline/tradecore/internal/blob/s3"
	brokerredis "github.com/riftline/tradecore/internal/broker/redis"
	"github.com/riftline/tradecore/internal/config"
	"github.com/riftline/tradecore/internal/crypto"
	"github.com/riftline/tradecore/internal/executor"
	"github.com/riftline/tradecore/internal/ledger/postgres"
	"github.com/riftline/tradecore/internal/notify"
	"github.com/riftline/tradecore/internal/portfolio"
	"github.com/riftline/tradecore/internal/position"
	"github.com/riftline/tradecore/internal/server"
	"github.com/riftline/tradecore/internal/server/handler"
	"github.com/riftline/tradecore/internal/server/ws"
	"github.com/riftline/tradecore/internal/signerclient"
	"github.com/riftline/tradecore/internal/strategy"
	"github.com/riftline/tradecore/internal/venue"
)

// signerAdapter adapts the local encrypted-key fallback to the executor's
// and position manager's narrow Signer capability when no external signer
// oracle is configured. It is only ever constructed in paper mode.
type signerAdapter struct{ privateKeyHex string }

func (s signerAdapter) Sign(ctx context.Context, unsignedTxB64 string) (string, error) {
	return "", fmt.Errorf("signerclient: local key signing is not wired to a venue; configure venue.signer_url")
}

// Dependencies holds every constructed collaborator the application needs to
// run. Built once by wire and torn down in reverse order by closers.
type Dependencies struct {
	brokerClient *brokerredis.Client
	broker       *brokerredis.Broker
	kv           *brokerredis.KV
	perf         *brokerredis.PerfSource
	prices       *brokerredis.PriceCache

	ledgerClient *postgres.Client
	ledger       *postgres.Ledger

	s3Client  *s3.Client
	s3Writer  *s3.Writer
	archiver  *s3.Archiver

	spot   venue.SpotClient
	perps  venue.PerpsClient
	bundle venue.BundleSubmitter
	signer executor.Signer

	registry  *strategy.Registry
	executor  *executor.Executor
	allocator *allocator.Allocator
	position  *position.Manager
	portfolio *portfolio.Monitor

	notifier *notify.Notifier
	wsHub    *ws.Hub
	httpSrv  *server.Server

	closers []func() error
}

// wire constructs every dependency the application needs from cfg. On
// success the caller owns the returned Dependencies and must call Close when
// done; on error, wire has already torn down anything it partially built.
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	d := &Dependencies{}

	brokerClient, err := brokerredis.New(ctx, brokerredis.ClientConfig{
		URL:        cfg.Broker.URL,
		PoolSize:   cfg.Broker.PoolSize,
		MaxRetries: cfg.Broker.MaxRetries,
		TLSEnabled: cfg.Broker.TLSEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: broker client: %w", err)
	}
	d.brokerClient = brokerClient
	d.closers = append(d.closers, brokerClient.Close)

	d.broker = brokerredis.NewBroker(brokerClient)
	d.kv = brokerredis.NewKV(brokerClient)
	d.perf = brokerredis.NewPerfSource(brokerClient)
	d.prices = brokerredis.NewPriceCache(brokerClient)

	ledgerClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Ledger.DatabasePath,
		MaxConns: cfg.Ledger.PoolMaxConns,
		MinConns: cfg.Ledger.PoolMinConns,
	})
	if err != nil {
		teardown(d)
		return nil, fmt.Errorf("wire: ledger client: %w", err)
	}
	d.ledgerClient = ledgerClient
	d.closers = append(d.closers, ledgerClient.Close)

	if err := ledgerClient.RunMigrations(ctx); err != nil {
		teardown(d)
		return nil, fmt.Errorf("wire: run migrations: %w", err)
	}
	d.ledger = postgres.NewLedger(ledgerClient.Pool())

	s3Client, err := s3.New(ctx, s3.ClientConfig{
		Endpoint:       cfg.Ledger.S3.Endpoint,
		Region:         cfg.Ledger.S3.Region,
		Bucket:         cfg.Ledger.S3.Bucket,
		AccessKey:      cfg.Ledger.S3.AccessKey,
		SecretKey:      cfg.Ledger.S3.SecretKey,
		UseSSL:         cfg.Ledger.S3.UseSSL,
		ForcePathStyle: cfg.Ledger.S3.ForcePathStyle,
	})
	if err != nil {
		teardown(d)
		return nil, fmt.Errorf("wire: s3 client: %w", err)
	}
	d.s3Client = s3Client
	d.closers = append(d.closers, s3Client.Close)
	d.s3Writer = s3.NewWriter(s3Client)
	d.archiver = s3.NewArchiver(d.s3Writer, d.ledger)

	if cfg.Trading.PaperTradingMode {
		logger.Info("wire: paper trading mode, venue/signer clients are stubs")
	} else {
		d.spot = venue.NewJupiterSpotClient(cfg.Venue.JupiterAPIURL)
		d.perps = venue.NewHTTPPerpsClient(cfg.Venue.SolanaRPCURL)
		d.bundle = venue.NewJitoBundleClient(cfg.Venue.JitoRPCURL)
		d.signer = signerclient.New(cfg.Venue.SignerURL)
	}
	if d.signer == nil {
		// paper mode never dereferences the signer, but nil would panic the
		// interface call sites; resolve the configured local key (if any) so
		// the binary also works as a ready-to-flip live deployment.
		key, keyErr := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Signer.RawPrivateKey,
			EncryptedKeyPath: cfg.Signer.EncryptedKeyPath,
			KeyPassword:      cfg.Signer.KeyPassword,
		})
		if keyErr == nil {
			d.signer = signerAdapter{privateKeyHex: key}
		} else {
			d.signer = signerAdapter{}
		}
	}

	d.registry = strategy.NewDefaultRegistry()

	d.executor = executor.New(
		d.broker, d.ledger, d.prices, d.registry,
		d.spot, d.perps, d.bundle, d.signer,
		executor.Config{
			GlobalMaxPositionUSD: cfg.Trading.GlobalMaxPositionUSD,
			TipLamports:          cfg.Trading.TipLamports,
			VenueTimeout:         cfg.Trading.VenueTimeout.Duration,
		},
		logger,
	)

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	d.notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	d.allocator = allocator.New(d.broker, d.perf, d.kv, d.notifier, cfg.Trading.MinTradesForGraduation, logger)

	d.position = position.New(
		d.broker, d.ledger, d.prices,
		d.spot, d.perps, d.bundle, d.signer,
		position.Config{
			TrailingStopFraction: cfg.Trading.TrailingStopLossPercent,
			PaperMode:            cfg.Trading.PaperTradingMode,
			TipLamports:          cfg.Trading.TipLamports,
			VenueTimeout:         cfg.Trading.VenueTimeout.Duration,
		},
		logger,
	)

	d.portfolio = portfolio.New(d.broker, d.ledger,
		portfolio.Config{StopLossPercent: cfg.Trading.PortfolioStopLossPercent}, logger)

	d.wsHub = ws.NewHub(d.broker, logger)

	d.httpSrv = server.NewServer(
		server.Config{Port: cfg.Server.Port, CORSOrigins: cfg.Server.CORSOrigins},
		server.Handlers{
			Health: handler.NewHealthHandler(),
			State:  handler.NewStateHandler(d.executor),
		},
		d.wsHub,
		logger,
	)

	return d, nil
}

// Close tears down every constructed dependency in reverse build order.
func (d *Dependencies) Close() {
	teardown(d)
}

func teardown(d *Dependencies) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Default().Error("wire: teardown step failed", slog.String("error", err.Error()))
		}
	}
	d.closers = nil
}
