// Package config defines the top-level configuration for the trading core
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file, then overridden by TRADECORE_* environment variables, then by
// the bare environment variables SPEC_FULL.md §6 names as the final,
// highest-priority layer.
type Config struct {
	Trading  TradingConfig  `toml:"trading"`
	Broker   BrokerConfig   `toml:"broker"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Venue    VenueConfig    `toml:"venue"`
	Signer   SignerConfig   `toml:"signer"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// TradingConfig holds the risk and execution tunables named directly in
// SPEC_FULL.md §6.
type TradingConfig struct {
	PaperTradingMode         bool     `toml:"paper_trading_mode"`
	GlobalMaxPositionUSD     float64  `toml:"global_max_position_usd"`
	PortfolioStopLossPercent float64  `toml:"portfolio_stop_loss_percent"`
	TrailingStopLossPercent  float64  `toml:"trailing_stop_loss_percent"`
	SlippageBps              int      `toml:"slippage_bps"`
	MinTradesForGraduation   int      `toml:"min_trades_for_graduation"`
	TipLamports              uint64   `toml:"tip_lamports"`
	VenueTimeout             duration `toml:"venue_timeout"`
}

// BrokerConfig holds the Redis connection parameters backing the broker
// adapter.
type BrokerConfig struct {
	URL        string `toml:"url"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// LedgerConfig holds the PostgreSQL connection parameters and archival
// settings for the trade ledger.
type LedgerConfig struct {
	// DatabasePath is the Postgres DSN. Named to match SPEC_FULL.md §6's
	// literal DATABASE_PATH environment variable, inherited from the
	// original's sqlite-flavored naming even though this deployment targets
	// Postgres via pgx.
	DatabasePath         string   `toml:"database_path"`
	PoolMaxConns         int      `toml:"pool_max_conns"`
	PoolMinConns         int      `toml:"pool_min_conns"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	ArchiveCron          string   `toml:"archive_cron"`
	S3                   S3Config `toml:"s3"`
}

// S3Config holds S3-compatible object storage parameters for the trade
// ledger archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// VenueConfig holds the base URLs for the out-of-scope venue collaborators
// this repository ships thin clients for (SPEC_FULL.md §4.7).
type VenueConfig struct {
	SignerURL     string `toml:"signer_url"`
	JupiterAPIURL string `toml:"jupiter_api_url"`
	SolanaRPCURL  string `toml:"solana_rpc_url"`
	JitoRPCURL    string `toml:"jito_rpc_url"`
}

// SignerConfig holds the operator-side local encrypted key fallback used
// ahead of the external signer oracle (golang.org/x/crypto/pbkdf2, kept
// ambient per SPEC_FULL.md §2.1).
type SignerConfig struct {
	RawPrivateKey    string `toml:"raw_private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "15s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "15s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters for the health/metrics/state
// endpoints.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials for the alert relay
// client (SPEC_FULL.md §4.7's notify.Notifier).
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			PaperTradingMode:         true,
			GlobalMaxPositionUSD:     500.0,
			PortfolioStopLossPercent: 0.15,
			TrailingStopLossPercent:  0.10,
			SlippageBps:              50,
			MinTradesForGraduation:   100,
			TipLamports:              10_000,
			VenueTimeout:             duration{15 * time.Second},
		},
		Broker: BrokerConfig{
			URL:        "redis://localhost:6379/0",
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Ledger: LedgerConfig{
			DatabasePath:         "postgres://postgres@localhost:5432/tradecore?sslmode=disable",
			PoolMaxConns:         10,
			PoolMinConns:         2,
			ArchiveRetentionDays: 90,
			ArchiveCron:          "0 3 1 * *",
			S3: S3Config{
				Endpoint:       "http://localhost:9000",
				Region:         "us-east-1",
				Bucket:         "tradecore-archive",
				UseSSL:         false,
				ForcePathStyle: true,
			},
		},
		Venue: VenueConfig{
			SignerURL:     "http://localhost:9100",
			JupiterAPIURL: "https://lite-api.jup.ag",
			SolanaRPCURL:  "https://api.mainnet-beta.solana.com",
			JitoRPCURL:    "https://mainnet.block-engine.jito.wtf/api/v1/bundles",
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"graduation", "kill_switch", "position_closed", "error"},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Trading.GlobalMaxPositionUSD <= 0 {
		errs = append(errs, "trading: global_max_position_usd must be > 0")
	}
	if c.Trading.PortfolioStopLossPercent <= 0 || c.Trading.PortfolioStopLossPercent >= 1 {
		errs = append(errs, "trading: portfolio_stop_loss_percent must be in (0,1)")
	}
	if c.Trading.TrailingStopLossPercent <= 0 || c.Trading.TrailingStopLossPercent >= 1 {
		errs = append(errs, "trading: trailing_stop_loss_percent must be in (0,1)")
	}
	if c.Trading.SlippageBps < 0 {
		errs = append(errs, "trading: slippage_bps must be >= 0")
	}
	if c.Trading.MinTradesForGraduation < 1 {
		errs = append(errs, "trading: min_trades_for_graduation must be >= 1")
	}
	if c.Trading.VenueTimeout.Duration <= 0 {
		errs = append(errs, "trading: venue_timeout must be > 0")
	}

	if c.Broker.URL == "" {
		errs = append(errs, "broker: url must not be empty")
	}
	if c.Broker.PoolSize < 1 {
		errs = append(errs, "broker: pool_size must be >= 1")
	}

	if c.Ledger.DatabasePath == "" {
		errs = append(errs, "ledger: database_path must not be empty")
	}
	if c.Ledger.PoolMaxConns < 1 {
		errs = append(errs, "ledger: pool_max_conns must be >= 1")
	}
	if c.Ledger.PoolMinConns < 0 {
		errs = append(errs, "ledger: pool_min_conns must be >= 0")
	}
	if c.Ledger.PoolMinConns > c.Ledger.PoolMaxConns {
		errs = append(errs, "ledger: pool_min_conns must not exceed pool_max_conns")
	}

	if !c.Trading.PaperTradingMode {
		if c.Venue.SignerURL == "" {
			errs = append(errs, "venue: signer_url is required when paper_trading_mode is false")
		}
		if c.Venue.JupiterAPIURL == "" {
			errs = append(errs, "venue: jupiter_api_url is required when paper_trading_mode is false")
		}
		if c.Venue.SolanaRPCURL == "" {
			errs = append(errs, "venue: solana_rpc_url is required when paper_trading_mode is false")
		}
		if c.Venue.JitoRPCURL == "" {
			errs = append(errs, "venue: jito_rpc_url is required when paper_trading_mode is false")
		}
		if c.Signer.EncryptedKeyPath != "" && c.Signer.KeyPassword == "" {
			errs = append(errs, "signer: key_password is required when encrypted_key_path is set")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
