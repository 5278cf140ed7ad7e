package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADECORE_* environment variable overrides, then
// applies the bare environment variables SPEC_FULL.md §6 names as the final,
// highest-priority layer, and returns the result. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyPrefixedEnvOverrides(&cfg)
	applyBaseSpecEnvOverrides(&cfg)

	return &cfg, nil
}

// applyPrefixedEnvOverrides reads well-known TRADECORE_* environment
// variables for the config fields the base spec's env-var list (§6) doesn't
// name, letting operators inject secrets and deploy-time overrides without
// touching the TOML file.
func applyPrefixedEnvOverrides(cfg *Config) {
	setInt(&cfg.Broker.PoolSize, "TRADECORE_BROKER_POOL_SIZE")
	setInt(&cfg.Broker.MaxRetries, "TRADECORE_BROKER_MAX_RETRIES")
	setBool(&cfg.Broker.TLSEnabled, "TRADECORE_BROKER_TLS_ENABLED")

	setInt(&cfg.Ledger.PoolMaxConns, "TRADECORE_LEDGER_POOL_MAX_CONNS")
	setInt(&cfg.Ledger.PoolMinConns, "TRADECORE_LEDGER_POOL_MIN_CONNS")
	setInt(&cfg.Ledger.ArchiveRetentionDays, "TRADECORE_LEDGER_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Ledger.ArchiveCron, "TRADECORE_LEDGER_ARCHIVE_CRON")
	setStr(&cfg.Ledger.S3.Endpoint, "TRADECORE_S3_ENDPOINT")
	setStr(&cfg.Ledger.S3.Region, "TRADECORE_S3_REGION")
	setStr(&cfg.Ledger.S3.Bucket, "TRADECORE_S3_BUCKET")
	setStr(&cfg.Ledger.S3.AccessKey, "TRADECORE_S3_ACCESS_KEY")
	setStr(&cfg.Ledger.S3.SecretKey, "TRADECORE_S3_SECRET_KEY")
	setBool(&cfg.Ledger.S3.UseSSL, "TRADECORE_S3_USE_SSL")
	setBool(&cfg.Ledger.S3.ForcePathStyle, "TRADECORE_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Signer.RawPrivateKey, "TRADECORE_SIGNER_RAW_PRIVATE_KEY")
	setStr(&cfg.Signer.EncryptedKeyPath, "TRADECORE_SIGNER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Signer.KeyPassword, "TRADECORE_SIGNER_KEY_PASSWORD")

	setInt(&cfg.Server.Port, "TRADECORE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TRADECORE_SERVER_CORS_ORIGINS")

	setStr(&cfg.Notify.TelegramToken, "TRADECORE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRADECORE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRADECORE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRADECORE_NOTIFY_EVENTS")

	setStr(&cfg.LogLevel, "TRADECORE_LOG_LEVEL")
	setDuration(&cfg.Trading.VenueTimeout, "TRADECORE_TRADING_VENUE_TIMEOUT")
}

// applyBaseSpecEnvOverrides applies the bare environment variable names
// SPEC_FULL.md §6 lists as the core subset, as the final override layer.
func applyBaseSpecEnvOverrides(cfg *Config) {
	setBool(&cfg.Trading.PaperTradingMode, "PAPER_TRADING_MODE")
	setFloat64(&cfg.Trading.GlobalMaxPositionUSD, "GLOBAL_MAX_POSITION_USD")
	setFloat64(&cfg.Trading.PortfolioStopLossPercent, "PORTFOLIO_STOP_LOSS_PERCENT")
	setFloat64(&cfg.Trading.TrailingStopLossPercent, "TRAILING_STOP_LOSS_PERCENT")
	setInt(&cfg.Trading.SlippageBps, "SLIPPAGE_BPS")
	setInt(&cfg.Trading.MinTradesForGraduation, "MIN_TRADES_FOR_GRADUATION")

	setStr(&cfg.Broker.URL, "REDIS_URL")
	setStr(&cfg.Ledger.DatabasePath, "DATABASE_PATH")
	setStr(&cfg.Venue.SignerURL, "SIGNER_URL")
	setStr(&cfg.Venue.JupiterAPIURL, "JUPITER_API_URL")
	setStr(&cfg.Venue.SolanaRPCURL, "SOLANA_RPC_URL")
	setStr(&cfg.Venue.JitoRPCURL, "JITO_RPC_URL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
