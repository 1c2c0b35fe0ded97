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
// built-in defaults, applies MARKETAGG_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETAGG_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setBool(&cfg.Polymarket.Enabled, "MARKETAGG_POLYMARKET_ENABLED")
	setStr(&cfg.Polymarket.BaseURL, "MARKETAGG_POLYMARKET_BASE_URL")
	setInt(&cfg.Polymarket.PageSize, "MARKETAGG_POLYMARKET_PAGE_SIZE")

	// ── Kalshi ──
	setBool(&cfg.Kalshi.Enabled, "MARKETAGG_KALSHI_ENABLED")
	setStr(&cfg.Kalshi.BaseURL, "MARKETAGG_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.ApiKey, "MARKETAGG_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "MARKETAGG_KALSHI_RSA_PRIVATE_KEY_PATH")

	// ── Limitless ──
	setBool(&cfg.Limitless.Enabled, "MARKETAGG_LIMITLESS_ENABLED")
	setStr(&cfg.Limitless.BaseURL, "MARKETAGG_LIMITLESS_BASE_URL")
	setInt(&cfg.Limitless.ChainID, "MARKETAGG_LIMITLESS_CHAIN_ID")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MARKETAGG_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MARKETAGG_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MARKETAGG_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARKETAGG_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARKETAGG_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARKETAGG_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARKETAGG_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARKETAGG_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARKETAGG_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARKETAGG_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MARKETAGG_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MARKETAGG_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETAGG_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETAGG_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETAGG_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETAGG_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETAGG_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETAGG_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.CacheTTL, "MARKETAGG_REDIS_CACHE_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MARKETAGG_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARKETAGG_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETAGG_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETAGG_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETAGG_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETAGG_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETAGG_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETAGG_S3_FORCE_PATH_STYLE")

	// ── Aggregator ──
	setDuration(&cfg.Aggregator.Interval, "MARKETAGG_AGGREGATOR_INTERVAL")
	setDuration(&cfg.Aggregator.FetchTimeout, "MARKETAGG_AGGREGATOR_FETCH_TIMEOUT")
	setInt(&cfg.Aggregator.LimitPerVenue, "MARKETAGG_AGGREGATOR_LIMIT_PER_VENUE")
	setInt(&cfg.Aggregator.HistoryCapacity, "MARKETAGG_AGGREGATOR_HISTORY_CAPACITY")

	// ── Matcher ──
	setInt(&cfg.Matcher.TitleScore, "MARKETAGG_MATCHER_TITLE_SCORE")
	setInt(&cfg.Matcher.TokenSortScore, "MARKETAGG_MATCHER_TOKEN_SORT_SCORE")
	setInt(&cfg.Matcher.PartialScore, "MARKETAGG_MATCHER_PARTIAL_SCORE")
	setInt(&cfg.Matcher.TeamScore, "MARKETAGG_MATCHER_TEAM_SCORE")
	setInt(&cfg.Matcher.MinTeamOverlap, "MARKETAGG_MATCHER_MIN_TEAM_OVERLAP")
	setDuration(&cfg.Matcher.TimeWindow, "MARKETAGG_MATCHER_TIME_WINDOW")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MARKETAGG_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MARKETAGG_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETAGG_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "MARKETAGG_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "MARKETAGG_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "MARKETAGG_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MARKETAGG_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETAGG_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETAGG_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETAGG_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETAGG_MODE")
	setStr(&cfg.LogLevel, "MARKETAGG_LOG_LEVEL")
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
