// Package config defines the top-level configuration for the market
// aggregation service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETAGG_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Limitless  LimitlessConfig  `toml:"limitless"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Matcher    MatcherConfig    `toml:"matcher"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the Gamma API endpoint.
type PolymarketConfig struct {
	Enabled  bool   `toml:"enabled"`
	BaseURL  string `toml:"base_url"`
	PageSize int    `toml:"page_size"`
}

// KalshiConfig holds the Kalshi exchange endpoint and optional API
// credentials. The public market endpoints work without credentials;
// authenticated requests get higher rate limits.
type KalshiConfig struct {
	Enabled           bool   `toml:"enabled"`
	BaseURL           string `toml:"base_url"`
	ApiKey            string `toml:"api_key"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
}

// LimitlessConfig holds the Limitless exchange endpoint and chain selection.
type LimitlessConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	ChainID int    `toml:"chain_id"`
}

// PostgresConfig holds PostgreSQL connection parameters. Persistence is
// optional; with an empty DSN and empty host the service runs in-memory only.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	CacheTTL   duration `toml:"cache_ttl"`
}

// S3Config holds S3-compatible object storage parameters for snapshot export.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// AggregatorConfig holds the aggregation loop parameters.
type AggregatorConfig struct {
	Interval        duration `toml:"interval"`
	FetchTimeout    duration `toml:"fetch_timeout"`
	LimitPerVenue   int      `toml:"limit_per_venue"`
	HistoryCapacity int      `toml:"history_capacity"`
}

// MatcherConfig holds the cross-platform matching thresholds.
type MatcherConfig struct {
	TitleScore     int      `toml:"title_score"`
	TokenSortScore int      `toml:"token_sort_score"`
	PartialScore   int      `toml:"partial_score"`
	TeamScore      int      `toml:"team_score"`
	MinTeamOverlap int      `toml:"min_team_overlap"`
	TimeWindow     duration `toml:"time_window"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters. An empty ApiKey disables
// authentication; a zero RateLimit disables rate limiting.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	ApiKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			Enabled:  true,
			BaseURL:  "https://gamma-api.polymarket.com",
			PageSize: 100,
		},
		Kalshi: KalshiConfig{
			Enabled: true,
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Limitless: LimitlessConfig{
			Enabled: true,
			BaseURL: "https://api.limitless.exchange",
			ChainID: 8453,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "marketagg",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			CacheTTL:   duration{60 * time.Second},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketagg-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Aggregator: AggregatorConfig{
			Interval:        duration{5 * time.Second},
			FetchTimeout:    duration{15 * time.Second},
			LimitPerVenue:   100,
			HistoryCapacity: 1000,
		},
		Matcher: MatcherConfig{
			TitleScore:     80,
			TokenSortScore: 85,
			PartialScore:   90,
			TeamScore:      85,
			MinTeamOverlap: 2,
			TimeWindow:     duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       0,
			RateLimitWindow: duration{time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"arbitrage", "significant_move", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"aggregate": true,
	"serve":     true,
	"once":      true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: aggregate, serve, once, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// At least one platform must be enabled, otherwise every cycle is empty.
	if !c.Polymarket.Enabled && !c.Kalshi.Enabled && !c.Limitless.Enabled {
		errs = append(errs, "platforms: at least one of polymarket, kalshi, limitless must be enabled")
	}

	if c.Polymarket.Enabled && c.Polymarket.BaseURL == "" {
		errs = append(errs, "polymarket: base_url must not be empty")
	}
	if c.Kalshi.Enabled && c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Kalshi.ApiKey != "" && c.Kalshi.RsaPrivateKeyPath == "" {
		errs = append(errs, "kalshi: rsa_private_key_path is required when api_key is set")
	}
	if c.Limitless.Enabled {
		if c.Limitless.BaseURL == "" {
			errs = append(errs, "limitless: base_url must not be empty")
		}
		if c.Limitless.ChainID <= 0 {
			errs = append(errs, fmt.Sprintf("limitless: chain_id must be positive, got %d", c.Limitless.ChainID))
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Aggregator
	if c.Aggregator.Interval.Duration < time.Second {
		errs = append(errs, "aggregator: interval must be >= 1s")
	}
	if c.Aggregator.FetchTimeout.Duration <= 0 {
		errs = append(errs, "aggregator: fetch_timeout must be > 0")
	}
	if c.Aggregator.LimitPerVenue < 1 {
		errs = append(errs, "aggregator: limit_per_venue must be >= 1")
	}
	if c.Aggregator.HistoryCapacity < 1 {
		errs = append(errs, "aggregator: history_capacity must be >= 1")
	}

	// Matcher
	if c.Matcher.TitleScore < 0 || c.Matcher.TitleScore > 100 {
		errs = append(errs, fmt.Sprintf("matcher: title_score must be 0-100, got %d", c.Matcher.TitleScore))
	}
	if c.Matcher.TokenSortScore < 0 || c.Matcher.TokenSortScore > 100 {
		errs = append(errs, fmt.Sprintf("matcher: token_sort_score must be 0-100, got %d", c.Matcher.TokenSortScore))
	}
	if c.Matcher.PartialScore < 0 || c.Matcher.PartialScore > 100 {
		errs = append(errs, fmt.Sprintf("matcher: partial_score must be 0-100, got %d", c.Matcher.PartialScore))
	}
	if c.Matcher.TeamScore < 0 || c.Matcher.TeamScore > 100 {
		errs = append(errs, fmt.Sprintf("matcher: team_score must be 0-100, got %d", c.Matcher.TeamScore))
	}
	if c.Matcher.MinTeamOverlap < 1 {
		errs = append(errs, "matcher: min_team_overlap must be >= 1")
	}
	if c.Matcher.TimeWindow.Duration <= 0 {
		errs = append(errs, "matcher: time_window must be > 0")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateLimitWindow.Duration <= 0 {
			errs = append(errs, "server: rate_limit_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
