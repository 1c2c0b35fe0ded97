package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alanyoungcy/marketagg/internal/aggregator"
	s3blob "github.com/alanyoungcy/marketagg/internal/blob/s3"
	"github.com/alanyoungcy/marketagg/internal/cache/redis"
	"github.com/alanyoungcy/marketagg/internal/config"
	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/alanyoungcy/marketagg/internal/export"
	"github.com/alanyoungcy/marketagg/internal/notify"
	"github.com/alanyoungcy/marketagg/internal/platform/kalshi"
	"github.com/alanyoungcy/marketagg/internal/platform/limitless"
	"github.com/alanyoungcy/marketagg/internal/platform/polymarket"
	"github.com/alanyoungcy/marketagg/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function. All fields except Fetchers and Notifier are
// optional and stay nil when the backing system is disabled.
type Dependencies struct {
	// Platform clients
	Fetchers []aggregator.Fetcher

	// Stores
	Mappings  domain.MappingStore
	Snapshots domain.SnapshotStore
	History   *postgres.HistoryStore

	// Caches and coordination
	MarketCache     domain.MarketCache
	ComparisonCache domain.ComparisonCache
	RateLimiter     domain.RateLimiter
	LockManager     domain.LockManager
	SignalBus       domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver
	Exporter   *export.Exporter

	// Notifications
	Notifier *notify.Notifier
}

// historyArchive returns the history archive as an interface, avoiding the
// non-nil interface wrapping a nil pointer when Postgres is disabled.
func (d *Dependencies) historyArchive() domain.HistoryArchive {
	if d.History == nil {
		return nil
	}
	return d.History
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Platform clients ---
	timeout := cfg.Aggregator.FetchTimeout.Duration
	if cfg.Polymarket.Enabled {
		deps.Fetchers = append(deps.Fetchers,
			polymarket.NewClient(cfg.Polymarket.BaseURL, cfg.Polymarket.PageSize, timeout))
	}
	if cfg.Kalshi.Enabled {
		kc := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey, timeout)
		if cfg.Kalshi.ApiKey != "" && cfg.Kalshi.RsaPrivateKeyPath != "" {
			keyBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: read kalshi rsa key: %w", err)
			}
			if err := kc.SetRSAPrivateKey(keyBytes); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: parse kalshi rsa key: %w", err)
			}
		}
		deps.Fetchers = append(deps.Fetchers, kc)
	}
	if cfg.Limitless.Enabled {
		deps.Fetchers = append(deps.Fetchers,
			limitless.NewClient(cfg.Limitless.BaseURL, cfg.Limitless.ChainID, timeout))
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Mappings = postgres.NewMappingStore(pool)
		deps.Snapshots = postgres.NewSnapshotStore(pool)
		deps.History = postgres.NewHistoryStore(pool)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		ttl := cfg.Redis.CacheTTL.Duration
		deps.MarketCache = redis.NewMarketCache(redisClient, ttl)
		deps.ComparisonCache = redis.NewComparisonCache(redisClient, ttl)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Exporter = export.New(deps.BlobWriter, logger)

		// Archiving needs both object storage and the history table.
		if deps.History != nil {
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.History)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
