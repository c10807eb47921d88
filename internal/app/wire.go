package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/termfi/vaultd/internal/blob/s3"
	"github.com/termfi/vaultd/internal/cache/redis"
	"github.com/termfi/vaultd/internal/chain"
	"github.com/termfi/vaultd/internal/config"
	"github.com/termfi/vaultd/internal/crypto"
	"github.com/termfi/vaultd/internal/domain"
	"github.com/termfi/vaultd/internal/notify"
	"github.com/termfi/vaultd/internal/store/postgres"
	"github.com/termfi/vaultd/internal/tracker"
	"github.com/termfi/vaultd/internal/vault"
)

// Dependencies bundles every concrete dependency the daemon needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Protocol  *chain.Protocol
	Tracker   *tracker.Store
	Vault     *vault.Service
	Refresher *vault.StateRefresher

	// Caches
	SeriesCache   domain.SeriesCache
	PositionCache domain.PositionCache
	SignalBus     domain.SignalBus

	// Stores (nil when Postgres is disabled)
	TxHistory domain.TxHistoryStore
	Snapshots domain.PositionSnapshotStore
	Audit     domain.AuditStore

	// Blob storage (nil when S3 is disabled)
	Archiver domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Wallet + chain connection ---
	key, err := crypto.LoadPrivateKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
	}

	conn, err := chain.Dial(ctx, cfg.Chain.RPCURL, key, cfg.Chain.ChainID)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, conn.Close)

	registry, err := chain.NewRegistry(map[string]string{
		chain.ContractController:      cfg.Contracts.Controller,
		chain.ContractSeriesDirectory: cfg.Contracts.SeriesDirectory,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: contracts: %w", err)
	}

	collaterals := make([]domain.CollateralType, 0, len(cfg.Vault.Collaterals))
	for _, c := range cfg.Vault.Collaterals {
		collaterals = append(collaterals, domain.CollateralType(c))
	}
	deps.Protocol, err = chain.NewProtocol(conn, registry, collaterals, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: protocol: %w", err)
	}

	// --- Redis ---
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

	deps.SeriesCache = redis.NewSeriesCache(redisClient)
	deps.PositionCache = redis.NewPositionCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- PostgreSQL (optional persistence) ---
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
		deps.TxHistory = postgres.NewTxStore(pool)
		deps.Snapshots = postgres.NewPositionStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
	}

	// --- S3 blob storage (optional archiving) ---
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

		// Validate guarantees Postgres is enabled alongside S3, so the
		// history store is present here.
		deps.Archiver = s3blob.NewHistoryArchiver(
			s3blob.NewWriter(s3Client),
			deps.TxHistory,
			deps.Audit,
			logger,
		)
	}

	// --- Tracker, refresher, vault service ---
	deps.Tracker = tracker.New(logger)
	deps.Refresher = vault.NewStateRefresher(
		deps.Protocol,
		deps.SeriesCache,
		deps.PositionCache,
		deps.Snapshots,
		cfg.Vault.RefreshInterval.Duration,
		logger,
	)
	deps.Vault = vault.NewService(
		deps.Protocol,
		deps.Tracker,
		deps.Refresher,
		deps.TxHistory,
		deps.Audit,
		cfg.Vault.ConfirmTimeout.Duration,
		logger,
	)

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
