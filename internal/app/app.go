// Package app provides the top-level application lifecycle for the vault
// daemon. It wires together all dependencies (chain protocol, caches,
// stores, blob storage, tracker, vault service, and notifications) and
// runs the serving goroutines until shutdown.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/termfi/vaultd/internal/config"
	"github.com/termfi/vaultd/internal/domain"
	"github.com/termfi/vaultd/internal/notify"
	"github.com/termfi/vaultd/internal/server"
	"github.com/termfi/vaultd/internal/server/handler"
	"github.com/termfi/vaultd/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// serving goroutines, and blocks until the context is cancelled or a
// goroutine fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting daemon",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int64("chain_id", a.cfg.Chain.ChainID),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	account := deps.Protocol.Account()
	a.logger.Info("wallet connected", slog.String("account", account))

	// Initial wholesale load. A failure here is logged, not fatal; the
	// scheduled refresher retries on its next tick.
	if err := deps.Refresher.RefreshAccount(ctx, account); err != nil {
		a.logger.Warn("initial state load failed", slog.String("error", err.Error()))
	}

	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub fans signal bus messages out to browser clients.
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Account:   account,
		ChainID:   a.cfg.Chain.ChainID,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error { return hub.Run(ctx) })

	// Bridge tracker snapshots onto the signal bus so the hub (and any
	// other subscriber) sees every banner and pending-set change.
	g.Go(func() error { return a.publishTrackerUpdates(ctx, deps) })

	// Background state refresh.
	g.Go(func() error { return deps.Refresher.Run(ctx) })

	// Forward completed transaction outcomes to notification channels.
	relay := notify.NewOutcomeRelay(deps.Tracker, deps.Notifier, a.logger)
	g.Go(func() error { return relay.Run(ctx) })

	// Periodic history archiving to object storage.
	if deps.Archiver != nil {
		g.Go(func() error { return a.runArchiver(ctx, deps.Archiver) })
	}

	// HTTP + WebSocket server.
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health: handler.NewHealthHandler(account, a.cfg.Chain.ChainID, a.logger),
		Series: handler.NewSeriesHandler(&cachedSeriesSource{
			cache:  deps.SeriesCache,
			loader: deps.Protocol,
		}, a.logger),
		Positions:     handler.NewPositionHandler(deps.PositionCache, account, a.logger),
		Transactions:  handler.NewTransactionHandler(deps.TxHistory, account, a.logger),
		Notifications: handler.NewNotificationHandler(deps.Tracker, a.logger),
		Actions:       handler.NewActionHandler(deps.Vault, a.logger),
		Risk:          handler.NewRiskHandler(a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down daemon")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// publishTrackerUpdates subscribes to the in-process tracker and republishes
// every snapshot on the signal bus as JSON.
func (a *App) publishTrackerUpdates(ctx context.Context, deps *Dependencies) error {
	snaps, cancel := deps.Tracker.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				a.logger.Warn("tracker snapshot marshal failed", slog.String("error", err.Error()))
				continue
			}
			if err := deps.SignalBus.Publish(ctx, ws.ChannelTracker, payload); err != nil {
				a.logger.Warn("tracker snapshot publish failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runArchiver periodically exports aged transaction history to blob storage
// and prunes the exported rows from the database.
func (a *App) runArchiver(ctx context.Context, archiver domain.Archiver) error {
	interval := a.cfg.S3.ArchiveInterval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.S3.RetentionDays)
			if err := archiver.Archive(ctx, cutoff); err != nil {
				a.logger.Warn("history archive failed", slog.String("error", err.Error()))
			}
		}
	}
}
