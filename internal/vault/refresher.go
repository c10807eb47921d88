package vault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/termfi/vaultd/internal/domain"
)

// RefreshSource is the read side of the protocol used for wholesale
// re-fetching. Implemented by chain.Protocol.
type RefreshSource interface {
	Account() string
	LoadSeries(ctx context.Context) ([]domain.Series, error)
	LoadPosition(ctx context.Context, account, seriesID string) (domain.Position, error)
}

// StateRefresher re-fetches the series set and the account's positions
// wholesale and replaces the cached copies. Position snapshots are also
// persisted when a snapshot store is configured.
type StateRefresher struct {
	source    RefreshSource
	series    domain.SeriesCache
	positions domain.PositionCache
	snapshots domain.PositionSnapshotStore // optional
	interval  time.Duration
	logger    *slog.Logger
}

// NewStateRefresher creates a StateRefresher that, when Run, also polls on
// the given interval. snapshots may be nil.
func NewStateRefresher(
	source RefreshSource,
	series domain.SeriesCache,
	positions domain.PositionCache,
	snapshots domain.PositionSnapshotStore,
	interval time.Duration,
	logger *slog.Logger,
) *StateRefresher {
	return &StateRefresher{
		source:    source,
		series:    series,
		positions: positions,
		snapshots: snapshots,
		interval:  interval,
		logger:    logger.With(slog.String("component", "refresher")),
	}
}

// RefreshAccount reloads the series set and every per-series position for
// the account, replacing cached state. Snapshots are recomputed from
// scratch, never patched.
func (r *StateRefresher) RefreshAccount(ctx context.Context, account string) error {
	series, err := r.source.LoadSeries(ctx)
	if err != nil {
		return fmt.Errorf("vault: load series: %w", err)
	}
	if err := r.series.PutAll(ctx, series); err != nil {
		return fmt.Errorf("vault: cache series: %w", err)
	}

	if err := r.positions.InvalidateAccount(ctx, account); err != nil {
		r.logger.Warn("position cache invalidation failed",
			slog.String("account", account),
			slog.String("error", err.Error()),
		)
	}

	for _, s := range series {
		pos, err := r.source.LoadPosition(ctx, account, s.ID)
		if err != nil {
			return fmt.Errorf("vault: load position %s/%s: %w", account, s.ID, err)
		}
		if err := r.positions.Put(ctx, pos); err != nil {
			return fmt.Errorf("vault: cache position %s/%s: %w", account, s.ID, err)
		}
		if r.snapshots != nil {
			if err := r.snapshots.Upsert(ctx, pos); err != nil {
				r.logger.Warn("snapshot persist failed",
					slog.String("series", s.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	r.logger.Debug("account refreshed",
		slog.String("account", account),
		slog.Int("series", len(series)),
	)
	return nil
}

// Run polls RefreshAccount for the connected account until the context is
// cancelled. An individual refresh failure is logged and retried on the
// next tick.
func (r *StateRefresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	account := r.source.Account()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RefreshAccount(ctx, account); err != nil {
				r.logger.Warn("scheduled refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
