package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/termfi/vaultd/internal/domain"
)

// PositionStore implements domain.PositionSnapshotStore using PostgreSQL.
// The per-collateral slices are stored as JSONB; snapshots are always
// replaced wholesale, never patched.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection
// pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Upsert writes the snapshot for one account/series pair, replacing any
// previous one.
func (s *PositionStore) Upsert(ctx context.Context, pos domain.Position) error {
	collateral, err := json.Marshal(pos.Collateral)
	if err != nil {
		return fmt.Errorf("postgres: marshal position %s/%s: %w", pos.Account, pos.SeriesID, err)
	}

	const query = `
		INSERT INTO position_snapshots (account, series_id, collateral, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account, series_id) DO UPDATE SET
			collateral = EXCLUDED.collateral,
			fetched_at = EXCLUDED.fetched_at`

	_, err = s.pool.Exec(ctx, query, pos.Account, pos.SeriesID, collateral, pos.FetchedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s/%s: %w", pos.Account, pos.SeriesID, err)
	}
	return nil
}

// Get returns the snapshot for one account/series pair, or
// domain.ErrNotFound.
func (s *PositionStore) Get(ctx context.Context, account, seriesID string) (domain.Position, error) {
	const query = `
		SELECT account, series_id, collateral, fetched_at
		FROM position_snapshots WHERE account = $1 AND series_id = $2`

	pos, err := scanPositionRow(s.pool.QueryRow(ctx, query, account, seriesID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s/%s: %w", account, seriesID, err)
	}
	return pos, nil
}

// ListByAccount returns every snapshot recorded for the account.
func (s *PositionStore) ListByAccount(ctx context.Context, account string) ([]domain.Position, error) {
	const query = `
		SELECT account, series_id, collateral, fetched_at
		FROM position_snapshots WHERE account = $1 ORDER BY series_id`

	rows, err := s.pool.Query(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions %s: %w", account, err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		pos, err := scanPositionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", err)
	}
	return out, nil
}

func scanPositionRow(row pgx.Row) (domain.Position, error) {
	var pos domain.Position
	var collateral []byte
	if err := row.Scan(&pos.Account, &pos.SeriesID, &collateral, &pos.FetchedAt); err != nil {
		return domain.Position{}, err
	}
	if err := json.Unmarshal(collateral, &pos.Collateral); err != nil {
		return domain.Position{}, err
	}
	return pos, nil
}

// Compile-time interface check.
var _ domain.PositionSnapshotStore = (*PositionStore)(nil)
