package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/termfi/vaultd/internal/domain"
)

const positionTTL = 2 * time.Minute

// PositionCache implements domain.PositionCache using per-position JSON
// values plus a per-account set that indexes them for bulk listing and
// invalidation.
//
// Key schema:
//
//	position:{account}:{seriesID} - JSON of one position
//	position:index:{account}      - set of series IDs cached for the account
type PositionCache struct {
	rdb *redis.Client
}

// NewPositionCache creates a PositionCache backed by the given Client.
func NewPositionCache(c *Client) *PositionCache {
	return &PositionCache{rdb: c.Underlying()}
}

func positionKey(account, seriesID string) string { return "position:" + account + ":" + seriesID }
func positionIndexKey(account string) string      { return "position:index:" + account }

// Put stores one position and records it in the account index.
func (pc *PositionCache) Put(ctx context.Context, pos domain.Position) error {
	blob, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("redis: marshal position %s/%s: %w", pos.Account, pos.SeriesID, err)
	}

	idx := positionIndexKey(pos.Account)
	pipe := pc.rdb.TxPipeline()
	pipe.Set(ctx, positionKey(pos.Account, pos.SeriesID), blob, positionTTL)
	pipe.SAdd(ctx, idx, pos.SeriesID)
	pipe.Expire(ctx, idx, positionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put position %s/%s: %w", pos.Account, pos.SeriesID, err)
	}
	return nil
}

// Get returns one cached position, or domain.ErrNotFound.
func (pc *PositionCache) Get(ctx context.Context, account, seriesID string) (domain.Position, error) {
	blob, err := pc.rdb.Get(ctx, positionKey(account, seriesID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("redis: get position %s/%s: %w", account, seriesID, err)
	}

	var pos domain.Position
	if err := json.Unmarshal(blob, &pos); err != nil {
		return domain.Position{}, fmt.Errorf("redis: unmarshal position %s/%s: %w", account, seriesID, err)
	}
	return pos, nil
}

// ListByAccount returns every cached position for the account. Index entries
// whose position key has already expired are skipped.
func (pc *PositionCache) ListByAccount(ctx context.Context, account string) ([]domain.Position, error) {
	ids, err := pc.rdb.SMembers(ctx, positionIndexKey(account)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list positions %s: %w", account, err)
	}

	out := make([]domain.Position, 0, len(ids))
	for _, id := range ids {
		pos, err := pc.Get(ctx, account, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

// InvalidateAccount drops every cached position for the account along with
// the index itself.
func (pc *PositionCache) InvalidateAccount(ctx context.Context, account string) error {
	idx := positionIndexKey(account)
	ids, err := pc.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("redis: invalidate positions %s: %w", account, err)
	}

	pipe := pc.rdb.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, positionKey(account, id))
	}
	pipe.Del(ctx, idx)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate positions %s: %w", account, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PositionCache = (*PositionCache)(nil)
