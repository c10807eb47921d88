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

const seriesTTL = 5 * time.Minute

// SeriesCache implements domain.SeriesCache using a Redis hash keyed by
// series ID plus a JSON blob holding the ordered set. The set is always
// written and read wholesale: a refresh replaces everything, so a partial
// cache is never served.
//
// Key schema:
//
//	series:all    - JSON array of the full series set
//	series:{id}   - JSON of one series, for point lookups
type SeriesCache struct {
	rdb *redis.Client
}

// NewSeriesCache creates a SeriesCache backed by the given Client.
func NewSeriesCache(c *Client) *SeriesCache {
	return &SeriesCache{rdb: c.Underlying()}
}

const seriesSetKey = "series:all"

func seriesKey(id string) string { return "series:" + id }

// PutAll replaces the cached series set wholesale.
func (sc *SeriesCache) PutAll(ctx context.Context, series []domain.Series) error {
	blob, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("redis: marshal series set: %w", err)
	}

	pipe := sc.rdb.TxPipeline()
	pipe.Set(ctx, seriesSetKey, blob, seriesTTL)
	for _, s := range series {
		one, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("redis: marshal series %s: %w", s.ID, err)
		}
		pipe.Set(ctx, seriesKey(s.ID), one, seriesTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put series set: %w", err)
	}
	return nil
}

// GetAll returns the cached series set, or domain.ErrNotFound when the set
// has expired or was never loaded.
func (sc *SeriesCache) GetAll(ctx context.Context) ([]domain.Series, error) {
	blob, err := sc.rdb.Get(ctx, seriesSetKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get series set: %w", err)
	}

	var series []domain.Series
	if err := json.Unmarshal(blob, &series); err != nil {
		return nil, fmt.Errorf("redis: unmarshal series set: %w", err)
	}
	return series, nil
}

// Get returns one series by ID, or domain.ErrNotFound.
func (sc *SeriesCache) Get(ctx context.Context, id string) (domain.Series, error) {
	blob, err := sc.rdb.Get(ctx, seriesKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Series{}, domain.ErrNotFound
		}
		return domain.Series{}, fmt.Errorf("redis: get series %s: %w", id, err)
	}

	var s domain.Series
	if err := json.Unmarshal(blob, &s); err != nil {
		return domain.Series{}, fmt.Errorf("redis: unmarshal series %s: %w", id, err)
	}
	return s, nil
}

// Compile-time interface check.
var _ domain.SeriesCache = (*SeriesCache)(nil)
