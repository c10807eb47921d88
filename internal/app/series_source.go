package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/termfi/vaultd/internal/domain"
)

// seriesLoader is the chain-side fallback for the series source.
type seriesLoader interface {
	LoadSeries(ctx context.Context) ([]domain.Series, error)
}

// cachedSeriesSource serves series reads cache-first, falling back to a
// wholesale chain load that repopulates the cache on a miss.
type cachedSeriesSource struct {
	cache  domain.SeriesCache
	loader seriesLoader
}

func (s *cachedSeriesSource) GetAll(ctx context.Context) ([]domain.Series, error) {
	series, err := s.cache.GetAll(ctx)
	if err == nil {
		return series, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.reload(ctx)
}

func (s *cachedSeriesSource) Get(ctx context.Context, id string) (domain.Series, error) {
	sr, err := s.cache.Get(ctx, id)
	if err == nil {
		return sr, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Series{}, err
	}

	series, err := s.reload(ctx)
	if err != nil {
		return domain.Series{}, err
	}
	for _, candidate := range series {
		if candidate.ID == id {
			return candidate, nil
		}
	}
	return domain.Series{}, domain.ErrNotFound
}

func (s *cachedSeriesSource) reload(ctx context.Context) ([]domain.Series, error) {
	series, err := s.loader.LoadSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load series: %w", err)
	}
	if err := s.cache.PutAll(ctx, series); err != nil {
		return nil, fmt.Errorf("app: cache series: %w", err)
	}
	return series, nil
}
