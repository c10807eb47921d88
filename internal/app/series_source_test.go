package app

import (
	"context"
	"errors"
	"testing"

	"github.com/termfi/vaultd/internal/domain"
)

type fakeSeriesCache struct {
	all    []domain.Series
	puts   int
	getErr error
}

func (c *fakeSeriesCache) PutAll(ctx context.Context, series []domain.Series) error {
	c.all = series
	c.puts++
	return nil
}

func (c *fakeSeriesCache) GetAll(ctx context.Context) ([]domain.Series, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	if c.all == nil {
		return nil, domain.ErrNotFound
	}
	return c.all, nil
}

func (c *fakeSeriesCache) Get(ctx context.Context, id string) (domain.Series, error) {
	if c.getErr != nil {
		return domain.Series{}, c.getErr
	}
	for _, s := range c.all {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Series{}, domain.ErrNotFound
}

type fakeLoader struct {
	series []domain.Series
	err    error
	loads  int
}

func (l *fakeLoader) LoadSeries(ctx context.Context) ([]domain.Series, error) {
	l.loads++
	return l.series, l.err
}

func TestGetAllServesFromCache(t *testing.T) {
	cache := &fakeSeriesCache{all: []domain.Series{{ID: "0x01"}}}
	loader := &fakeLoader{}
	src := &cachedSeriesSource{cache: cache, loader: loader}

	series, err := src.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(series) != 1 || series[0].ID != "0x01" {
		t.Errorf("series = %v, want cached entry", series)
	}
	if loader.loads != 0 {
		t.Errorf("loads = %d, cache hit should not touch the chain", loader.loads)
	}
}

func TestGetAllReloadsOnMiss(t *testing.T) {
	cache := &fakeSeriesCache{}
	loader := &fakeLoader{series: []domain.Series{{ID: "0x01"}, {ID: "0x02"}}}
	src := &cachedSeriesSource{cache: cache, loader: loader}

	series, err := src.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(series) != 2 {
		t.Errorf("got %d series, want 2", len(series))
	}
	if loader.loads != 1 {
		t.Errorf("loads = %d, want 1", loader.loads)
	}
	if cache.puts != 1 {
		t.Errorf("puts = %d, reload should repopulate the cache", cache.puts)
	}
}

func TestGetFallsBackToReload(t *testing.T) {
	cache := &fakeSeriesCache{}
	loader := &fakeLoader{series: []domain.Series{{ID: "0x02", Name: "FEB26"}}}
	src := &cachedSeriesSource{cache: cache, loader: loader}

	s, err := src.Get(context.Background(), "0x02")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.Name != "FEB26" {
		t.Errorf("name = %q, want FEB26", s.Name)
	}

	if _, err := src.Get(context.Background(), "0x99"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown id should return ErrNotFound, got %v", err)
	}
}

func TestGetAllPropagatesCacheFailure(t *testing.T) {
	boom := errors.New("redis down")
	cache := &fakeSeriesCache{getErr: boom}
	loader := &fakeLoader{}
	src := &cachedSeriesSource{cache: cache, loader: loader}

	if _, err := src.GetAll(context.Background()); !errors.Is(err, boom) {
		t.Errorf("cache failure should propagate, got %v", err)
	}
	if loader.loads != 0 {
		t.Error("a cache failure is not a miss and must not trigger a chain load")
	}
}
