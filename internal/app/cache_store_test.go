package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quotedeck/quote-service/internal/domain"
	"github.com/quotedeck/quote-service/internal/ports"
)

func newTestCache(t *testing.T, opts ...func(*CacheStoreConfig)) (*CacheStore, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	cfg := CacheStoreConfig{
		Store:  store,
		Logger: discardLogger(),
		MaxAge: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return NewCacheStore(cfg), store
}

func TestNewCacheStore_PanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() {
		NewCacheStore(CacheStoreConfig{Store: nil})
	})
}

func TestCacheStore_ReadMissWhenAbsent(t *testing.T) {
	cache, _ := newTestCache(t)

	entry, ok := cache.Read(context.Background())

	assert.False(t, ok)
	assert.True(t, entry.Empty())
	assert.Equal(t, CacheStats{Misses: 1}, cache.Stats())
}

func TestCacheStore_WriteThenRead(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	quotes := []domain.Quote{
		{ID: "q-1", Text: "first", Author: "a", Source: "quotable"},
		{ID: "q-2", Text: "second", Author: "b", Source: "quotable"},
	}

	cache.Write(ctx, quotes, "quotable")

	entry, ok := cache.Read(ctx)
	require.True(t, ok)
	assert.Len(t, entry.Quotes, 2)
	assert.Equal(t, "quotable", entry.Source)
	assert.False(t, entry.FetchedAt.IsZero())
	assert.Equal(t, CacheStats{Hits: 1}, cache.Stats())
}

func TestCacheStore_ReadCorruptDocumentIsMiss(t *testing.T) {
	cache, store := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, cacheKey, []byte("{not json")))

	_, ok := cache.Read(ctx)

	assert.False(t, ok)
	assert.Equal(t, CacheStats{Misses: 1}, cache.Stats())
}

func TestCacheStore_ReadEmptyEntryIsMiss(t *testing.T) {
	cache, store := newTestCache(t)
	ctx := context.Background()

	raw, err := json.Marshal(domain.CacheEntry{FetchedAt: time.Now(), Source: "quotable"})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, cacheKey, raw))

	_, ok := cache.Read(ctx)

	assert.False(t, ok)
}

func TestCacheStore_ReadStorageErrorIsMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := ports.NewMockKeyValue(ctrl)
	kv.EXPECT().Get(gomock.Any(), cacheKey).Return(nil, errors.New("disk on fire"))

	cache := NewCacheStore(CacheStoreConfig{Store: kv, Logger: discardLogger()})

	_, ok := cache.Read(context.Background())

	assert.False(t, ok)
	assert.Equal(t, CacheStats{Misses: 1}, cache.Stats())
}

func TestCacheStore_WriteStorageErrorSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := ports.NewMockKeyValue(ctrl)
	kv.EXPECT().Set(gomock.Any(), cacheKey, gomock.Any()).Return(errors.New("disk full"))

	cache := NewCacheStore(CacheStoreConfig{Store: kv, Logger: discardLogger()})

	assert.NotPanics(t, func() {
		cache.Write(context.Background(), []domain.Quote{{ID: "q-1", Text: "t", Author: "a", Source: "s"}}, "s")
	})
}

func TestCacheStore_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Write(ctx, []domain.Quote{{ID: "q-1", Text: "t", Author: "a", Source: "s"}}, "s")
	cache.Invalidate(ctx)

	_, ok := cache.Read(ctx)
	assert.False(t, ok)
}

func TestCacheStore_Stale(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	cache, _ := newTestCache(t, func(cfg *CacheStoreConfig) {
		cfg.MaxAge = time.Hour
		cfg.Now = func() time.Time { return now }
	})

	fresh := domain.CacheEntry{FetchedAt: now.Add(-30 * time.Minute)}
	aged := domain.CacheEntry{FetchedAt: now.Add(-2 * time.Hour)}

	assert.False(t, cache.Stale(fresh))
	assert.True(t, cache.Stale(aged))
	assert.True(t, cache.Stale(domain.CacheEntry{}), "zero entry is always stale")
}

func TestCacheStore_StaleWhenDisabled(t *testing.T) {
	now := time.Now()
	cache, _ := newTestCache(t, func(cfg *CacheStoreConfig) {
		cfg.DisableCache = true
		cfg.Now = func() time.Time { return now }
	})

	fresh := domain.CacheEntry{FetchedAt: now}

	assert.True(t, cache.Stale(fresh))
}

func TestCacheStore_StatsAccumulate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Read(ctx) // miss
	cache.Write(ctx, []domain.Quote{{ID: "q-1", Text: "t", Author: "a", Source: "s"}}, "s")
	cache.Read(ctx) // hit
	cache.Read(ctx) // hit

	assert.Equal(t, CacheStats{Hits: 2, Misses: 1}, cache.Stats())
}
