package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"badgeissuer/internal/badge/models"
	"badgeissuer/internal/badge/store"
	"badgeissuer/pkg/domain"
)

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &storeSuite{newStore: func() store.Store { return store.NewInMemory() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &storeSuite{newStore: func() store.Store {
		s, err := store.NewSQLite("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}})
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/components.sqlite"
	ctx := context.Background()
	c := newComponent(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	first, err := store.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Create(ctx, c))
	require.NoError(t, first.Close())

	second, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer second.Close()
	got, err := second.Get(ctx, c.Address)
	require.NoError(t, err)
	assert.True(t, c.Deadline.Equal(got.Deadline))
}

type countingStore struct {
	store.Store
	gets int
}

func (s *countingStore) Get(ctx context.Context, addr domain.ComponentAddress) (*models.Component, error) {
	s.gets++
	return s.Store.Get(ctx, addr)
}

func TestCachedStore(t *testing.T) {
	suite.Run(t, &storeSuite{newStore: func() store.Store {
		return store.NewCached(store.NewInMemory(), time.Minute)
	}})
}

func TestCachedStoreReadsThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Store: store.NewInMemory()}
	c := newComponent(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, backing.Create(ctx, c))

	cached := store.NewCached(backing, time.Minute)
	for i := 0; i < 3; i++ {
		got, err := cached.Get(ctx, c.Address)
		require.NoError(t, err)
		assert.Equal(t, c.Address, got.Address)
	}
	assert.Equal(t, 1, backing.gets)
	assert.Equal(t, 1, cached.Len())

	got, err := cached.Get(ctx, c.Address)
	require.NoError(t, err)
	got.Metadata["name"] = got.Metadata["symbol"]
	again, err := cached.Get(ctx, c.Address)
	require.NoError(t, err)
	assert.Equal(t, models.ComponentName, again.Metadata["name"].Value, "callers get copies")

	cached.Forget(c.Address)
	_, err = cached.Get(ctx, c.Address)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.gets)
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	backing := &countingStore{Store: store.NewInMemory()}
	cached := store.NewCached(backing, 0)
	addr := domain.NewComponentAddress()

	_, err := cached.Get(context.Background(), addr)
	require.Error(t, err)
	_, err = cached.Get(context.Background(), addr)
	require.Error(t, err)
	assert.Equal(t, 2, backing.gets)
}
