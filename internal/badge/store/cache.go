package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"badgeissuer/internal/badge/models"
	"badgeissuer/pkg/domain"
)

const defaultCleanupInterval = 10 * time.Minute

// CachedStore reads through an in-process cache. Components are immutable
// once published, so entries only expire to bound memory.
type CachedStore struct {
	next  Store
	cache *gocache.Cache
}

// NewCached wraps next. A non-positive ttl keeps entries until evicted
// by Forget.
func NewCached(next Store, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &CachedStore{next: next, cache: gocache.New(ttl, defaultCleanupInterval)}
}

func (s *CachedStore) Create(ctx context.Context, c *models.Component) error {
	if err := s.next.Create(ctx, c); err != nil {
		return err
	}
	s.cache.SetDefault(c.Address.String(), c.Clone())
	return nil
}

func (s *CachedStore) Get(ctx context.Context, addr domain.ComponentAddress) (*models.Component, error) {
	if v, ok := s.cache.Get(addr.String()); ok {
		if c, ok := v.(*models.Component); ok {
			return c.Clone(), nil
		}
	}
	c, err := s.next.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(addr.String(), c.Clone())
	return c, nil
}

func (s *CachedStore) List(ctx context.Context) ([]*models.Component, error) {
	return s.next.List(ctx)
}

// Forget drops one cached entry.
func (s *CachedStore) Forget(addr domain.ComponentAddress) {
	s.cache.Delete(addr.String())
}

// Len reports the number of cached components.
func (s *CachedStore) Len() int {
	return s.cache.ItemCount()
}
