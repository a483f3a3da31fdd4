package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"badgeissuer/internal/badge/models"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	components map[domain.ComponentAddress]*models.Component
	resources  map[domain.ResourceAddress]domain.ComponentAddress
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		components: make(map[domain.ComponentAddress]*models.Component),
		resources:  make(map[domain.ResourceAddress]domain.ComponentAddress),
	}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.components[c.Address]; ok {
		return fmt.Errorf("component %s: %w", c.Address, sentinel.ErrConflict)
	}
	if _, ok := s.resources[c.Resource]; ok {
		return fmt.Errorf("resource %s already bound: %w", c.Resource, sentinel.ErrConflict)
	}
	s.components[c.Address] = c.Clone()
	s.resources[c.Resource] = c.Address
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, addr domain.ComponentAddress) (*models.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.components[addr]
	if !ok {
		return nil, fmt.Errorf("component %s: %w", addr, sentinel.ErrNotFound)
	}
	return c.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Component, 0, len(s.components))
	for _, c := range s.components {
		out = append(out, c.Clone())
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(components []*models.Component) {
	sort.Slice(components, func(i, j int) bool {
		if !components[i].CreatedAt.Equal(components[j].CreatedAt) {
			return components[i].CreatedAt.Before(components[j].CreatedAt)
		}
		return components[i].Address < components[j].Address
	})
}
