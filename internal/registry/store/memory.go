package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"badgeissuer/internal/registry/models"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/sentinel"
)

type resourceEntry struct {
	def     *models.ResourceDefinition
	records map[domain.NonFungibleLocalID]*models.NonFungible
}

// InMemoryStore keeps everything behind one RWMutex, which also serializes
// local id assignment.
type InMemoryStore struct {
	mu        sync.RWMutex
	resources map[domain.ResourceAddress]*resourceEntry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{resources: make(map[domain.ResourceAddress]*resourceEntry)}
}

func (s *InMemoryStore) CreateResource(_ context.Context, def *models.ResourceDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[def.Address]; ok {
		return fmt.Errorf("resource %s: %w", def.Address, sentinel.ErrConflict)
	}
	s.resources[def.Address] = &resourceEntry{
		def:     def.Clone(),
		records: make(map[domain.NonFungibleLocalID]*models.NonFungible),
	}
	return nil
}

func (s *InMemoryStore) GetResource(_ context.Context, addr domain.ResourceAddress) (*models.ResourceDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.resources[addr]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	return entry.def.Clone(), nil
}

func (s *InMemoryStore) UpdateResource(_ context.Context, addr domain.ResourceAddress, fn func(*models.ResourceDefinition) error) (*models.ResourceDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.resources[addr]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	next := entry.def.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Address = entry.def.Address
	next.TotalSupply = entry.def.TotalSupply
	entry.def = next
	return next.Clone(), nil
}

func (s *InMemoryStore) InsertNonFungible(_ context.Context, nf *models.NonFungible) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.resources[nf.Resource]
	if !ok {
		return fmt.Errorf("resource %s: %w", nf.Resource, sentinel.ErrNotFound)
	}
	if _, exists := entry.records[nf.LocalID]; exists {
		return fmt.Errorf("non-fungible %s: %w", nf.LocalID, sentinel.ErrConflict)
	}
	entry.records[nf.LocalID] = nf.Clone()
	entry.def.TotalSupply++
	return nil
}

func (s *InMemoryStore) GetNonFungible(_ context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID) (*models.NonFungible, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.resources[addr]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	nf, ok := entry.records[id]
	if !ok {
		return nil, fmt.Errorf("non-fungible %s: %w", id, sentinel.ErrNotFound)
	}
	return nf.Clone(), nil
}

func (s *InMemoryStore) GetNonFungibles(_ context.Context, addr domain.ResourceAddress, ids []domain.NonFungibleLocalID) ([]*models.NonFungible, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.resources[addr]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	out := make([]*models.NonFungible, 0, len(ids))
	for _, id := range ids {
		if nf, ok := entry.records[id]; ok {
			out = append(out, nf.Clone())
		}
	}
	sortByMint(out)
	return out, nil
}

func (s *InMemoryStore) ListNonFungibles(_ context.Context, addr domain.ResourceAddress) ([]*models.NonFungible, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.resources[addr]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	out := make([]*models.NonFungible, 0, len(entry.records))
	for _, nf := range entry.records {
		out = append(out, nf.Clone())
	}
	sortByMint(out)
	return out, nil
}

func (s *InMemoryStore) UpdateNonFungible(_ context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID, fn func(*models.NonFungible) error) (*models.NonFungible, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.resources[addr]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	current, ok := entry.records[id]
	if !ok {
		return nil, fmt.Errorf("non-fungible %s: %w", id, sentinel.ErrNotFound)
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Resource, next.LocalID = current.Resource, current.LocalID
	entry.records[id] = next
	return next.Clone(), nil
}

// sortByMint orders records by mint time, then local id.
func sortByMint(records []*models.NonFungible) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].MintedAt.Equal(records[j].MintedAt) {
			return records[i].MintedAt.Before(records[j].MintedAt)
		}
		return records[i].LocalID < records[j].LocalID
	})
}
