// Package store persists registry resources and their records.
//
// Every backend guarantees that InsertNonFungible is atomic with the
// resource's supply increment and that a (resource, local id) pair is never
// written twice.
package store

import (
	"context"

	"badgeissuer/internal/registry/models"
	"badgeissuer/pkg/domain"
)

// Store is implemented by the memory, Postgres and Redis backends.
type Store interface {
	CreateResource(ctx context.Context, def *models.ResourceDefinition) error
	GetResource(ctx context.Context, addr domain.ResourceAddress) (*models.ResourceDefinition, error)
	// UpdateResource applies fn to the current definition and persists the
	// result atomically. Supply is not writable through fn.
	UpdateResource(ctx context.Context, addr domain.ResourceAddress, fn func(*models.ResourceDefinition) error) (*models.ResourceDefinition, error)

	InsertNonFungible(ctx context.Context, nf *models.NonFungible) error
	GetNonFungible(ctx context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID) (*models.NonFungible, error)
	GetNonFungibles(ctx context.Context, addr domain.ResourceAddress, ids []domain.NonFungibleLocalID) ([]*models.NonFungible, error)
	ListNonFungibles(ctx context.Context, addr domain.ResourceAddress) ([]*models.NonFungible, error)
	UpdateNonFungible(ctx context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID, fn func(*models.NonFungible) error) (*models.NonFungible, error)
}
