// Package store persists published issuance components. Components never
// change after publication, so the only write is Create.
package store

import (
	"context"

	"badgeissuer/internal/badge/models"
	"badgeissuer/pkg/domain"
)

// Store is implemented by the memory, Postgres and SQLite backends and by
// the read-through cache.
type Store interface {
	Create(ctx context.Context, c *models.Component) error
	Get(ctx context.Context, addr domain.ComponentAddress) (*models.Component, error)
	List(ctx context.Context) ([]*models.Component, error)
}
