package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"badgeissuer/internal/badge/models"
	"badgeissuer/internal/metadata"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/sentinel"
	txcontext "badgeissuer/pkg/platform/tx"
)

// PostgresStore persists components in the components table. The address
// primary key and the unique resource column reject a second publication.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Component) error {
	meta := c.Metadata
	if meta == nil {
		meta = metadata.Map{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal component metadata: %w", err)
	}
	query := `
		INSERT INTO components (address, resource_address, owner_badge, dapp_definition, deadline, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		c.Address.String(), c.Resource.String(), c.OwnerBadge.String(), c.DappDefinition.String(),
		c.Deadline.UTC(), raw, c.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("component %s: %w", c.Address, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert component: %w", err)
	}
	return nil
}

const selectComponent = `
	SELECT address, resource_address, owner_badge, dapp_definition, deadline, metadata, created_at
	FROM components
`

func (s *PostgresStore) Get(ctx context.Context, addr domain.ComponentAddress) (*models.Component, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, selectComponent+` WHERE address = $1`, addr.String())
	c, err := scanComponent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("component %s: %w", addr, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Component, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, selectComponent+` ORDER BY created_at, address`)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()
	var out []*models.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComponent(row rowScanner) (*models.Component, error) {
	var (
		c                                 models.Component
		address, resource, owner, dappDef string
		raw                               []byte
	)
	if err := row.Scan(&address, &resource, &owner, &dappDef, &c.Deadline, &raw, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan component: %w", err)
	}
	c.Address = domain.ComponentAddress(address)
	c.Resource = domain.ResourceAddress(resource)
	c.OwnerBadge = domain.ResourceAddress(owner)
	c.DappDefinition = domain.ComponentAddress(dappDef)
	c.Deadline = c.Deadline.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	if err := json.Unmarshal(raw, &c.Metadata); err != nil {
		return nil, fmt.Errorf("decode component metadata: %w", err)
	}
	return &c, nil
}
