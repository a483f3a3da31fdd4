package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"badgeissuer/internal/authz"
	"badgeissuer/internal/metadata"
	"badgeissuer/internal/platform/postgres"
	"badgeissuer/internal/registry/models"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/sentinel"
	txcontext "badgeissuer/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists resources and records in PostgreSQL. Record
// inserts and the supply increment share one transaction; the
// (resource_address, local_id) primary key rejects duplicates.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *PostgresStore) CreateResource(ctx context.Context, def *models.ResourceDefinition) error {
	owner, roles, meta, err := encodeResource(def)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO resources (address, owner_rule, roles, mutable_fields, metadata, total_supply, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		def.Address.String(), owner, roles, pq.Array(def.MutableFields), meta, def.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("resource %s: %w", def.Address, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

const selectResource = `
	SELECT address, owner_rule, roles, mutable_fields, metadata, total_supply, created_at
	FROM resources WHERE address = $1
`

func (s *PostgresStore) GetResource(ctx context.Context, addr domain.ResourceAddress) (*models.ResourceDefinition, error) {
	return scanResource(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, selectResource, addr.String()), addr)
}

func (s *PostgresStore) UpdateResource(ctx context.Context, addr domain.ResourceAddress, fn func(*models.ResourceDefinition) error) (*models.ResourceDefinition, error) {
	var updated *models.ResourceDefinition
	err := postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		current, err := scanResource(tx.QueryRowContext(ctx, selectResource+" FOR UPDATE", addr.String()), addr)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.Address, next.TotalSupply = current.Address, current.TotalSupply

		owner, roles, meta, err := encodeResource(next)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE resources SET owner_rule = $2, roles = $3, mutable_fields = $4, metadata = $5
			WHERE address = $1
		`, addr.String(), owner, roles, pq.Array(next.MutableFields), meta)
		if err != nil {
			return fmt.Errorf("update resource: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresStore) InsertNonFungible(ctx context.Context, nf *models.NonFungible) error {
	data, err := json.Marshal(nf.Data)
	if err != nil {
		return fmt.Errorf("marshal non-fungible data: %w", err)
	}
	return postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		res, err := tx.ExecContext(ctx,
			`UPDATE resources SET total_supply = total_supply + 1 WHERE address = $1`, nf.Resource.String())
		if err != nil {
			return fmt.Errorf("increment supply: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("resource %s: %w", nf.Resource, sentinel.ErrNotFound)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO non_fungibles (resource_address, local_id, data, holder, minted_at, recalled_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, nf.Resource.String(), nf.LocalID.String(), data, nf.Holder.String(), nf.MintedAt.UTC(), nullTime(nf.RecalledAt))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("non-fungible %s: %w", nf.LocalID, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert non-fungible: %w", err)
		}
		return nil
	})
}

const selectNonFungible = `
	SELECT resource_address, local_id, data, holder, minted_at, recalled_at
	FROM non_fungibles
`

func (s *PostgresStore) GetNonFungible(ctx context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID) (*models.NonFungible, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		selectNonFungible+` WHERE resource_address = $1 AND local_id = $2`, addr.String(), id.String())
	return scanNonFungible(row, id)
}

func (s *PostgresStore) GetNonFungibles(ctx context.Context, addr domain.ResourceAddress, ids []domain.NonFungibleLocalID) ([]*models.NonFungible, error) {
	if err := s.resourceExists(ctx, addr); err != nil {
		return nil, err
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		selectNonFungible+` WHERE resource_address = $1 AND local_id = ANY($2::text[]) ORDER BY minted_at, local_id`,
		addr.String(), pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("query non-fungibles: %w", err)
	}
	return collectNonFungibles(rows)
}

func (s *PostgresStore) ListNonFungibles(ctx context.Context, addr domain.ResourceAddress) ([]*models.NonFungible, error) {
	if err := s.resourceExists(ctx, addr); err != nil {
		return nil, err
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		selectNonFungible+` WHERE resource_address = $1 ORDER BY minted_at, local_id`, addr.String())
	if err != nil {
		return nil, fmt.Errorf("list non-fungibles: %w", err)
	}
	return collectNonFungibles(rows)
}

func (s *PostgresStore) UpdateNonFungible(ctx context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID, fn func(*models.NonFungible) error) (*models.NonFungible, error) {
	var updated *models.NonFungible
	err := postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		current, err := scanNonFungible(tx.QueryRowContext(ctx,
			selectNonFungible+` WHERE resource_address = $1 AND local_id = $2 FOR UPDATE`, addr.String(), id.String()), id)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.Resource, next.LocalID = current.Resource, current.LocalID

		data, err := json.Marshal(next.Data)
		if err != nil {
			return fmt.Errorf("marshal non-fungible data: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE non_fungibles SET data = $3, holder = $4, recalled_at = $5
			WHERE resource_address = $1 AND local_id = $2
		`, addr.String(), id.String(), data, next.Holder.String(), nullTime(next.RecalledAt))
		if err != nil {
			return fmt.Errorf("update non-fungible: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresStore) resourceExists(ctx context.Context, addr domain.ResourceAddress) error {
	var one int
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT 1 FROM resources WHERE address = $1`, addr.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check resource: %w", err)
	}
	return nil
}

func encodeResource(def *models.ResourceDefinition) (owner, roles, meta []byte, err error) {
	if owner, err = json.Marshal(def.Owner); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal owner rule: %w", err)
	}
	r := def.Roles
	if r == nil {
		r = authz.Roles{}
	}
	if roles, err = json.Marshal(r); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal roles: %w", err)
	}
	m := def.Metadata
	if m == nil {
		m = metadata.Map{}
	}
	if meta, err = json.Marshal(m); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return owner, roles, meta, nil
}

func scanResource(row *sql.Row, addr domain.ResourceAddress) (*models.ResourceDefinition, error) {
	var (
		def                models.ResourceDefinition
		address            string
		owner, roles, meta []byte
		mutable            []string
		supply             int64
	)
	err := row.Scan(&address, &owner, &roles, pq.Array(&mutable), &meta, &supply, &def.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	def.Address = domain.ResourceAddress(address)
	def.MutableFields = mutable
	def.TotalSupply = uint64(supply)
	def.CreatedAt = def.CreatedAt.UTC()
	if err := json.Unmarshal(owner, &def.Owner); err != nil {
		return nil, fmt.Errorf("decode owner rule: %w", err)
	}
	if err := json.Unmarshal(roles, &def.Roles); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	if err := json.Unmarshal(meta, &def.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &def, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNonFungible(row rowScanner, id domain.NonFungibleLocalID) (*models.NonFungible, error) {
	var (
		nf                        models.NonFungible
		resource, localID, holder string
		data                      []byte
		recalledAt                sql.NullTime
	)
	err := row.Scan(&resource, &localID, &data, &holder, &nf.MintedAt, &recalledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("non-fungible %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan non-fungible: %w", err)
	}
	nf.Resource = domain.ResourceAddress(resource)
	nf.LocalID = domain.NonFungibleLocalID(localID)
	nf.Holder = domain.AccountAddress(holder)
	nf.MintedAt = nf.MintedAt.UTC()
	if recalledAt.Valid {
		t := recalledAt.Time.UTC()
		nf.RecalledAt = &t
	}
	if err := json.Unmarshal(data, &nf.Data); err != nil {
		return nil, fmt.Errorf("decode non-fungible data: %w", err)
	}
	return &nf, nil
}

func collectNonFungibles(rows *sql.Rows) ([]*models.NonFungible, error) {
	defer rows.Close()
	var out []*models.NonFungible
	for rows.Next() {
		nf, err := scanNonFungible(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, nf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate non-fungibles: %w", err)
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
