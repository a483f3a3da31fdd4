package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"badgeissuer/internal/authz"
	"badgeissuer/internal/metadata"
	"badgeissuer/internal/registry/models"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/sentinel"
)

const (
	resourceKeyPrefix    = "registry:resource:"
	supplyKeyPrefix      = "registry:supply:"
	nonFungibleKeyPrefix = "registry:nf:"

	defaultMaxRetries = 5
)

// RedisStore keeps each resource as a JSON string, its supply as a counter
// and its records in a hash keyed by local id. Inserts run as a Lua script;
// read-modify-write updates run under WATCH.
type RedisStore struct {
	client     *redis.Client
	maxRetries int
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithMaxRetries bounds optimistic retries when a watched key changes.
func WithMaxRetries(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type redisResource struct {
	Address       string           `json:"address"`
	Owner         authz.AccessRule `json:"owner"`
	Roles         authz.Roles      `json:"roles"`
	MutableFields []string         `json:"mutable_fields"`
	Metadata      metadata.Map     `json:"metadata"`
	CreatedAt     time.Time        `json:"created_at"`
}

type redisNonFungible struct {
	Resource   string            `json:"resource"`
	LocalID    string            `json:"local_id"`
	Data       map[string]string `json:"data"`
	Holder     string            `json:"holder"`
	MintedAt   time.Time         `json:"minted_at"`
	RecalledAt *time.Time        `json:"recalled_at,omitempty"`
}

func (s *RedisStore) CreateResource(ctx context.Context, def *models.ResourceDefinition) error {
	raw, err := json.Marshal(toRedisResource(def))
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	ok, err := s.client.SetNX(ctx, resourceKeyPrefix+def.Address.String(), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	if !ok {
		return fmt.Errorf("resource %s: %w", def.Address, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) GetResource(ctx context.Context, addr domain.ResourceAddress) (*models.ResourceDefinition, error) {
	return s.loadResource(ctx, s.client, addr)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) loadResource(ctx context.Context, c redisGetter, addr domain.ResourceAddress) (*models.ResourceDefinition, error) {
	raw, err := c.Get(ctx, resourceKeyPrefix+addr.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get resource: %w", err)
	}
	var rec redisResource
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	supply, err := c.Get(ctx, supplyKeyPrefix+addr.String()).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get supply: %w", err)
	}
	return &models.ResourceDefinition{
		Address:       domain.ResourceAddress(rec.Address),
		Owner:         rec.Owner,
		Roles:         rec.Roles,
		MutableFields: rec.MutableFields,
		Metadata:      rec.Metadata,
		TotalSupply:   supply,
		CreatedAt:     rec.CreatedAt.UTC(),
	}, nil
}

func (s *RedisStore) UpdateResource(ctx context.Context, addr domain.ResourceAddress, fn func(*models.ResourceDefinition) error) (*models.ResourceDefinition, error) {
	key := resourceKeyPrefix + addr.String()
	var updated *models.ResourceDefinition
	err := s.watch(ctx, func(tx *redis.Tx) error {
		current, err := s.loadResource(ctx, tx, addr)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.Address, next.TotalSupply = current.Address, current.TotalSupply
		raw, err := json.Marshal(toRedisResource(next))
		if err != nil {
			return fmt.Errorf("marshal resource: %w", err)
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		}); err != nil {
			return err
		}
		updated = next
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// insertNonFungibleScript stores the record and bumps the supply in one
// server-side step. Returns -1 for an unknown resource, 0 for a taken id.
var insertNonFungibleScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[2]) == 0 then
  return 0
end
redis.call('INCR', KEYS[3])
return 1
`)

// InsertNonFungible writes the record and increments the supply
// atomically. Concurrent inserts into one resource never abort each other.
func (s *RedisStore) InsertNonFungible(ctx context.Context, nf *models.NonFungible) error {
	raw, err := json.Marshal(toRedisNonFungible(nf))
	if err != nil {
		return fmt.Errorf("marshal non-fungible: %w", err)
	}
	keys := []string{
		resourceKeyPrefix + nf.Resource.String(),
		nonFungibleKeyPrefix + nf.Resource.String(),
		supplyKeyPrefix + nf.Resource.String(),
	}
	res, err := insertNonFungibleScript.Run(ctx, s.client, keys, nf.LocalID.String(), raw).Int()
	if err != nil {
		return fmt.Errorf("insert non-fungible: %w", err)
	}
	switch res {
	case -1:
		return fmt.Errorf("resource %s: %w", nf.Resource, sentinel.ErrNotFound)
	case 0:
		return fmt.Errorf("non-fungible %s: %w", nf.LocalID, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) GetNonFungible(ctx context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID) (*models.NonFungible, error) {
	if err := s.resourceExists(ctx, addr); err != nil {
		return nil, err
	}
	raw, err := s.client.HGet(ctx, nonFungibleKeyPrefix+addr.String(), id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("non-fungible %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get non-fungible: %w", err)
	}
	return decodeNonFungible(raw)
}

func (s *RedisStore) GetNonFungibles(ctx context.Context, addr domain.ResourceAddress, ids []domain.NonFungibleLocalID) ([]*models.NonFungible, error) {
	if err := s.resourceExists(ctx, addr); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.NonFungible{}, nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = id.String()
	}
	values, err := s.client.HMGet(ctx, nonFungibleKeyPrefix+addr.String(), fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("get non-fungibles: %w", err)
	}
	out := make([]*models.NonFungible, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		nf, err := decodeNonFungible([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, nf)
	}
	sortByMint(out)
	return out, nil
}

func (s *RedisStore) ListNonFungibles(ctx context.Context, addr domain.ResourceAddress) ([]*models.NonFungible, error) {
	if err := s.resourceExists(ctx, addr); err != nil {
		return nil, err
	}
	all, err := s.client.HGetAll(ctx, nonFungibleKeyPrefix+addr.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("list non-fungibles: %w", err)
	}
	out := make([]*models.NonFungible, 0, len(all))
	for _, raw := range all {
		nf, err := decodeNonFungible([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, nf)
	}
	sortByMint(out)
	return out, nil
}

func (s *RedisStore) UpdateNonFungible(ctx context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID, fn func(*models.NonFungible) error) (*models.NonFungible, error) {
	if err := s.resourceExists(ctx, addr); err != nil {
		return nil, err
	}
	hashKey := nonFungibleKeyPrefix + addr.String()
	var updated *models.NonFungible
	err := s.watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, hashKey, id.String()).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("non-fungible %s: %w", id, sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get non-fungible: %w", err)
		}
		current, err := decodeNonFungible(raw)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.Resource, next.LocalID = current.Resource, current.LocalID
		encoded, err := json.Marshal(toRedisNonFungible(next))
		if err != nil {
			return fmt.Errorf("marshal non-fungible: %w", err)
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hashKey, id.String(), encoded)
			return nil
		}); err != nil {
			return err
		}
		updated = next
		return nil
	}, hashKey)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// watch runs fn under WATCH on keys, retrying when another client
// modified a watched key before EXEC.
func (s *RedisStore) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("watched keys kept changing: %w", sentinel.ErrUnavailable)
}

func (s *RedisStore) resourceExists(ctx context.Context, addr domain.ResourceAddress) error {
	n, err := s.client.Exists(ctx, resourceKeyPrefix+addr.String()).Result()
	if err != nil {
		return fmt.Errorf("check resource: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("resource %s: %w", addr, sentinel.ErrNotFound)
	}
	return nil
}

func toRedisResource(def *models.ResourceDefinition) redisResource {
	return redisResource{
		Address:       def.Address.String(),
		Owner:         def.Owner,
		Roles:         def.Roles,
		MutableFields: def.MutableFields,
		Metadata:      def.Metadata,
		CreatedAt:     def.CreatedAt.UTC(),
	}
}

func toRedisNonFungible(nf *models.NonFungible) redisNonFungible {
	return redisNonFungible{
		Resource:   nf.Resource.String(),
		LocalID:    nf.LocalID.String(),
		Data:       nf.Data,
		Holder:     nf.Holder.String(),
		MintedAt:   nf.MintedAt.UTC(),
		RecalledAt: nf.RecalledAt,
	}
}

func decodeNonFungible(raw []byte) (*models.NonFungible, error) {
	var rec redisNonFungible
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode non-fungible: %w", err)
	}
	nf := &models.NonFungible{
		Resource: domain.ResourceAddress(rec.Resource),
		LocalID:  domain.NonFungibleLocalID(rec.LocalID),
		Data:     rec.Data,
		Holder:   domain.AccountAddress(rec.Holder),
		MintedAt: rec.MintedAt.UTC(),
	}
	if rec.RecalledAt != nil {
		t := rec.RecalledAt.UTC()
		nf.RecalledAt = &t
	}
	return nf, nil
}
