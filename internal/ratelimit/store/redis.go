package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"badgeissuer/internal/ratelimit/models"
	"badgeissuer/pkg/platform/sentinel"
)

const redisMaxRetries = 5

// Redis shares sliding windows across replicas. Each key is a sorted set of
// request ids scored by their Unix time in microseconds.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Allow trims the window and adds the request in one optimistic
// transaction on key.
func (s *Redis) Allow(ctx context.Context, key string, policy models.Policy) (*models.Result, error) {
	for range redisMaxRetries {
		var result *models.Result
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			now := s.now()
			cutoff := now.Add(-policy.Window).UnixMicro()
			if err := tx.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
				return err
			}
			count, err := tx.ZCard(ctx, key).Result()
			if err != nil {
				return err
			}
			oldest := now
			if count > 0 {
				first, err := tx.ZRangeWithScores(ctx, key, 0, 0).Result()
				if err != nil {
					return err
				}
				if len(first) == 1 {
					oldest = time.UnixMicro(int64(first[0].Score))
				}
			}

			if int(count) >= policy.Limit {
				resetAt := oldest.Add(policy.Window)
				result = &models.Result{
					Allowed:    false,
					Limit:      policy.Limit,
					ResetAt:    resetAt,
					RetryAfter: retryAfter(now, resetAt),
				}
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
				pipe.PExpire(ctx, key, policy.Window)
				return nil
			})
			if err != nil {
				return err
			}
			result = &models.Result{
				Allowed:   true,
				Limit:     policy.Limit,
				Remaining: policy.Limit - int(count) - 1,
				ResetAt:   oldest.Add(policy.Window),
			}
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rate limit %s: %w", key, err)
		}
		return result, nil
	}
	return nil, fmt.Errorf("rate limit %s: %w", key, sentinel.ErrUnavailable)
}

func (s *Redis) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
