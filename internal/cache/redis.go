package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTier keeps pending timestamps in a single Redis hash.
type RedisTier struct {
	client *redis.Client
	key    string
}

func NewRedisTier(client *redis.Client, key string) *RedisTier {
	return &RedisTier{client: client, key: key}
}

func (r *RedisTier) Name() string { return "redis" }

func (r *RedisTier) Get(ctx context.Context, id string) (int64, bool, error) {
	ts, err := r.client.HGet(ctx, r.key, id).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: redis hget %s: %w", ErrAccess, id, err)
	}
	return ts, true, nil
}

func (r *RedisTier) Put(ctx context.Context, id string, timestamp int64) error {
	if err := r.client.HSet(ctx, r.key, id, timestamp).Err(); err != nil {
		return fmt.Errorf("%w: redis hset %s: %w", ErrAccess, id, err)
	}
	return nil
}

func (r *RedisTier) Remove(ctx context.Context, id string) (bool, error) {
	n, err := r.client.HDel(ctx, r.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis hdel %s: %w", ErrAccess, id, err)
	}
	return n > 0, nil
}

func (r *RedisTier) Len(ctx context.Context) (int64, error) {
	n, err := r.client.HLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: redis hlen: %w", ErrAccess, err)
	}
	return n, nil
}

func (r *RedisTier) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("%w: redis del %s: %w", ErrAccess, r.key, err)
	}
	return nil
}
