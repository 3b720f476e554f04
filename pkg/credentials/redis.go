package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the two credential slots as plain Redis keys.
// Several clients pointed at the same prefix share one session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(addr, password string, db int, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return NewRedisStoreFromClient(client, prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "storefront:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(slot string) string {
	return r.prefix + slot
}

// Get reads both slots. Read failures are logged and reported as empty slots.
func (r *RedisStore) Get(ctx context.Context) Pair {
	values, err := r.client.MGet(ctx, r.key(AccessSlot), r.key(RefreshSlot)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("failed to read credentials from redis", "prefix", r.prefix, "error", err)
		return Pair{}
	}

	var pair Pair
	if len(values) == 2 {
		pair.Access, _ = values[0].(string)
		pair.Refresh, _ = values[1].(string)
	}
	return pair
}

// Set writes the provided slots in a single transaction
func (r *RedisStore) Set(ctx context.Context, pair Pair) error {
	if pair.IsEmpty() {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if pair.Access != "" {
			pipe.Set(ctx, r.key(AccessSlot), pair.Access, 0)
		}
		if pair.Refresh != "" {
			pipe.Set(ctx, r.key(RefreshSlot), pair.Refresh, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials to redis: %w", err)
	}
	return nil
}

// Clear deletes both slots
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(AccessSlot), r.key(RefreshSlot)).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials from redis: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
