package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores values as plain Redis strings so several service
// instances can share one log. Concurrent writers are not coordinated.
type RedisBackend struct {
	client    redis.UniversalClient
	namespace string
}

// OpenRedisBackend connects to addr and verifies the connection.
func OpenRedisBackend(ctx context.Context, addr, password string, db int, namespace string) (*RedisBackend, error) {
	if addr == "" {
		return nil, errors.New("REDIS_ADDR is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBackend(client, namespace), nil
}

// NewRedisBackend wraps an existing client. namespace, when set, prefixes
// every key as "namespace:key".
func NewRedisBackend(client redis.UniversalClient, namespace string) *RedisBackend {
	return &RedisBackend{client: client, namespace: namespace}
}

func (r *RedisBackend) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisBackend) SetMulti(ctx context.Context, entries map[string][]byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, val := range entries {
			pipe.Set(ctx, r.key(key), val, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set multi: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(k))
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
