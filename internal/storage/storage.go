// Package storage provides the key-value backends the activity log
// persists its two blobs into.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Keys used by the activity log.
const (
	ActivityKey  = "smart_home_device_activity"
	UserStatsKey = "smart_home_user_activity"
)

// Supported backend kinds.
const (
	KindMemory = "memory"
	KindBadger = "badger"
	KindRedis  = "redis"
)

// ErrUnknownBackend is returned by Open for an unsupported kind.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend is a minimal key-value store. SetMulti must apply all entries
// or none of them.
type Backend interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// SetMulti writes every entry atomically.
	SetMulti(ctx context.Context, entries map[string][]byte) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Kind           string
	BadgerPath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisNamespace string
}

// Open builds the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case "", KindMemory:
		return NewMemoryBackend(), nil
	case KindBadger:
		b, err := OpenBadgerBackend(opts.BadgerPath)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindRedis:
		r, err := OpenRedisBackend(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisNamespace)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Kind)
	}
}
