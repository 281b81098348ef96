package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend persists values in an embedded BadgerDB.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend opens (or creates) a BadgerDB at path. An empty path
// opens an in-memory database.
func OpenBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerBackend(db), nil
}

// NewBadgerBackend wraps an already opened database.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func (b *BadgerBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	var val []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (b *BadgerBackend) SetMulti(_ context.Context, entries map[string][]byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for key, val := range entries {
			if err := txn.Set([]byte(key), val); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Delete(_ context.Context, keys ...string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
