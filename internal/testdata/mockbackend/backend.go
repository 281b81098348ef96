package mockbackend

import (
	"context"

	"device-activity-service/internal/storage"

	"github.com/stretchr/testify/mock"
)

type Backend struct {
	mock.Mock
}

// Interface compliance check
var _ storage.Backend = &Backend{}

func (m *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	var val []byte
	if v := args.Get(0); v != nil {
		val = v.([]byte)
	}
	return val, args.Bool(1), args.Error(2)
}

func (m *Backend) SetMulti(ctx context.Context, entries map[string][]byte) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *Backend) Delete(ctx context.Context, keys ...string) error {
	callArgs := []any{ctx}
	for _, k := range keys {
		callArgs = append(callArgs, k)
	}
	return m.Called(callArgs...).Error(0)
}

func (m *Backend) Close() error {
	return m.Called().Error(0)
}
