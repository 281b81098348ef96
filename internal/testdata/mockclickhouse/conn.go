// Package mockclickhouse provides testify mocks for the clickhouse-go
// driver interfaces used by the archive.
package mockclickhouse

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

type Conn struct {
	mock.Mock
}

var _ clickhouse.Conn = &Conn{}

// ExpectBatch makes PrepareBatch(query) hand out batch.
func (m *Conn) ExpectBatch(query string, batch *Batch) *mock.Call {
	return m.On("PrepareBatch", mock.Anything, query).Return(batch, nil)
}

func (m *Conn) PrepareBatch(ctx context.Context, query string) (driver.Batch, error) {
	args := m.Called(ctx, query)
	batch, _ := args.Get(0).(driver.Batch)
	return batch, args.Error(1)
}

func (m *Conn) Exec(ctx context.Context, query string, args ...any) error {
	return m.Called(spread(ctx, query, args)...).Error(0)
}

func (m *Conn) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Conn) Close() error {
	return m.Called().Error(0)
}

func (m *Conn) AsyncInsert(ctx context.Context, query string, wait bool) error {
	return m.Called(ctx, query, wait).Error(0)
}

func (m *Conn) Select(ctx context.Context, dest any, query string, args ...any) error {
	return m.Called(spread(ctx, dest, query, args)...).Error(0)
}

func (m *Conn) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	res := m.Called(spread(ctx, query, args)...)
	rows, _ := res.Get(0).(driver.Rows)
	return rows, res.Error(1)
}

func (m *Conn) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	row, _ := m.Called(spread(ctx, query, args)...).Get(0).(driver.Row)
	return row
}

func (m *Conn) ServerVersion() (*driver.ServerVersion, error) {
	args := m.Called()
	v, _ := args.Get(0).(*driver.ServerVersion)
	return v, args.Error(1)
}

func (m *Conn) Contributors() []string {
	v, _ := m.Called().Get(0).([]string)
	return v
}

func (m *Conn) Stats() driver.Stats {
	v, _ := m.Called().Get(0).(driver.Stats)
	return v
}

// spread flattens the trailing variadic slice so expectations can match
// individual query arguments.
func spread(args ...any) []any {
	if len(args) == 0 {
		return args
	}
	last, ok := args[len(args)-1].([]any)
	if !ok {
		return args
	}
	return append(args[:len(args)-1:len(args)-1], last...)
}
