package mockclickhouse

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

type Batch struct {
	mock.Mock
}

var _ driver.Batch = &Batch{}

// Append records one call per row with the column values as arguments.
func (m *Batch) Append(values ...any) error {
	return m.Called(values...).Error(0)
}

func (m *Batch) AppendStruct(v any) error {
	return m.Called(v).Error(0)
}

func (m *Batch) Send() error {
	return m.Called().Error(0)
}

func (m *Batch) Abort() error {
	return m.Called().Error(0)
}

func (m *Batch) Flush() error {
	return m.Called().Error(0)
}

func (m *Batch) IsSent() bool {
	return m.Called().Bool(0)
}

func (m *Batch) Column(idx int) driver.BatchColumn {
	col, _ := m.Called(idx).Get(0).(driver.BatchColumn)
	return col
}
