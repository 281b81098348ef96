package mockactivity

import (
	"context"
	"time"

	"device-activity-service/internal/aggregation"
	"device-activity-service/internal/model"

	"github.com/stretchr/testify/mock"
)

// Store mocks service.ActivityStore.
type Store struct {
	mock.Mock
}

func (m *Store) Append(ctx context.Context, in model.DeviceActivity) (model.ActivityEvent, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.ActivityEvent), args.Error(1)
}

func (m *Store) List(ctx context.Context, environmentID string) []model.ActivityEvent {
	args := m.Called(ctx, environmentID)
	return events(args.Get(0))
}

func (m *Store) ListByDevice(ctx context.Context, deviceID, environmentID string) []model.ActivityEvent {
	args := m.Called(ctx, deviceID, environmentID)
	return events(args.Get(0))
}

func (m *Store) ListByUser(ctx context.Context, userID, environmentID string) []model.ActivityEvent {
	args := m.Called(ctx, userID, environmentID)
	return events(args.Get(0))
}

func (m *Store) ListInRange(ctx context.Context, start, end int64, environmentID string) []model.ActivityEvent {
	args := m.Called(ctx, start, end, environmentID)
	return events(args.Get(0))
}

func (m *Store) UserStats(ctx context.Context, environmentID string) aggregation.StatsTable {
	args := m.Called(ctx, environmentID)
	if v, ok := args.Get(0).(aggregation.StatsTable); ok {
		return v
	}
	return aggregation.StatsTable{}
}

func (m *Store) ClearEnvironment(ctx context.Context, environmentID string) error {
	return m.Called(ctx, environmentID).Error(0)
}

func (m *Store) ClearAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Store) Export(ctx context.Context, environmentID string) model.ExportBundle {
	args := m.Called(ctx, environmentID)
	return args.Get(0).(model.ExportBundle)
}

func (m *Store) Import(ctx context.Context, bundle model.ExportBundle) (model.ImportResult, error) {
	args := m.Called(ctx, bundle)
	return args.Get(0).(model.ImportResult), args.Error(1)
}

// Aggregator mocks service.Aggregator.
type Aggregator struct {
	mock.Mock
}

func (m *Aggregator) DeviceUsage(ctx context.Context, deviceID, environmentID string) model.DeviceUsageSummary {
	args := m.Called(ctx, deviceID, environmentID)
	return args.Get(0).(model.DeviceUsageSummary)
}

func (m *Aggregator) Bucketize(ctx context.Context, environmentID, rangeName string, now time.Time) []model.TimeBucket {
	args := m.Called(ctx, environmentID, rangeName, now)
	if v, ok := args.Get(0).([]model.TimeBucket); ok {
		return v
	}
	return nil
}

func (m *Aggregator) MostActiveDevices(ctx context.Context, environmentID string, limit int) []model.DeviceActivitySummary {
	args := m.Called(ctx, environmentID, limit)
	if v, ok := args.Get(0).([]model.DeviceActivitySummary); ok {
		return v
	}
	return nil
}

func events(v any) []model.ActivityEvent {
	if e, ok := v.([]model.ActivityEvent); ok {
		return e
	}
	return nil
}
