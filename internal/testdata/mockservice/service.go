package mockservice

import (
	"context"

	"device-activity-service/internal/model"
	"device-activity-service/internal/service"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

var _ service.ActivityService = &Service{}

func (m *Service) LogActivity(ctx context.Context, environmentID string, req model.DeviceActivity) (model.ActivityEvent, error) {
	args := m.Called(ctx, environmentID, req)
	return args.Get(0).(model.ActivityEvent), args.Error(1)
}

func (m *Service) ListActivities(ctx context.Context, filter model.ActivityFilter) ([]model.ActivityEvent, error) {
	args := m.Called(ctx, filter)
	v, _ := args.Get(0).([]model.ActivityEvent)
	return v, args.Error(1)
}

func (m *Service) UserStats(ctx context.Context, environmentID string) map[string]*model.UserActivityStat {
	args := m.Called(ctx, environmentID)
	v, _ := args.Get(0).(map[string]*model.UserActivityStat)
	return v
}

func (m *Service) DeviceUsage(ctx context.Context, environmentID, deviceID string) (model.DeviceUsageSummary, error) {
	args := m.Called(ctx, environmentID, deviceID)
	return args.Get(0).(model.DeviceUsageSummary), args.Error(1)
}

func (m *Service) Chart(ctx context.Context, environmentID, rangeName string) (model.ChartResponse, error) {
	args := m.Called(ctx, environmentID, rangeName)
	return args.Get(0).(model.ChartResponse), args.Error(1)
}

func (m *Service) TopDevices(ctx context.Context, environmentID string, limit int) ([]model.DeviceActivitySummary, error) {
	args := m.Called(ctx, environmentID, limit)
	v, _ := args.Get(0).([]model.DeviceActivitySummary)
	return v, args.Error(1)
}

func (m *Service) ClearEnvironment(ctx context.Context, environmentID string) error {
	return m.Called(ctx, environmentID).Error(0)
}

func (m *Service) ClearAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Service) Export(ctx context.Context, environmentID string) model.ExportBundle {
	args := m.Called(ctx, environmentID)
	return args.Get(0).(model.ExportBundle)
}

func (m *Service) Import(ctx context.Context, bundle model.ExportBundle) (model.ImportResult, error) {
	args := m.Called(ctx, bundle)
	return args.Get(0).(model.ImportResult), args.Error(1)
}
