package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"device-activity-service/internal/aggregation"
	"device-activity-service/internal/model"
)

// ActivityStore is the subset of the activity log the service needs.
type ActivityStore interface {
	Append(ctx context.Context, in model.DeviceActivity) (model.ActivityEvent, error)
	List(ctx context.Context, environmentID string) []model.ActivityEvent
	ListByDevice(ctx context.Context, deviceID, environmentID string) []model.ActivityEvent
	ListByUser(ctx context.Context, userID, environmentID string) []model.ActivityEvent
	ListInRange(ctx context.Context, start, end int64, environmentID string) []model.ActivityEvent
	UserStats(ctx context.Context, environmentID string) aggregation.StatsTable
	ClearEnvironment(ctx context.Context, environmentID string) error
	ClearAll(ctx context.Context) error
	Export(ctx context.Context, environmentID string) model.ExportBundle
	Import(ctx context.Context, bundle model.ExportBundle) (model.ImportResult, error)
}

// Aggregator derives read models from the log.
type Aggregator interface {
	DeviceUsage(ctx context.Context, deviceID, environmentID string) model.DeviceUsageSummary
	Bucketize(ctx context.Context, environmentID, rangeName string, now time.Time) []model.TimeBucket
	MostActiveDevices(ctx context.Context, environmentID string, limit int) []model.DeviceActivitySummary
}

type ActivityService interface {
	LogActivity(ctx context.Context, environmentID string, req model.DeviceActivity) (model.ActivityEvent, error)
	ListActivities(ctx context.Context, filter model.ActivityFilter) ([]model.ActivityEvent, error)
	UserStats(ctx context.Context, environmentID string) map[string]*model.UserActivityStat
	DeviceUsage(ctx context.Context, environmentID, deviceID string) (model.DeviceUsageSummary, error)
	Chart(ctx context.Context, environmentID, rangeName string) (model.ChartResponse, error)
	TopDevices(ctx context.Context, environmentID string, limit int) ([]model.DeviceActivitySummary, error)
	ClearEnvironment(ctx context.Context, environmentID string) error
	ClearAll(ctx context.Context) error
	Export(ctx context.Context, environmentID string) model.ExportBundle
	Import(ctx context.Context, bundle model.ExportBundle) (model.ImportResult, error)
}

// maxTopDevices caps the limit query parameter.
const maxTopDevices = 100

// activityService validates requests and delegates to the log and the engine.
type activityService struct {
	store    ActivityStore
	engine   Aggregator
	validate *validator.Validate
	now      func() time.Time
}

// NewActivityService constructs an activityService.
func NewActivityService(store ActivityStore, engine Aggregator) ActivityService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &activityService{
		store:    store,
		engine:   engine,
		validate: v,
		now:      time.Now,
	}
}

// LogActivity validates and records one device state change.
func (s *activityService) LogActivity(ctx context.Context, environmentID string, req model.DeviceActivity) (model.ActivityEvent, error) {
	if environmentID == "" {
		return model.ActivityEvent{}, &ValidationError{Message: "environment is required"}
	}
	req.EnvironmentID = environmentID

	if err := s.validate.Struct(req); err != nil {
		return model.ActivityEvent{}, toValidationError(err)
	}
	if req.UserID == "" && req.UserName != "" {
		return model.ActivityEvent{}, &ValidationError{Message: "userName requires userId"}
	}

	return s.store.Append(ctx, req)
}

// ListActivities picks the narrowest log query for the filter and applies
// the remaining criteria in memory. The result stays newest-first.
func (s *activityService) ListActivities(ctx context.Context, filter model.ActivityFilter) ([]model.ActivityEvent, error) {
	if filter.From != nil && filter.To != nil && *filter.From > *filter.To {
		return nil, &ValidationError{Message: "from must be before to"}
	}

	var events []model.ActivityEvent
	switch {
	case filter.From != nil || filter.To != nil:
		start, end := int64(0), int64(math.MaxInt64)
		if filter.From != nil {
			start = *filter.From
		}
		if filter.To != nil {
			end = *filter.To
		}
		events = s.store.ListInRange(ctx, start, end, filter.EnvironmentID)
	case filter.DeviceID != "":
		events = s.store.ListByDevice(ctx, filter.DeviceID, filter.EnvironmentID)
	case filter.UserID != "":
		events = s.store.ListByUser(ctx, filter.UserID, filter.EnvironmentID)
	default:
		events = s.store.List(ctx, filter.EnvironmentID)
	}

	out := make([]model.ActivityEvent, 0, len(events))
	for _, e := range events {
		if filter.DeviceID != "" && e.DeviceID != filter.DeviceID {
			continue
		}
		if filter.UserID != "" && e.ActorID() != filter.UserID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *activityService) UserStats(ctx context.Context, environmentID string) map[string]*model.UserActivityStat {
	return s.store.UserStats(ctx, environmentID)
}

func (s *activityService) DeviceUsage(ctx context.Context, environmentID, deviceID string) (model.DeviceUsageSummary, error) {
	if deviceID == "" {
		return model.DeviceUsageSummary{}, &ValidationError{Message: "device is required"}
	}
	return s.engine.DeviceUsage(ctx, deviceID, environmentID), nil
}

// Chart buckets the environment's events. Unknown ranges fall back to the
// default range and the response names the range actually used.
func (s *activityService) Chart(ctx context.Context, environmentID, rangeName string) (model.ChartResponse, error) {
	tr, _ := aggregation.ParseTimeRange(rangeName)
	return model.ChartResponse{
		EnvironmentID: environmentID,
		Range:         tr.Name,
		Buckets:       s.engine.Bucketize(ctx, environmentID, tr.Name, s.now()),
	}, nil
}

func (s *activityService) TopDevices(ctx context.Context, environmentID string, limit int) ([]model.DeviceActivitySummary, error) {
	if limit < 0 || limit > maxTopDevices {
		return nil, &ValidationError{Message: fmt.Sprintf("limit must be between 1 and %d", maxTopDevices)}
	}
	return s.engine.MostActiveDevices(ctx, environmentID, limit), nil
}

func (s *activityService) ClearEnvironment(ctx context.Context, environmentID string) error {
	if environmentID == "" {
		return &ValidationError{Message: "environment is required"}
	}
	return s.store.ClearEnvironment(ctx, environmentID)
}

func (s *activityService) ClearAll(ctx context.Context) error {
	return s.store.ClearAll(ctx)
}

func (s *activityService) Export(ctx context.Context, environmentID string) model.ExportBundle {
	return s.store.Export(ctx, environmentID)
}

// Import rejects bundles without an activities array. Statistics may be
// absent.
func (s *activityService) Import(ctx context.Context, bundle model.ExportBundle) (model.ImportResult, error) {
	if bundle.Activities == nil {
		return model.ImportResult{}, &ValidationError{Message: "activities is required"}
	}
	return s.store.Import(ctx, bundle)
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return &ValidationError{Message: strings.Join(msgs, ", ")}
}
