// Package activity implements the bounded device activity log.
//
// The log keeps two JSON blobs in a storage.Backend: the event list
// (newest-first, capped) and the per-user statistics table. Every
// mutation reads both, builds the new state in memory and writes it back
// with a single SetMulti. A failed read or write aborts the mutation and
// leaves the stored data as it was.
package activity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"device-activity-service/internal/aggregation"
	"device-activity-service/internal/metrics"
	"device-activity-service/internal/model"
	"device-activity-service/internal/storage"
)

// MaxActivityRecords is the default global capacity of the log.
const MaxActivityRecords = 10000

// ErrStorage wraps every backend failure that aborts a mutation.
var ErrStorage = errors.New("activity storage failure")

// Log is the activity store. It is safe for concurrent use within one
// process; separate processes sharing a backend are not coordinated.
type Log struct {
	backend  storage.Backend
	capacity int
	now      func() time.Time
	newID    func() string
	logger   zerolog.Logger
	metrics  metrics.Recorder

	mu   sync.Mutex
	subs subscribers
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity overrides MaxActivityRecords.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides the uuid-based id source.
func WithIDGenerator(gen func() string) Option {
	return func(l *Log) {
		if gen != nil {
			l.newID = gen
		}
	}
}

// WithLogger sets the logger used for degraded reads and failed writes.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(l *Log) {
		if rec != nil {
			l.metrics = rec
		}
	}
}

// New creates a Log over backend.
func New(backend storage.Backend, opts ...Option) *Log {
	l := &Log{
		backend:  backend,
		capacity: MaxActivityRecords,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   zerolog.Nop(),
		metrics:  metrics.Nop{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Capacity reports the configured bound.
func (l *Log) Capacity() int {
	return l.capacity
}

// Append records a state change and updates the user statistics.
func (l *Log) Append(ctx context.Context, in model.DeviceActivity) (model.ActivityEvent, error) {
	now := l.now()
	state := in.State != nil && *in.State
	event := model.ActivityEvent{
		ID:            l.newID(),
		DeviceID:      in.DeviceID,
		DeviceName:    in.DeviceName,
		RoomID:        in.RoomID,
		RoomName:      in.RoomName,
		State:         state,
		UserID:        in.UserID,
		UserName:      in.UserName,
		EnvironmentID: in.EnvironmentID,
		Timestamp:     now.UnixMilli(),
		Date:          now.UTC().Format(time.RFC3339Nano),
	}

	l.mu.Lock()
	events, stats, err := l.load(ctx, "append")
	if err != nil {
		l.mu.Unlock()
		return model.ActivityEvent{}, err
	}

	events = append(events, model.ActivityEvent{})
	copy(events[1:], events)
	events[0] = event
	events, evicted := l.bound(events)
	stats.OnEvent(event)

	err = l.write(ctx, "append", events, stats)
	l.mu.Unlock()

	if err != nil {
		return model.ActivityEvent{}, err
	}

	l.metrics.EventAppended(event.EnvironmentID)
	l.metrics.EventsEvicted(evicted)
	if evicted > 0 {
		l.logger.Debug().Int("evicted", evicted).Int("capacity", l.capacity).Msg("activity log trimmed")
	}
	l.subs.publish(Notification{Kind: KindAppended, EnvironmentID: event.EnvironmentID, Event: &event})

	return event, nil
}

// List returns events newest-first, restricted to environmentID when set.
func (l *Log) List(ctx context.Context, environmentID string) []model.ActivityEvent {
	return l.filter(ctx, func(e model.ActivityEvent) bool {
		return environmentID == "" || e.EnvironmentID == environmentID
	})
}

// ListByDevice returns the events of one device.
func (l *Log) ListByDevice(ctx context.Context, deviceID, environmentID string) []model.ActivityEvent {
	return l.filter(ctx, func(e model.ActivityEvent) bool {
		return e.DeviceID == deviceID && (environmentID == "" || e.EnvironmentID == environmentID)
	})
}

// ListByUser returns the events triggered by one user. model.UnknownUserID
// selects events without an actor.
func (l *Log) ListByUser(ctx context.Context, userID, environmentID string) []model.ActivityEvent {
	return l.filter(ctx, func(e model.ActivityEvent) bool {
		return e.ActorID() == userID && (environmentID == "" || e.EnvironmentID == environmentID)
	})
}

// ListInRange returns events with start <= timestamp <= end (milliseconds).
func (l *Log) ListInRange(ctx context.Context, start, end int64, environmentID string) []model.ActivityEvent {
	return l.filter(ctx, func(e model.ActivityEvent) bool {
		return e.Timestamp >= start && e.Timestamp <= end &&
			(environmentID == "" || e.EnvironmentID == environmentID)
	})
}

// UserStats returns the statistics table, scoped to environmentID when set.
func (l *Log) UserStats(ctx context.Context, environmentID string) aggregation.StatsTable {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readStats(ctx).Scoped(environmentID)
}

// ClearEnvironment drops the events and statistics of one environment.
func (l *Log) ClearEnvironment(ctx context.Context, environmentID string) error {
	l.mu.Lock()
	events, stats, err := l.load(ctx, "clear_environment")
	if err != nil {
		l.mu.Unlock()
		return err
	}

	kept := slices.DeleteFunc(events, func(e model.ActivityEvent) bool {
		return e.EnvironmentID == environmentID
	})
	err = l.write(ctx, "clear_environment", kept, stats.Without(environmentID))
	l.mu.Unlock()

	if err != nil {
		return err
	}
	l.logger.Info().Str("environment", environmentID).Msg("environment activity cleared")
	l.subs.publish(Notification{Kind: KindCleared, EnvironmentID: environmentID})
	return nil
}

// ClearAll removes every event and statistic.
func (l *Log) ClearAll(ctx context.Context) error {
	l.mu.Lock()
	err := l.backend.Delete(ctx, storage.ActivityKey, storage.UserStatsKey)
	l.mu.Unlock()

	if err != nil {
		l.metrics.StorageError("clear_all")
		l.logger.Error().Err(err).Msg("clear activity log failed")
		return fmt.Errorf("%w: clear all: %w", ErrStorage, err)
	}
	l.logger.Info().Msg("activity log cleared")
	l.subs.publish(Notification{Kind: KindCleared})
	return nil
}

func (l *Log) filter(ctx context.Context, keep func(model.ActivityEvent) bool) []model.ActivityEvent {
	l.mu.Lock()
	events := l.readEvents(ctx)
	l.mu.Unlock()

	out := make([]model.ActivityEvent, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// bound sorts newest-first and drops everything past capacity.
func (l *Log) bound(events []model.ActivityEvent) ([]model.ActivityEvent, int) {
	slices.SortStableFunc(events, func(a, b model.ActivityEvent) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		default:
			return 0
		}
	})
	if len(events) <= l.capacity {
		return events, 0
	}
	evicted := len(events) - l.capacity
	return events[:l.capacity], evicted
}

// load reads both blobs for a read-modify-write. Backend errors abort
// the mutation; undecodable blobs still read as empty.
func (l *Log) load(ctx context.Context, op string) ([]model.ActivityEvent, aggregation.StatsTable, error) {
	events, err := l.loadEvents(ctx)
	if err != nil {
		return nil, nil, l.storageFailed(op, err)
	}
	stats, err := l.loadStats(ctx)
	if err != nil {
		return nil, nil, l.storageFailed(op, err)
	}
	return events, stats, nil
}

// readEvents serves caller-facing reads and degrades to empty.
func (l *Log) readEvents(ctx context.Context) []model.ActivityEvent {
	events, err := l.loadEvents(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("activity log unavailable, treating as empty")
		return []model.ActivityEvent{}
	}
	return events
}

func (l *Log) readStats(ctx context.Context) aggregation.StatsTable {
	stats, err := l.loadStats(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("user stats unavailable, treating as empty")
		return aggregation.StatsTable{}
	}
	return stats
}

func (l *Log) loadEvents(ctx context.Context) ([]model.ActivityEvent, error) {
	raw, ok, err := l.backend.Get(ctx, storage.ActivityKey)
	if err != nil {
		l.metrics.StorageError("read_events")
		return nil, fmt.Errorf("read events: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []model.ActivityEvent{}, nil
	}

	var events []model.ActivityEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		l.metrics.StorageError("decode_events")
		l.logger.Warn().Err(err).Msg("activity log corrupted, treating as empty")
		return []model.ActivityEvent{}, nil
	}
	if events == nil {
		events = []model.ActivityEvent{}
	}
	return events, nil
}

func (l *Log) loadStats(ctx context.Context) (aggregation.StatsTable, error) {
	raw, ok, err := l.backend.Get(ctx, storage.UserStatsKey)
	if err != nil {
		l.metrics.StorageError("read_stats")
		return nil, fmt.Errorf("read stats: %w", err)
	}
	if !ok || len(raw) == 0 {
		return aggregation.StatsTable{}, nil
	}

	stats := aggregation.StatsTable{}
	if err := json.Unmarshal(raw, &stats); err != nil {
		l.metrics.StorageError("decode_stats")
		l.logger.Warn().Err(err).Msg("user stats corrupted, treating as empty")
		return aggregation.StatsTable{}, nil
	}
	return stats, nil
}

func (l *Log) write(ctx context.Context, op string, events []model.ActivityEvent, stats aggregation.StatsTable) error {
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return l.storageFailed(op, fmt.Errorf("marshal events: %w", err))
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return l.storageFailed(op, fmt.Errorf("marshal stats: %w", err))
	}

	err = l.backend.SetMulti(ctx, map[string][]byte{
		storage.ActivityKey:  eventsJSON,
		storage.UserStatsKey: statsJSON,
	})
	if err != nil {
		return l.storageFailed(op, err)
	}
	return nil
}

func (l *Log) storageFailed(op string, err error) error {
	l.metrics.StorageError(op)
	l.logger.Error().Err(err).Str("op", op).Msg("activity log update failed")
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
