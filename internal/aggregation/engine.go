package aggregation

import (
	"context"
	"sort"
	"time"

	"device-activity-service/internal/model"
)

const (
	// DefaultRecentActivity caps DeviceUsageSummary.RecentActivity.
	DefaultRecentActivity = 50
	// DefaultTopDevices is the MostActiveDevices limit when none is given.
	DefaultTopDevices = 5
	// topDevicesWindow bounds how many recent events MostActiveDevices scans.
	topDevicesWindow = 1000
)

// EventSource is the read side of the activity log. Listings are
// newest-first.
type EventSource interface {
	List(ctx context.Context, environmentID string) []model.ActivityEvent
	ListByDevice(ctx context.Context, deviceID, environmentID string) []model.ActivityEvent
	UserStats(ctx context.Context, environmentID string) StatsTable
}

// Engine computes derived views. Every call reads the log afresh; nothing
// is cached.
type Engine struct {
	source      EventSource
	loc         *time.Location
	recentLimit int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone used for labels and daily/hourly keys.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithRecentLimit overrides DefaultRecentActivity.
func WithRecentLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.recentLimit = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an Engine reading from source.
func NewEngine(source EventSource, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		loc:         time.Local,
		recentLimit: DefaultRecentActivity,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UserStats returns the per-user table, scoped to environmentID when set.
func (e *Engine) UserStats(ctx context.Context, environmentID string) StatsTable {
	return e.source.UserStats(ctx, environmentID)
}

// DeviceUsage summarizes one device from its raw events.
func (e *Engine) DeviceUsage(ctx context.Context, deviceID, environmentID string) model.DeviceUsageSummary {
	events := e.source.ListByDevice(ctx, deviceID, environmentID)

	summary := model.DeviceUsageSummary{
		DeviceID:      deviceID,
		EnvironmentID: environmentID,
		TotalAccesses: uint64(len(events)),
		UserAccess:    make(map[string]model.UserAccess),
		DailyUsage:    make(map[string]model.UsageCount),
		HourlyUsage:   make(map[int]model.UsageCount),
	}

	recent := min(len(events), e.recentLimit)
	summary.RecentActivity = append(make([]model.ActivityEvent, 0, recent), events[:recent]...)

	for _, ev := range events {
		local := ev.Time().In(e.loc)
		day := local.Format(time.DateOnly)
		hour := local.Hour()

		access, ok := summary.UserAccess[ev.ActorID()]
		if !ok {
			access = model.UserAccess{UserName: ev.ActorName(), LastAccess: ev.Timestamp}
		}
		daily := summary.DailyUsage[day]
		hourly := summary.HourlyUsage[hour]

		if ev.State {
			summary.TotalActivations++
			access.Activations++
			daily.Activations++
			hourly.Activations++
		} else {
			summary.TotalDeactivations++
			access.Deactivations++
			daily.Deactivations++
			hourly.Deactivations++
		}
		access.LastAccess = max(access.LastAccess, ev.Timestamp)

		summary.UserAccess[ev.ActorID()] = access
		summary.DailyUsage[day] = daily
		summary.HourlyUsage[hour] = hourly
	}

	return summary
}

// Bucketize splits the window ending at now into the range's intervals and
// counts activations and deactivations per interval. A zero now uses the
// engine clock. The last interval is closed on the right so an event
// stamped exactly at now is counted.
func (e *Engine) Bucketize(ctx context.Context, environmentID, rangeName string, now time.Time) []model.TimeBucket {
	if now.IsZero() {
		now = e.now()
	}
	tr, _ := ParseTimeRange(rangeName)

	end := now.UnixMilli()
	start := end - tr.Lookback.Milliseconds()
	width := tr.Interval.Milliseconds()
	n := tr.Buckets()

	buckets := make([]model.TimeBucket, n)
	for i := range buckets {
		bs := start + int64(i)*width
		buckets[i] = model.TimeBucket{
			Time:  tr.Label(time.UnixMilli(bs).In(e.loc)),
			Start: bs,
			End:   min(bs+width, end),
		}
	}
	if n == 0 {
		return buckets
	}

	for _, ev := range e.source.List(ctx, environmentID) {
		if ev.Timestamp < start || ev.Timestamp > end {
			continue
		}
		idx := int((ev.Timestamp - start) / width)
		if idx >= n {
			idx = n - 1
		}
		b := &buckets[idx]
		if ev.State {
			b.Active++
		} else {
			b.Inactive++
		}
		b.Total++
	}

	return buckets
}

// MostActiveDevices ranks devices by total toggles over the newest events
// of the environment. Ties go to the most recently used device.
func (e *Engine) MostActiveDevices(ctx context.Context, environmentID string, limit int) []model.DeviceActivitySummary {
	if limit <= 0 {
		limit = DefaultTopDevices
	}

	events := e.source.List(ctx, environmentID)
	if len(events) > topDevicesWindow {
		events = events[:topDevicesWindow]
	}

	byDevice := make(map[string]*model.DeviceActivitySummary)
	for _, ev := range events {
		s, ok := byDevice[ev.DeviceID]
		if !ok {
			s = &model.DeviceActivitySummary{
				DeviceID:     ev.DeviceID,
				DeviceName:   ev.DeviceName,
				RoomName:     ev.RoomName,
				LastActivity: ev.Timestamp,
			}
			byDevice[ev.DeviceID] = s
		}
		s.TotalActions++
		if ev.State {
			s.OnActions++
		} else {
			s.OffActions++
		}
		s.LastActivity = max(s.LastActivity, ev.Timestamp)
	}

	out := make([]model.DeviceActivitySummary, 0, len(byDevice))
	for _, s := range byDevice {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalActions != out[j].TotalActions {
			return out[i].TotalActions > out[j].TotalActions
		}
		if out[i].LastActivity != out[j].LastActivity {
			return out[i].LastActivity > out[j].LastActivity
		}
		return out[i].DeviceID < out[j].DeviceID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
