package activity

import (
	"context"
	"time"

	"device-activity-service/internal/aggregation"
	"device-activity-service/internal/model"
)

// Export returns the events and statistics of environmentID, or of every
// environment when it is empty.
func (l *Log) Export(ctx context.Context, environmentID string) model.ExportBundle {
	bundle := model.ExportBundle{
		Activities: l.List(ctx, environmentID),
		UserStats:  l.UserStats(ctx, environmentID),
		ExportDate: l.now().UTC().Format(time.RFC3339Nano),
	}
	if environmentID != "" {
		env := environmentID
		bundle.EnvironmentID = &env
	}
	return bundle
}

// Import merges bundle into the log. Events are deduplicated by id, the
// merged list is re-sorted and re-bounded, and statistics are merged per
// key without double counting. Importing the same bundle again is a no-op.
//
// Per-device counters take the larger of the two sides, so a bundle whose
// events are disjoint from the local ones for the same user and device
// undercounts that device.
func (l *Log) Import(ctx context.Context, bundle model.ExportBundle) (model.ImportResult, error) {
	result := model.ImportResult{
		Received: len(bundle.Activities),
		Stats:    len(bundle.UserStats),
	}

	l.mu.Lock()
	events, stats, err := l.load(ctx, "import")
	if err != nil {
		l.mu.Unlock()
		return model.ImportResult{}, err
	}

	seen := make(map[string]struct{}, len(events)+len(bundle.Activities))
	merged := make([]model.ActivityEvent, 0, len(events)+len(bundle.Activities))
	for _, e := range events {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range bundle.Activities {
		if e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
		result.Added++
	}

	merged, evicted := l.bound(merged)
	result.Evicted = evicted
	stats.Merge(aggregation.StatsTable(bundle.UserStats))

	err = l.write(ctx, "import", merged, stats)
	l.mu.Unlock()

	if err != nil {
		return model.ImportResult{}, err
	}

	l.metrics.EventsEvicted(evicted)
	l.logger.Info().
		Int("received", result.Received).
		Int("added", result.Added).
		Int("evicted", result.Evicted).
		Msg("activity import merged")
	l.subs.publish(Notification{Kind: KindImported})

	return result, nil
}
