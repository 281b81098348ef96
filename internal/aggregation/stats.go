// Package aggregation derives usage statistics and chart series from the
// device activity log.
package aggregation

import (
	"strings"

	"device-activity-service/internal/model"
)

// StatsTable maps "{environmentId}_{userId}" to that user's running stats.
type StatsTable map[string]*model.UserActivityStat

// StatKey builds the table key for a user in an environment.
func StatKey(environmentID, userID string) string {
	if userID == "" {
		userID = model.UnknownUserID
	}
	return environmentID + "_" + userID
}

// OnEvent folds one appended event into the table, creating the user and
// device entries on first sight.
func (t StatsTable) OnEvent(e model.ActivityEvent) {
	key := StatKey(e.EnvironmentID, e.ActorID())

	stat, ok := t[key]
	if !ok || stat == nil {
		stat = &model.UserActivityStat{
			UserID:        e.ActorID(),
			UserName:      e.ActorName(),
			EnvironmentID: e.EnvironmentID,
			Devices:       make(map[string]*model.DeviceAccessStat),
			FirstActivity: e.Timestamp,
			LastActivity:  e.Timestamp,
		}
		t[key] = stat
	}
	if stat.Devices == nil {
		stat.Devices = make(map[string]*model.DeviceAccessStat)
	}

	device, ok := stat.Devices[e.DeviceID]
	if !ok || device == nil {
		device = &model.DeviceAccessStat{DeviceName: e.DeviceName}
		stat.Devices[e.DeviceID] = device
	}

	if e.State {
		stat.TotalActivations++
		device.Activations++
	} else {
		stat.TotalDeactivations++
		device.Deactivations++
	}
	device.LastAccess = e.Timestamp

	if e.Timestamp > stat.LastActivity {
		stat.LastActivity = e.Timestamp
	}
	if stat.FirstActivity == 0 || e.Timestamp < stat.FirstActivity {
		stat.FirstActivity = e.Timestamp
	}
}

// Merge folds other into t. Per-device counters take the larger of the two
// values and user totals are recomputed from the devices, so merging the
// same table twice changes nothing.
func (t StatsTable) Merge(other StatsTable) {
	for key, in := range other {
		if in == nil {
			continue
		}
		cur, ok := t[key]
		if !ok || cur == nil {
			cp := in.Clone()
			recomputeTotals(cp)
			t[key] = cp
			continue
		}
		mergeStat(cur, in)
	}
}

func mergeStat(cur, in *model.UserActivityStat) {
	if cur.Devices == nil {
		cur.Devices = make(map[string]*model.DeviceAccessStat)
	}
	if cur.UserName == "" {
		cur.UserName = in.UserName
	}

	for id, d := range in.Devices {
		if d == nil {
			continue
		}
		existing, ok := cur.Devices[id]
		if !ok || existing == nil {
			dc := *d
			cur.Devices[id] = &dc
			continue
		}
		existing.Activations = max(existing.Activations, d.Activations)
		existing.Deactivations = max(existing.Deactivations, d.Deactivations)
		existing.LastAccess = max(existing.LastAccess, d.LastAccess)
		if existing.DeviceName == "" {
			existing.DeviceName = d.DeviceName
		}
	}

	cur.LastActivity = max(cur.LastActivity, in.LastActivity)
	if in.FirstActivity != 0 && (cur.FirstActivity == 0 || in.FirstActivity < cur.FirstActivity) {
		cur.FirstActivity = in.FirstActivity
	}
	recomputeTotals(cur)
}

func recomputeTotals(s *model.UserActivityStat) {
	var on, off uint64
	for _, d := range s.Devices {
		if d == nil {
			continue
		}
		on += d.Activations
		off += d.Deactivations
	}
	s.TotalActivations = on
	s.TotalDeactivations = off
}

// Scoped returns the entries belonging to environmentID. An empty id
// returns every entry.
func (t StatsTable) Scoped(environmentID string) StatsTable {
	out := make(StatsTable, len(t))
	for key, stat := range t {
		if stat == nil {
			continue
		}
		if environmentID == "" || belongsTo(key, stat, environmentID) {
			out[key] = stat
		}
	}
	return out
}

// Without returns the entries that do not belong to environmentID.
func (t StatsTable) Without(environmentID string) StatsTable {
	out := make(StatsTable, len(t))
	for key, stat := range t {
		if stat == nil {
			continue
		}
		if !belongsTo(key, stat, environmentID) {
			out[key] = stat
		}
	}
	return out
}

// belongsTo prefers the stored environment id; the key prefix is only
// consulted for entries written without one.
func belongsTo(key string, stat *model.UserActivityStat, environmentID string) bool {
	if stat.EnvironmentID != "" {
		return stat.EnvironmentID == environmentID
	}
	return strings.HasPrefix(key, environmentID+"_")
}
