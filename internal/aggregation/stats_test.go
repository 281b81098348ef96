package aggregation

import (
	"testing"

	"device-activity-service/internal/model"

	"github.com/stretchr/testify/require"
)

func ev(env, device, user string, state bool, ts int64) model.ActivityEvent {
	return model.ActivityEvent{
		ID:            device + user,
		DeviceID:      device,
		DeviceName:    "Device " + device,
		State:         state,
		UserID:        user,
		EnvironmentID: env,
		Timestamp:     ts,
	}
}

func TestStatKey(t *testing.T) {
	require.Equal(t, "home_alice", StatKey("home", "alice"))
	require.Equal(t, "home_"+model.UnknownUserID, StatKey("home", ""))
}

func TestOnEvent_CreatesAndCounts(t *testing.T) {
	table := StatsTable{}

	table.OnEvent(ev("home", "lamp", "alice", true, 100))
	table.OnEvent(ev("home", "lamp", "alice", false, 300))
	table.OnEvent(ev("home", "fan", "alice", true, 200))

	stat := table["home_alice"]
	require.NotNil(t, stat)
	require.Equal(t, "alice", stat.UserID)
	require.Equal(t, "home", stat.EnvironmentID)
	require.Equal(t, uint64(2), stat.TotalActivations)
	require.Equal(t, uint64(1), stat.TotalDeactivations)
	require.Equal(t, int64(100), stat.FirstActivity)
	require.Equal(t, int64(300), stat.LastActivity)

	require.Equal(t, &model.DeviceAccessStat{DeviceName: "Device lamp", Activations: 1, Deactivations: 1, LastAccess: 300}, stat.Devices["lamp"])
	require.Equal(t, &model.DeviceAccessStat{DeviceName: "Device fan", Activations: 1, LastAccess: 200}, stat.Devices["fan"])
}

func TestOnEvent_RepairsMissingDevicesMap(t *testing.T) {
	table := StatsTable{"home_bob": {UserID: "bob", EnvironmentID: "home"}}

	require.NotPanics(t, func() {
		table.OnEvent(ev("home", "lamp", "bob", true, 10))
	})
	require.Equal(t, uint64(1), table["home_bob"].Devices["lamp"].Activations)
}

func TestMerge_IdempotentAndConsistent(t *testing.T) {
	local := StatsTable{}
	local.OnEvent(ev("home", "lamp", "alice", true, 100))
	local.OnEvent(ev("home", "lamp", "alice", true, 150))

	incoming := StatsTable{}
	incoming.OnEvent(ev("home", "lamp", "alice", false, 50))
	incoming.OnEvent(ev("home", "fan", "alice", true, 400))
	incoming.OnEvent(ev("office", "tv", "bob", true, 500))

	local.Merge(incoming)
	once := StatsTable{}
	once.Merge(local)
	local.Merge(incoming)

	require.Equal(t, once, local)

	alice := local["home_alice"]
	require.Equal(t, uint64(2), alice.Devices["lamp"].Activations)
	require.Equal(t, uint64(1), alice.Devices["lamp"].Deactivations)
	require.Equal(t, uint64(1), alice.Devices["fan"].Activations)
	require.Equal(t, uint64(3), alice.TotalActivations)
	require.Equal(t, uint64(1), alice.TotalDeactivations)
	require.Equal(t, int64(50), alice.FirstActivity)
	require.Equal(t, int64(400), alice.LastActivity)
	require.Contains(t, local, "office_bob")

	// Merged entries are copies, not shared pointers.
	incoming["office_bob"].TotalActivations = 99
	require.Equal(t, uint64(1), local["office_bob"].TotalActivations)
}

func TestScopedAndWithout(t *testing.T) {
	table := StatsTable{}
	table.OnEvent(ev("e1", "lamp", "alice", true, 1))
	table.OnEvent(ev("e1_x", "lamp", "bob", true, 2))
	table["legacy_carol"] = &model.UserActivityStat{UserID: "carol"}

	require.Len(t, table.Scoped(""), 3)
	require.Len(t, table.Scoped("e1"), 1)
	require.Len(t, table.Scoped("legacy"), 1)

	rest := table.Without("e1")
	require.Len(t, rest, 2)
	require.NotContains(t, rest, "e1_alice")
}

func TestParseTimeRange(t *testing.T) {
	r, ok := ParseTimeRange("7d")
	require.True(t, ok)
	require.Equal(t, 28, r.Buckets())

	r, ok = ParseTimeRange("90d")
	require.False(t, ok)
	require.Equal(t, DefaultTimeRange, r.Name)
	require.Equal(t, 24, r.Buckets())

	require.Len(t, TimeRanges(), 5)
}
