package model

import (
	"time"
)

const (
	// UnknownUserID keys statistics for events logged without an actor.
	UnknownUserID = "unknown"
	// UnknownUserName is the display name used when the actor is absent.
	UnknownUserName = "Unknown user"
)

// DeviceActivity is the input for logging one device state change.
type DeviceActivity struct {
	DeviceID      string `json:"deviceId" validate:"required"`
	DeviceName    string `json:"deviceName" validate:"required"`
	RoomID        string `json:"roomId"`
	RoomName      string `json:"roomName"`
	State         *bool  `json:"state" validate:"required"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	EnvironmentID string `json:"environmentId"`
}

// ActivityEvent is one recorded device state transition. Names are
// snapshots taken at log time and are never re-resolved.
type ActivityEvent struct {
	ID            string `json:"id"`
	DeviceID      string `json:"deviceId"`
	DeviceName    string `json:"deviceName"`
	RoomID        string `json:"roomId"`
	RoomName      string `json:"roomName"`
	State         bool   `json:"state"`
	UserID        string `json:"userId,omitempty"`
	UserName      string `json:"userName,omitempty"`
	EnvironmentID string `json:"environmentId"`
	Timestamp     int64  `json:"timestamp"`
	Date          string `json:"date"`
}

// Time returns the event timestamp as a time.Time.
func (e ActivityEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// ActorID returns the user id, or UnknownUserID when the event has no actor.
func (e ActivityEvent) ActorID() string {
	if e.UserID == "" {
		return UnknownUserID
	}
	return e.UserID
}

// ActorName returns the user name snapshot, falling back to UnknownUserName.
func (e ActivityEvent) ActorName() string {
	if e.UserName == "" {
		if e.UserID == "" {
			return UnknownUserName
		}
		return e.UserID
	}
	return e.UserName
}

// DeviceAccessStat counts one user's use of one device.
type DeviceAccessStat struct {
	DeviceName    string `json:"deviceName"`
	Activations   uint64 `json:"activations"`
	Deactivations uint64 `json:"deactivations"`
	LastAccess    int64  `json:"lastAccess"`
}

// UserActivityStat holds running counters for one user in one environment.
type UserActivityStat struct {
	UserID             string                       `json:"userId"`
	UserName           string                       `json:"userName"`
	EnvironmentID      string                       `json:"environmentId"`
	TotalActivations   uint64                       `json:"totalActivations"`
	TotalDeactivations uint64                       `json:"totalDeactivations"`
	Devices            map[string]*DeviceAccessStat `json:"devices"`
	FirstActivity      int64                        `json:"firstActivity"`
	LastActivity       int64                        `json:"lastActivity"`
}

// Clone returns a deep copy of the stat.
func (s *UserActivityStat) Clone() *UserActivityStat {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Devices = make(map[string]*DeviceAccessStat, len(s.Devices))
	for id, d := range s.Devices {
		if d == nil {
			continue
		}
		dc := *d
		cp.Devices[id] = &dc
	}
	return &cp
}

// ExportBundle is the interchange format for export and import.
type ExportBundle struct {
	Activities    []ActivityEvent              `json:"activities"`
	UserStats     map[string]*UserActivityStat `json:"userStats"`
	ExportDate    string                       `json:"exportDate"`
	EnvironmentID *string                      `json:"environmentId"`
}

// ImportResult reports what an import changed.
type ImportResult struct {
	Received int `json:"received"`
	Added    int `json:"added"`
	Evicted  int `json:"evicted"`
	Stats    int `json:"stats"`
}
