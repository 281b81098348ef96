package model

// UsageCount splits a count into activations and deactivations.
type UsageCount struct {
	Activations   uint64 `json:"activations"`
	Deactivations uint64 `json:"deactivations"`
}

// UserAccess is one user's breakdown inside a DeviceUsageSummary.
type UserAccess struct {
	UserName      string `json:"userName"`
	Activations   uint64 `json:"activations"`
	Deactivations uint64 `json:"deactivations"`
	LastAccess    int64  `json:"lastAccess"`
}

// DeviceUsageSummary is derived from the raw log on every request.
type DeviceUsageSummary struct {
	DeviceID           string                `json:"deviceId"`
	EnvironmentID      string                `json:"environmentId,omitempty"`
	TotalActivations   uint64                `json:"totalActivations"`
	TotalDeactivations uint64                `json:"totalDeactivations"`
	TotalAccesses      uint64                `json:"totalAccesses"`
	UserAccess         map[string]UserAccess `json:"userAccess"`
	RecentActivity     []ActivityEvent       `json:"recentActivity"`
	DailyUsage         map[string]UsageCount `json:"dailyUsage"`
	HourlyUsage        map[int]UsageCount    `json:"hourlyUsage"`
}

// TimeBucket is one chart interval. Start and End are unix milliseconds.
type TimeBucket struct {
	Time     string `json:"time"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Active   uint64 `json:"active"`
	Inactive uint64 `json:"inactive"`
	Total    uint64 `json:"total"`
}

// DeviceActivitySummary ranks a device by how often it was toggled.
type DeviceActivitySummary struct {
	DeviceID     string `json:"deviceId"`
	DeviceName   string `json:"deviceName"`
	RoomName     string `json:"roomName,omitempty"`
	TotalActions uint64 `json:"totalActions"`
	OnActions    uint64 `json:"onActions"`
	OffActions   uint64 `json:"offActions"`
	LastActivity int64  `json:"lastActivity"`
}

// ActivityFilter selects events for listing.
type ActivityFilter struct {
	EnvironmentID string
	DeviceID      string
	UserID        string
	From          *int64
	To            *int64
}

// ChartResponse wraps bucketed chart data with its query parameters.
type ChartResponse struct {
	EnvironmentID string       `json:"environmentId"`
	Range         string       `json:"range"`
	Buckets       []TimeBucket `json:"buckets"`
}
