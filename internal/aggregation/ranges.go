package aggregation

import (
	"time"
)

// DefaultTimeRange is used for unknown range names.
const DefaultTimeRange = "24h"

// TimeRange is a chart window split into fixed-width intervals.
type TimeRange struct {
	Name     string        `json:"name"`
	Lookback time.Duration `json:"lookback"`
	Interval time.Duration `json:"interval"`
	layout   string
}

var timeRanges = []TimeRange{
	{Name: "1h", Lookback: time.Hour, Interval: 5 * time.Minute, layout: "15:04"},
	{Name: "6h", Lookback: 6 * time.Hour, Interval: 30 * time.Minute, layout: "15:04"},
	{Name: "24h", Lookback: 24 * time.Hour, Interval: time.Hour, layout: "15:04"},
	{Name: "7d", Lookback: 7 * 24 * time.Hour, Interval: 6 * time.Hour, layout: "Mon 15h"},
	{Name: "30d", Lookback: 30 * 24 * time.Hour, Interval: 24 * time.Hour, layout: "Jan 2"},
}

// TimeRanges lists the supported ranges from shortest to longest.
func TimeRanges() []TimeRange {
	return append([]TimeRange(nil), timeRanges...)
}

// ParseTimeRange resolves name. Unknown names resolve to the 24h range and
// report ok=false.
func ParseTimeRange(name string) (TimeRange, bool) {
	var fallback TimeRange
	for _, r := range timeRanges {
		if r.Name == name {
			return r, true
		}
		if r.Name == DefaultTimeRange {
			fallback = r
		}
	}
	return fallback, false
}

// Buckets is ceil(Lookback / Interval).
func (r TimeRange) Buckets() int {
	if r.Interval <= 0 {
		return 0
	}
	n := r.Lookback / r.Interval
	if r.Lookback%r.Interval != 0 {
		n++
	}
	return int(n)
}

// Label formats an interval start for display.
func (r TimeRange) Label(t time.Time) string {
	layout := r.layout
	if layout == "" {
		layout = "15:04"
	}
	return t.Format(layout)
}
