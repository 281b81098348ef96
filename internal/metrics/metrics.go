// Package metrics exposes Prometheus collectors for the activity core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives counters from the activity log and the archive.
// A nil *Prometheus is a valid no-op Recorder.
type Recorder interface {
	EventAppended(environmentID string)
	EventsEvicted(n int)
	StorageError(op string)
	ArchiveFlushed(n int, err error)
}

// Prometheus implements Recorder with counters on its own registry.
type Prometheus struct {
	registry      *prometheus.Registry
	appended      *prometheus.CounterVec
	evicted       prometheus.Counter
	storageErrors *prometheus.CounterVec
	archived      *prometheus.CounterVec
}

// NewPrometheus creates and registers the collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		appended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_events_appended_total",
				Help: "Device activity events appended to the log.",
			},
			[]string{"environment"},
		),
		evicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "activity_events_evicted_total",
				Help: "Events dropped by the capacity bound.",
			},
		),
		storageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_storage_errors_total",
				Help: "Storage backend failures by operation.",
			},
			[]string{"op"},
		),
		archived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_archive_events_total",
				Help: "Events flushed to the archive by result.",
			},
			[]string{"result"},
		),
	}
	p.registry.MustRegister(p.appended, p.evicted, p.storageErrors, p.archived)
	return p
}

// Registry returns the registry to serve from /metrics.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) EventAppended(environmentID string) {
	if p == nil {
		return
	}
	p.appended.WithLabelValues(environmentID).Inc()
}

func (p *Prometheus) EventsEvicted(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.evicted.Add(float64(n))
}

func (p *Prometheus) StorageError(op string) {
	if p == nil {
		return
	}
	p.storageErrors.WithLabelValues(op).Inc()
}

func (p *Prometheus) ArchiveFlushed(n int, err error) {
	if p == nil || n <= 0 {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.archived.WithLabelValues(result).Add(float64(n))
}

// Nop discards everything.
type Nop struct{}

func (Nop) EventAppended(string) {}
func (Nop) EventsEvicted(int) {}
func (Nop) StorageError(string) {}
func (Nop) ArchiveFlushed(int, error) {}
