package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LifecycleMetrics provides observability for instance lifecycle workflows.
//
// Implementations can collect metrics about creations, deletions, rollbacks
// and the live instance population. This interface is optional - if not
// provided to the orchestrator, a no-op implementation is used.
//
// Example usage:
//
//	// With metrics enabled
//	orchestrator := lifecycle.New(lifecycle.Options{Metrics: metrics.NewLifecycleMetrics()})
//
//	// Without metrics (no-op)
//	orchestrator := lifecycle.New(lifecycle.Options{})
type LifecycleMetrics interface {
	// RecordCreate records a finished create workflow with its duration
	// and outcome. Duration covers the full workflow including detached
	// provisioning.
	RecordCreate(duration time.Duration, err error)

	// RecordDelete records a finished delete workflow with its duration
	// and outcome.
	RecordDelete(duration time.Duration, err error)

	// RecordRollback increments the counter of provisioning failures that
	// ended in a directory rollback.
	RecordRollback()

	// SetRegisteredInstances updates the live instance gauge.
	SetRegisteredInstances(count int)

	// SetReservedPorts updates the reserved ports gauge.
	SetReservedPorts(count int)
}

// lifecycleMetrics is the Prometheus implementation of LifecycleMetrics.
type lifecycleMetrics struct {
	createsTotal        *prometheus.CounterVec
	createDuration      prometheus.Histogram
	deletesTotal        *prometheus.CounterVec
	deleteDuration      prometheus.Histogram
	rollbacksTotal      prometheus.Counter
	registeredInstances prometheus.Gauge
	reservedPorts       prometheus.Gauge
}

// NewLifecycleMetrics creates a new Prometheus-backed LifecycleMetrics
// instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewLifecycleMetrics() LifecycleMetrics {
	if !IsEnabled() {
		return &noopLifecycleMetrics{}
	}

	reg := GetRegistry()

	durationBuckets := []float64{
		0.01, // 10ms
		0.05, // 50ms
		0.1,  // 100ms
		0.5,  // 500ms
		1.0,  // 1s
		5.0,  // 5s
		15.0, // 15s
		60.0, // 1m
	}

	return &lifecycleMetrics{
		createsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lodestone_instance_creates_total",
				Help: "Total number of instance create workflows by status",
			},
			[]string{"status"},
		),
		createDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lodestone_instance_create_duration_seconds",
				Help:    "Duration of instance create workflows in seconds",
				Buckets: durationBuckets,
			},
		),
		deletesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lodestone_instance_deletes_total",
				Help: "Total number of instance delete workflows by status",
			},
			[]string{"status"},
		),
		deleteDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lodestone_instance_delete_duration_seconds",
				Help:    "Duration of instance delete workflows in seconds",
				Buckets: durationBuckets,
			},
		),
		rollbacksTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "lodestone_provisioning_rollbacks_total",
				Help: "Total number of provisioning failures rolled back",
			},
		),
		registeredInstances: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "lodestone_instances_registered",
				Help: "Current number of registered instances",
			},
		),
		reservedPorts: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "lodestone_ports_reserved",
				Help: "Current number of reserved ports",
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *lifecycleMetrics) RecordCreate(duration time.Duration, err error) {
	m.createsTotal.WithLabelValues(status(err)).Inc()
	m.createDuration.Observe(duration.Seconds())
}

func (m *lifecycleMetrics) RecordDelete(duration time.Duration, err error) {
	m.deletesTotal.WithLabelValues(status(err)).Inc()
	m.deleteDuration.Observe(duration.Seconds())
}

func (m *lifecycleMetrics) RecordRollback() {
	m.rollbacksTotal.Inc()
}

func (m *lifecycleMetrics) SetRegisteredInstances(count int) {
	m.registeredInstances.Set(float64(count))
}

func (m *lifecycleMetrics) SetReservedPorts(count int) {
	m.reservedPorts.Set(float64(count))
}

// noopLifecycleMetrics is a no-op implementation of LifecycleMetrics.
type noopLifecycleMetrics struct{}

func (noopLifecycleMetrics) RecordCreate(duration time.Duration, err error) {}
func (noopLifecycleMetrics) RecordDelete(duration time.Duration, err error) {}
func (noopLifecycleMetrics) RecordRollback()                                {}
func (noopLifecycleMetrics) SetRegisteredInstances(count int)               {}
func (noopLifecycleMetrics) SetReservedPorts(count int)                     {}

// NewNoopLifecycleMetrics returns the no-op implementation regardless of
// whether the registry is initialized. Useful in tests.
func NewNoopLifecycleMetrics() LifecycleMetrics {
	return &noopLifecycleMetrics{}
}
