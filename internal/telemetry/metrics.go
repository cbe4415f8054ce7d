// Package telemetry holds the Prometheus metrics exported by kerneld's debug
// HTTP surface.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the kernel exports.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec

	HandlesActive  prometheus.Gauge
	HandlesCreated prometheus.Counter
	MappingsActive prometheus.Gauge

	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics registers and returns the kernel's metric collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kernel_operations_total",
			Help: "Total Core operations processed, by operation name and result.",
		}, []string{"operation", "result"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kernel_operation_duration_seconds",
			Help:    "Core operation latency in seconds, by operation name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kernel_operation_errors_total",
			Help: "Core operations that returned a non-OK result, by operation and result.",
		}, []string{"operation", "result"}),
		HandlesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kernel_handles_active",
			Help: "Live handles currently in the handle table.",
		}),
		HandlesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kernel_handles_created_total",
			Help: "Handles inserted by Create* operations.",
		}),
		MappingsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kernel_mappings_active",
			Help: "Live shared-buffer mappings.",
		}),
		Uptime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kernel_uptime_seconds",
			Help: "Seconds since kerneld started.",
		}),
	}
	return m
}

// RecordOperation records one completed Core operation.
func (m *Metrics) RecordOperation(operation, result string, duration time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if result != "OK" {
		m.OperationErrors.WithLabelValues(operation, result).Inc()
	}
}

// RefreshUptime updates the Uptime gauge; call periodically from a ticker.
func (m *Metrics) RefreshUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
