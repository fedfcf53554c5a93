// Package metrics provides Prometheus metrics for the heat-pump bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all Prometheus metrics for the service.
type Registry struct {
	// Connection metrics
	Connected      prometheus.Gauge
	ConnectsTotal  prometheus.Counter
	ConnectErrors  prometheus.Counter
	ConnectLatency prometheus.Histogram

	// Poll cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	FieldsRead    prometheus.Counter
	FieldsOmitted prometheus.Counter

	// Write metrics
	WritesTotal    prometheus.Counter
	WritesFailed   prometheus.Counter
	WritesRejected prometheus.Counter

	// Snapshot metrics
	SnapshotGeneration prometheus.Gauge
	SnapshotFields     prometheus.Gauge

	// MQTT metrics
	MQTTMessagesPublished prometheus.Counter
	MQTTMessagesFailed    prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered
// against the default Prometheus registerer.
func NewRegistry() *Registry {
	return &Registry{
		Connected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "bridge",
			Subsystem: "modbus",
			Name:      "connected",
			Help:      "1 while the Modbus connection is established",
		}),
		ConnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "modbus",
			Name:      "connects_total",
			Help:      "Total number of connection attempts",
		}),
		ConnectErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "modbus",
			Name:      "connect_errors_total",
			Help:      "Total number of failed connection attempts",
		}),
		ConnectLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bridge",
			Subsystem: "modbus",
			Name:      "connect_latency_seconds",
			Help:      "Connection establishment latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "polling",
			Name:      "cycles_total",
			Help:      "Total number of poll cycles by outcome",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bridge",
			Subsystem: "polling",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FieldsRead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "polling",
			Name:      "fields_read_total",
			Help:      "Total number of fields decoded successfully",
		}),
		FieldsOmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "polling",
			Name:      "fields_omitted_total",
			Help:      "Total number of fields omitted from a cycle after a read or decode failure",
		}),

		WritesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "write",
			Name:      "writes_total",
			Help:      "Total number of register writes attempted",
		}),
		WritesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "write",
			Name:      "writes_failed_total",
			Help:      "Total number of register writes that failed at the transport",
		}),
		WritesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "write",
			Name:      "writes_rejected_total",
			Help:      "Total number of writes rejected by read-only mode",
		}),

		SnapshotGeneration: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "bridge",
			Subsystem: "snapshot",
			Name:      "generation",
			Help:      "Generation counter of the current snapshot",
		}),
		SnapshotFields: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "bridge",
			Subsystem: "snapshot",
			Name:      "fields",
			Help:      "Number of fields in the current snapshot",
		}),

		MQTTMessagesPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "mqtt",
			Name:      "messages_published_total",
			Help:      "Total number of MQTT messages published",
		}),
		MQTTMessagesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bridge",
			Subsystem: "mqtt",
			Name:      "messages_failed_total",
			Help:      "Total number of failed MQTT publishes",
		}),
	}
}

// RecordConnect records a connection attempt.
func (r *Registry) RecordConnect(success bool, latency float64) {
	r.ConnectsTotal.Inc()
	if !success {
		r.ConnectErrors.Inc()
	}
	r.ConnectLatency.Observe(latency)
}

// SetConnected updates the connected gauge.
func (r *Registry) SetConnected(connected bool) {
	if connected {
		r.Connected.Set(1)
	} else {
		r.Connected.Set(0)
	}
}

// RecordCycle records a completed poll cycle.
func (r *Registry) RecordCycle(status string, duration float64, read, omitted int) {
	r.CyclesTotal.WithLabelValues(status).Inc()
	r.CycleDuration.Observe(duration)
	r.FieldsRead.Add(float64(read))
	r.FieldsOmitted.Add(float64(omitted))
}

// RecordWrite records a register write attempt.
func (r *Registry) RecordWrite(success bool) {
	r.WritesTotal.Inc()
	if !success {
		r.WritesFailed.Inc()
	}
}

// RecordWriteRejected records a write refused by read-only mode.
func (r *Registry) RecordWriteRejected() {
	r.WritesRejected.Inc()
}

// UpdateSnapshot updates the snapshot gauges.
func (r *Registry) UpdateSnapshot(generation uint64, fields int) {
	r.SnapshotGeneration.Set(float64(generation))
	r.SnapshotFields.Set(float64(fields))
}

// RecordMQTTPublish records an MQTT publish outcome.
func (r *Registry) RecordMQTTPublish(success bool) {
	if success {
		r.MQTTMessagesPublished.Inc()
	} else {
		r.MQTTMessagesFailed.Inc()
	}
}
