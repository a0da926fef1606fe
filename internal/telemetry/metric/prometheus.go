// Package metric provides Prometheus metrics for the placement, journal
// and mqtt services.
//
// It exposes metrics in Prometheus format for monitoring cluster health,
// segment lifecycle, and MQTT delivery pipelines.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "robustmq"

// Registry holds every metric RobustMQ's services publish. Fields are the
// real client_golang types, following the direct-field pattern the storage
// layer's Badger engine uses rather than a hand-rolled metric interface.
type Registry struct {
	registry *prometheus.Registry

	// Cluster / Raft metrics.
	ClusterMembers        prometheus.Gauge
	ClusterLeaderChanges  prometheus.Counter
	ShardsUnassigned      prometheus.Gauge
	ShardsUnderReplicated prometheus.Gauge
	RaftApplyDuration     *prometheus.HistogramVec

	// Journal segment metrics.
	SegmentsActive  *prometheus.GaugeVec
	SegmentRolls    prometheus.Counter
	SegmentGCBytes  prometheus.Counter
	SegmentWriteLag *prometheus.HistogramVec

	// MQTT delivery metrics.
	MqttAckWaitDepth    prometheus.Gauge
	MqttQoSPublishTotal *prometheus.CounterVec
	MqttPushThreads     prometheus.Gauge

	// RPC pool metrics.
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ForwardRetries  prometheus.Counter
}

// NewRegistry creates a Registry bound to its own prometheus.Registry, so
// multiple registries (e.g. one per test) can coexist without a duplicate
// registration panic against prometheus.DefaultRegisterer.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		ClusterMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cluster_members", Help: "Current raft voter count.",
		}),
		ClusterLeaderChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cluster_leader_changes_total", Help: "Total observed leadership changes.",
		}),
		ShardsUnassigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "shards_unassigned", Help: "Journal shards with no owning node.",
		}),
		ShardsUnderReplicated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "shards_under_replicated", Help: "Journal shards below their replication factor.",
		}),
		RaftApplyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "raft_apply_duration_seconds", Help: "Latency of raft.Apply by log entry type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entry_type"}),
		SegmentsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "segments_active", Help: "Segment count per lifecycle status.",
		}, []string{"status"}),
		SegmentRolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "segment_rolls_total", Help: "Total segment rotations (Write to PrepareSealUp).",
		}),
		SegmentGCBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "segment_gc_bytes_total", Help: "Bytes reclaimed from sealed segments.",
		}),
		SegmentWriteLag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "segment_write_lag_seconds", Help: "Time between append and durable flush.",
			Buckets: prometheus.DefBuckets,
		}, []string{"shard"}),
		MqttAckWaitDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "mqtt_ack_wait_depth", Help: "In-flight QoS>=1 publishes awaiting a terminal ack.",
		}),
		MqttQoSPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "mqtt_qos_publish_total", Help: "Publishes delivered by QoS level.",
		}, []string{"qos"}),
		MqttPushThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "mqtt_push_threads", Help: "Active exclusive-subscription push threads.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rpc_requests_total", Help: "RPC calls by service, interface and outcome.",
		}, []string{"service", "interface", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "rpc_request_duration_seconds", Help: "RPC call latency by service and interface.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "interface"}),
		ForwardRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rpc_forward_retries_total", Help: "Retries triggered by a forwardable (non-leader) response.",
		}),
	}

	reg.MustRegister(
		r.ClusterMembers, r.ClusterLeaderChanges, r.ShardsUnassigned, r.ShardsUnderReplicated,
		r.RaftApplyDuration, r.SegmentsActive, r.SegmentRolls, r.SegmentGCBytes, r.SegmentWriteLag,
		r.MqttAckWaitDepth, r.MqttQoSPublishTotal, r.MqttPushThreads,
		r.RequestsTotal, r.RequestDuration, r.ForwardRetries,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return r
}

// Handler returns the HTTP handler serving this registry's metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Register adds an additional prometheus.Collector (such as a Collector
// pulling dynamic stats) to this registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide Registry, created on first use. Services
// construct their own Registry where injection is practical (tests,
// multiple instances in one process); Global exists for the rare call site
// that has no config-threaded access to one, mirroring the logger
// package's own global/default split.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns the HTTP handler for the global registry's /metrics
// endpoint.
func Handler() http.Handler {
	return Global().Handler()
}
