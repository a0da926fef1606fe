// Package metric provides Prometheus metrics for the placement, journal
// and mqtt services.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry of real client_golang metrics and HTTP handler
//   - collector.go: A pull-based Collector for scrape-time stats
//
// Metrics include:
//
//   - Cluster membership and raft apply latency
//   - Journal segment lifecycle counts and write lag
//   - MQTT ack-wait depth and QoS delivery counts
//   - RPC request rates and forward-retry counts
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
