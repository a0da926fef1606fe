package placement

import (
	"context"
	"log/slog"
	"time"
)

// HeartbeatConfig tunes the stale-node sweep.
type HeartbeatConfig struct {
	// CheckInterval is how often the sweep runs.
	CheckInterval time.Duration
	// TimeoutSeconds is how long a node may go without a heartbeat before
	// it is unregistered.
	TimeoutSeconds int64
}

// DefaultHeartbeatConfig matches the source's 1s sweep against a 30s
// timeout.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{CheckInterval: time.Second, TimeoutSeconds: 30}
}

// unregisterFunc submits an UnRegisterNode entry through raft; the
// caller supplies this so heartbeat.go never needs to know about
// RaftNode directly.
type unregisterFunc func(clusterName, nodeID string) error

// HeartbeatMonitor periodically sweeps the cache for brokers that have
// stopped sending heartbeats and unregisters them, mirroring the source's
// start_node_heartbeat_check.
type HeartbeatMonitor struct {
	cache      *CacheManager
	config     HeartbeatConfig
	unregister unregisterFunc
	logger     *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHeartbeatMonitor builds a monitor that unregisters stale nodes via
// unregister, which should only be called while holding raft leadership.
func NewHeartbeatMonitor(cache *CacheManager, cfg HeartbeatConfig, unregister unregisterFunc, logger *slog.Logger) *HeartbeatMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Second
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	return &HeartbeatMonitor{
		cache:      cache,
		config:     cfg,
		unregister: unregister,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is canceled or Stop is called.
// isLeader gates the actual unregister calls: only the raft leader may
// submit writes, but every replica can run the ticker harmlessly.
func (m *HeartbeatMonitor) Start(ctx context.Context, isLeader func() bool) {
	go func() {
		defer close(m.doneCh)

		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				if isLeader != nil && !isLeader() {
					continue
				}
				m.sweep()
			}
		}
	}()
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (m *HeartbeatMonitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *HeartbeatMonitor) sweep() {
	stale := m.cache.StaleNodes(m.config.TimeoutSeconds)
	for _, hb := range stale {
		m.logger.Warn("broker node heartbeat timed out, unregistering",
			"cluster_name", hb.ClusterName, "node_id", hb.NodeID, "last_seen", hb.Time)

		if err := m.unregister(hb.ClusterName, hb.NodeID); err != nil {
			m.logger.Error("failed to unregister stale broker node",
				"cluster_name", hb.ClusterName, "node_id", hb.NodeID, "error", err)
		}
	}
}
