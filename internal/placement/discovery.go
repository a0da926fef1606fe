package placement

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/hashicorp/memberlist"
)

// Discovery bootstraps and tracks placement center raft-voter peers over
// gossip. It is strictly an internal PC-to-PC transport: brokers never
// join this gossip ring, they register over RPC instead (see
// cache.go's AddBrokerNode / heartbeat.go).
type Discovery struct {
	config     *memberlist.Config
	memberList *memberlist.Memberlist
	logger     *slog.Logger
	shutdown   atomic.Bool

	clusterID string

	onJoin   func(nodeID, raftAddr string)
	onLeave  func(nodeID string)
	onUpdate func(nodeID string)
}

// DiscoveryConfig configures the peer-discovery gossip ring.
type DiscoveryConfig struct {
	NodeID    string
	ClusterID string
	BindAddr  string
	BindPort  int
	RaftAddr  string
	SeedNodes []string
	Logger    *slog.Logger
}

// NewDiscovery joins or starts the gossip ring described by cfg.
func NewDiscovery(cfg DiscoveryConfig) (*Discovery, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeID
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort

	if cfg.RaftAddr != "" || cfg.ClusterID != "" {
		mlConfig.Delegate = &metadataDelegate{metadata: nodeMetadata{
			RaftAddr:  cfg.RaftAddr,
			ClusterID: cfg.ClusterID,
		}}
	}
	mlConfig.LogOutput = &slogWriter{logger: cfg.Logger}

	d := &Discovery{
		config:    mlConfig,
		logger:    cfg.Logger,
		clusterID: cfg.ClusterID,
	}
	mlConfig.Events = &eventDelegate{discovery: d}

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}
	d.memberList = ml

	if len(cfg.SeedNodes) > 0 {
		n, err := ml.Join(cfg.SeedNodes)
		if err != nil {
			ml.Shutdown()
			return nil, fmt.Errorf("join seed nodes: %w", err)
		}
		cfg.Logger.Info("joined placement center peer ring", "node_id", cfg.NodeID, "seed_nodes", cfg.SeedNodes, "joined_count", n)
	} else {
		cfg.Logger.Info("started peer discovery (bootstrap mode)", "node_id", cfg.NodeID)
	}

	return d, nil
}

// Members returns the live gossip membership list.
func (d *Discovery) Members() []*memberlist.Node {
	if d.memberList == nil {
		return nil
	}
	return d.memberList.Members()
}

// Leave broadcasts a graceful departure from the ring.
func (d *Discovery) Leave() error {
	if d.memberList == nil {
		return nil
	}
	if err := d.memberList.Leave(0); err != nil {
		d.logger.Error("failed to leave peer ring", "error", err)
		return err
	}
	d.logger.Info("left peer ring")
	return nil
}

// Shutdown stops gossip membership tracking.
func (d *Discovery) Shutdown() error {
	if !d.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	if d.memberList == nil {
		return nil
	}
	if err := d.memberList.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	d.logger.Info("peer discovery shutdown complete")
	return nil
}

// OnJoin registers a callback invoked when a peer joins the ring.
func (d *Discovery) OnJoin(fn func(nodeID, raftAddr string)) { d.onJoin = fn }

// OnLeave registers a callback invoked when a peer leaves the ring.
func (d *Discovery) OnLeave(fn func(nodeID string)) { d.onLeave = fn }

// OnUpdate registers a callback invoked when a peer's metadata changes.
func (d *Discovery) OnUpdate(fn func(nodeID string)) { d.onUpdate = fn }

// LocalNode returns this process's own gossip node record.
func (d *Discovery) LocalNode() *memberlist.Node {
	if d.memberList == nil {
		return nil
	}
	return d.memberList.LocalNode()
}

type eventDelegate struct {
	discovery *Discovery
}

func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	gossipAddr := net.JoinHostPort(node.Addr.String(), fmt.Sprintf("%d", node.Port))

	var metadata nodeMetadata
	if len(node.Meta) > 0 {
		if err := json.Unmarshal(node.Meta, &metadata); err != nil {
			e.discovery.logger.Error("failed to parse peer metadata", "node_id", node.Name, "error", err)
			return
		}
	}

	if e.discovery.clusterID != "" && metadata.ClusterID != "" && metadata.ClusterID != e.discovery.clusterID {
		e.discovery.logger.Error("cluster id mismatch - rejecting peer",
			"node_id", node.Name,
			"expected_cluster_id", e.discovery.clusterID,
			"actual_cluster_id", metadata.ClusterID,
			"action", "peer_rejected")
		return
	}

	raftAddr := metadata.RaftAddr
	if raftAddr == "" {
		e.discovery.logger.Warn("peer joined without raft metadata, using gossip address", "node_id", node.Name, "gossip_addr", gossipAddr)
		raftAddr = gossipAddr
	}

	e.discovery.logger.Info("peer joined", "node_id", node.Name, "cluster_id", metadata.ClusterID, "raft_addr", raftAddr)
	if e.discovery.onJoin != nil {
		e.discovery.onJoin(node.Name, raftAddr)
	}
}

func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	e.discovery.logger.Info("peer left", "node_id", node.Name, "addr", node.Addr.String())
	if e.discovery.onLeave != nil {
		e.discovery.onLeave(node.Name)
	}
}

func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	e.discovery.logger.Debug("peer updated", "node_id", node.Name, "addr", node.Addr.String())
	if e.discovery.onUpdate != nil {
		e.discovery.onUpdate(node.Name)
	}
}

// slogWriter adapts slog.Logger to io.Writer for memberlist's own
// diagnostic logging.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	w.logger.Debug(string(p))
	return len(p), nil
}

// nodeMetadata is the gossip-delegate payload every peer advertises.
type nodeMetadata struct {
	RaftAddr  string `json:"raft_addr"`
	ClusterID string `json:"cluster_id"`
}

type metadataDelegate struct {
	metadata nodeMetadata
}

func (m *metadataDelegate) NodeMeta(limit int) []byte {
	data, err := json.Marshal(m.metadata)
	if err != nil {
		return nil
	}
	if len(data) > limit {
		return data[:limit]
	}
	return data
}

func (m *metadataDelegate) NotifyMsg([]byte) {}

func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }

func (m *metadataDelegate) LocalState(join bool) []byte { return nil }

func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool) {}
