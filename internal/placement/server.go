package placement

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/robustmq/robustmq-go/internal/rpcpool"
	"github.com/robustmq/robustmq-go/internal/storage"
)

// Config configures the placement center server.
type Config struct {
	NodeID    string
	ClusterID string
	ClusterName string

	RaftBindAddr   string
	GossipBindAddr string
	GossipBindPort int

	Bootstrap bool
	SeedNodes []string

	RaftDataDir string

	ReplicationFactor int

	IdempotentStore storage.KVEngine

	Rebalance RebalanceConfig
	Heartbeat HeartbeatConfig

	TLSConfig *tls.Config
	Timeouts  TimeoutConfig

	Logger *slog.Logger
}

// TimeoutConfig configures the various timeout knobs the server uses.
type TimeoutConfig struct {
	RaftApply      time.Duration
	RaftMembership time.Duration
	WaitLeader     time.Duration
	RebalanceTotal time.Duration
}

// ErrNotLeader indicates the operation requires the raft leader.
var ErrNotLeader = errors.New("placement: not the leader")

// Server is the placement center: raft consensus, peer gossip, the FSM
// and its cache, the RPC forward guard, heartbeat sweep, and shard
// rebalancing wired together.
type Server struct {
	mu sync.RWMutex

	raft      *RaftNode
	discovery *Discovery
	fsm       *FSM

	forwardGuard *ForwardGuard
	heartbeat    *HeartbeatMonitor
	rebalance    *RebalanceManager
	idempotent   *IdempotentStore

	pool       *rpcpool.Pool
	dispatcher *rpcpool.Dispatcher

	config Config
	logger *slog.Logger

	isLeader   bool
	leaderAddr string
	leaderID   string

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewServer builds a Server without starting any background component.
// Call Start to begin operation.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fsm := NewFSM(cfg.Logger)

	httpClient := rpcpool.NewHTTPClient(cfg.TLSConfig)
	pool := rpcpool.NewPool(httpClient, cfg.TLSConfig)
	dispatcher := rpcpool.NewDispatcher(pool)

	s := &Server{
		fsm:        fsm,
		pool:       pool,
		dispatcher: dispatcher,
		config:     cfg,
		logger:     cfg.Logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if cfg.IdempotentStore != nil {
		s.idempotent = NewIdempotentStore(cfg.IdempotentStore)
	}

	rebalanceCfg := cfg.Rebalance
	if rebalanceCfg.Logger == nil {
		rebalanceCfg.Logger = cfg.Logger
	}
	s.rebalance = NewRebalanceManager(rebalanceCfg, dispatcher, s.brokerAddr)

	heartbeatCfg := cfg.Heartbeat
	s.heartbeat = NewHeartbeatMonitor(fsm.Cache(), heartbeatCfg, s.applyUnregisterNode, cfg.Logger)

	s.forwardGuard = NewForwardGuard(s.IsLeader, s.LeaderID, s.brokerAddr)

	cfg.Logger.Info("placement center server created",
		"node_id", cfg.NodeID, "raft_addr", cfg.RaftBindAddr, "gossip_addr", cfg.GossipBindAddr)

	return s, nil
}

// Start starts raft, peer discovery, and the background monitor loops.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting placement center server", "node_id", s.config.NodeID)

	var (
		raftInitialized      bool
		discoveryInitialized bool
	)
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("PANIC during server start - cleaning up resources", "error", err)
			if discoveryInitialized && s.discovery != nil {
				_ = s.discovery.Shutdown()
			}
			if raftInitialized && s.raft != nil {
				_ = s.raft.Close()
			}
			panic(err)
		}
	}()

	raftNode, err := NewRaftNode(RaftConfig{
		NodeID:    s.config.NodeID,
		BindAddr:  s.config.RaftBindAddr,
		DataDir:   s.config.RaftDataDir,
		Bootstrap: s.config.Bootstrap,
		Logger:    s.logger,
	}, s.fsm)
	if err != nil {
		return fmt.Errorf("create raft node: %w", err)
	}
	raftInitialized = true

	s.mu.Lock()
	s.raft = raftNode
	s.mu.Unlock()

	discovery, err := NewDiscovery(DiscoveryConfig{
		NodeID:    s.config.NodeID,
		ClusterID: s.config.ClusterID,
		BindAddr:  s.config.GossipBindAddr,
		BindPort:  s.config.GossipBindPort,
		RaftAddr:  s.config.RaftBindAddr,
		SeedNodes: s.config.SeedNodes,
		Logger:    s.logger,
	})
	if err != nil {
		if closeErr := s.raft.Close(); closeErr != nil {
			s.logger.Error("failed to close raft during cleanup", "error", closeErr)
		}
		return fmt.Errorf("create discovery: %w", err)
	}
	discoveryInitialized = true

	s.mu.Lock()
	s.discovery = discovery
	s.mu.Unlock()

	s.setupDiscoveryCallbacks()

	go s.leaderMonitorLoop()
	s.heartbeat.Start(ctx, s.IsLeader)

	if s.config.Bootstrap {
		if err := s.waitForLeader(ctx, s.config.Timeouts.WaitLeader); err != nil {
			s.logger.Warn("leader election timeout", "error", err)
		}
	}

	s.logger.Info("placement center server started", "node_id", s.config.NodeID, "is_leader", s.raft.IsLeader())
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping placement center server", "node_id", s.config.NodeID)

	s.mu.Lock()
	select {
	case <-s.stopCh:
		s.mu.Unlock()
		return nil
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.heartbeat.Stop()

	if s.discovery != nil {
		if err := s.discovery.Leave(); err != nil {
			s.logger.Error("discovery leave failed", "error", err)
		}
		if err := s.discovery.Shutdown(); err != nil {
			s.logger.Error("discovery shutdown failed", "error", err)
		}
	}

	if s.raft != nil {
		if err := s.raft.Close(); err != nil {
			s.logger.Error("raft shutdown failed", "error", err)
		}
	}

	select {
	case <-s.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		s.logger.Warn("leader monitor loop did not exit in time")
	}

	s.logger.Info("placement center server stopped")
	return nil
}

// IsLeader reports whether this node currently holds raft leadership.
func (s *Server) IsLeader() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLeader
}

// LeaderID returns the current raft leader's node ID.
func (s *Server) LeaderID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderID
}

// Cache exposes the underlying FSM cache for read access and RPC handlers.
func (s *Server) Cache() *CacheManager {
	return s.fsm.Cache()
}

// ForwardGuard exposes the forward guard for handler.go to enforce.
func (s *Server) ForwardGuard() *ForwardGuard {
	return s.forwardGuard
}

// Idempotent exposes the idempotent-data store, or nil if none was configured.
func (s *Server) Idempotent() *IdempotentStore {
	return s.idempotent
}

// Apply submits a raft log entry and blocks until it is committed.
func (s *Server) Apply(entryType LogEntryType, payload any) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	entry, err := NewLogEntry(entryType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	return s.raft.Apply(data, s.config.Timeouts.RaftApply)
}

func (s *Server) applyUnregisterNode(clusterName, nodeID string) error {
	return s.Apply(LogEntryUnRegisterNode, unregisterNodePayload{ClusterName: clusterName, NodeID: nodeID})
}

// brokerAddr resolves a broker/raft node ID to its RPC address via the
// cache's broker-node index, used by both the forward guard and the
// rebalance manager.
func (s *Server) brokerAddr(nodeID string) (string, bool) {
	node, ok := s.Cache().GetBrokerNode(s.config.ClusterName, nodeID)
	if !ok {
		return "", false
	}
	return node.NodeInnerAddr, true
}

func (s *Server) setupDiscoveryCallbacks() {
	s.discovery.OnJoin(func(nodeID, raftAddr string) {
		s.logger.Info("discovery: peer joined", "node_id", nodeID, "raft_addr", raftAddr)
		if !s.IsLeader() {
			return
		}
		if err := s.raft.AddVoter(nodeID, raftAddr, s.config.Timeouts.RaftMembership); err != nil {
			s.logger.Error("failed to add raft voter", "node_id", nodeID, "error", err)
			return
		}
		s.logger.Info("raft voter added", "node_id", nodeID, "raft_addr", raftAddr)
	})

	s.discovery.OnLeave(func(nodeID string) {
		s.logger.Info("discovery: peer left", "node_id", nodeID)
		if !s.IsLeader() {
			return
		}
		if err := s.raft.RemoveServer(nodeID, s.config.Timeouts.RaftMembership); err != nil {
			s.logger.Error("failed to remove raft voter", "node_id", nodeID, "error", err)
		}
	})

	s.discovery.OnUpdate(func(nodeID string) {
		s.logger.Debug("discovery: peer metadata updated", "node_id", nodeID)
	})
}

func (s *Server) leaderMonitorLoop() {
	defer close(s.doneCh)

	leaderCh := s.raft.LeaderCh()
	for {
		select {
		case isLeader, ok := <-leaderCh:
			if !ok {
				return
			}
			s.handleLeaderChange(isLeader)
		case <-s.stopCh:
			s.logger.Info("leader monitor loop exiting")
			return
		}
	}
}

func (s *Server) handleLeaderChange(isLeader bool) {
	s.mu.Lock()
	wasLeader := s.isLeader
	s.isLeader = isLeader
	s.leaderAddr = s.raft.Leader()
	s.leaderID = s.raft.LeaderID()
	s.mu.Unlock()

	if isLeader && !wasLeader {
		s.logger.Info("became raft leader", "node_id", s.config.NodeID)
		s.onBecomeLeader()
	} else if !isLeader && wasLeader {
		s.logger.Info("lost raft leadership", "node_id", s.config.NodeID)
	}
}

// onBecomeLeader runs a rebalance pass 5s after leadership is acquired,
// passing the shard map's current replica assignments to Reconcile as
// both the old and the new state. The two are equal, so no
// CreateShard/DeleteShard RPCs are issued and drift from an interrupted
// rebalance is not detected.
func (s *Server) onBecomeLeader() {
	go func() {
		select {
		case <-time.After(5 * time.Second):
		case <-s.stopCh:
			return
		}

		shardMap := s.Cache().ShardMap()
		current := make(map[string][]string)
		for _, shard := range shardMap.AllShards() {
			current[shard.Key()] = shardMap.GetReplicas(shard)
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeouts.RebalanceTotal)
		defer cancel()
		if err := s.rebalance.Reconcile(ctx, current, current); err != nil {
			s.logger.Error("post-election rebalance reconcile failed", "error", err)
		}
	}()
}

func (s *Server) waitForLeader(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for leader election")
		case <-ticker.C:
			if s.raft.Leader() != "" {
				s.logger.Info("leader elected", "leader_id", s.raft.LeaderID(), "leader_addr", s.raft.Leader())
				return nil
			}
		}
	}
}

func (cfg *Config) validate() error {
	if cfg.NodeID == "" {
		return errors.New("node_id is required")
	}
	if cfg.RaftBindAddr == "" {
		return errors.New("raft_bind_addr is required")
	}
	if cfg.GossipBindAddr == "" {
		return errors.New("gossip_bind_addr is required")
	}
	if cfg.GossipBindPort == 0 {
		return errors.New("gossip_bind_port is required")
	}
	if cfg.RaftDataDir == "" {
		return errors.New("raft_data_dir is required")
	}
	if cfg.Bootstrap && len(cfg.SeedNodes) > 0 {
		return errors.New("bootstrap mode should not specify seed_nodes (mutually exclusive)")
	}
	if cfg.ReplicationFactor < 1 {
		cfg.ReplicationFactor = 1
	}
	if cfg.ReplicationFactor > 7 {
		return fmt.Errorf("replication_factor must be 1-7, got %d", cfg.ReplicationFactor)
	}
	if cfg.Timeouts.RaftApply == 0 {
		cfg.Timeouts.RaftApply = 5 * time.Second
	}
	if cfg.Timeouts.RaftMembership == 0 {
		cfg.Timeouts.RaftMembership = 10 * time.Second
	}
	if cfg.Timeouts.WaitLeader == 0 {
		cfg.Timeouts.WaitLeader = 10 * time.Second
	}
	if cfg.Timeouts.RebalanceTotal == 0 {
		cfg.Timeouts.RebalanceTotal = 30 * time.Minute
	}
	return nil
}

// createRPCClient builds a raw HTTP client with the server's TLS
// settings, for a one-off connection outside the pooled dispatcher.
// addr is not used; the client is not bound to any address.
func (s *Server) createRPCClient(addr string) *http.Client {
	return rpcpool.NewHTTPClient(s.config.TLSConfig)
}
