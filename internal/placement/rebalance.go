package placement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robustmq/robustmq-go/internal/rpcpool"
	"golang.org/x/time/rate"
)

// RebalanceConfig tunes how aggressively shard replicas are moved when
// the ring changes (node join/leave, replication factor change).
type RebalanceConfig struct {
	// MaxShardsPerSec bounds how many shard reconciliations (each one
	// CreateShard/DeleteShard RPC per added or removed replica) this node
	// starts per second across the whole rebalance, so a single cluster
	// topology change doesn't thunder-herd every journal node.
	MaxShardsPerSec float64

	// ConcurrentShards is the number of shard migrations in flight at once.
	ConcurrentShards int

	// RPCTimeout bounds each individual CreateShard/DeleteShard call.
	RPCTimeout time.Duration

	Logger *slog.Logger
}

// DefaultRebalanceConfig mirrors the teacher's conservative defaults.
func DefaultRebalanceConfig() RebalanceConfig {
	return RebalanceConfig{
		MaxShardsPerSec:  50,
		ConcurrentShards: 3,
		RPCTimeout:       30 * time.Second,
		Logger:           slog.Default(),
	}
}

// RebalanceManager reconciles a ShardMap change into CreateShard/DeleteShard
// RPCs against the journal nodes gaining or losing a replica. Placement
// only coordinates ownership; the journal engine itself replays its own
// segment log to catch the new replica up, so no bulk data is shipped here.
type RebalanceManager struct {
	cfg        RebalanceConfig
	dispatcher *rpcpool.Dispatcher
	addrOf     func(nodeID string) (string, bool)

	mu      sync.RWMutex
	tasks   map[string]*MigrationTask // shard key -> task
	running atomic.Bool

	logger *slog.Logger
}

// NewRebalanceManager creates a rebalance manager. addrOf resolves a
// broker node ID to its RPC address, typically Server.brokerAddr (a
// CacheManager.GetBrokerNode lookup).
func NewRebalanceManager(cfg RebalanceConfig, dispatcher *rpcpool.Dispatcher, addrOf func(nodeID string) (string, bool)) *RebalanceManager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConcurrentShards <= 0 {
		cfg.ConcurrentShards = 1
	}
	if cfg.MaxShardsPerSec <= 0 {
		cfg.MaxShardsPerSec = 50
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = 30 * time.Second
	}
	return &RebalanceManager{
		cfg:        cfg,
		dispatcher: dispatcher,
		addrOf:     addrOf,
		tasks:      make(map[string]*MigrationTask),
		logger:     cfg.Logger,
	}
}

// MigrationTask tracks one shard's replica-set reconciliation.
type MigrationTask struct {
	Shard  JournalShard
	Added  []string
	Removed []string
	Status  TaskStatus

	mu        sync.RWMutex
	lastError string
}

// TaskStatus is a migration task's lifecycle state.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Reconcile diffs oldReplicas against newReplicas for every shard present
// in either map and issues CreateShard/DeleteShard RPCs for the nodes
// that gained or lost a replica.
func (rm *RebalanceManager) Reconcile(ctx context.Context, oldReplicas, newReplicas map[string][]string) error {
	if !rm.running.CompareAndSwap(false, true) {
		return fmt.Errorf("rebalance already in progress")
	}
	defer rm.running.Store(false)

	shardKeys := make(map[string]struct{}, len(newReplicas))
	for k := range oldReplicas {
		shardKeys[k] = struct{}{}
	}
	for k := range newReplicas {
		shardKeys[k] = struct{}{}
	}

	var toRun []*MigrationTask
	for key := range shardKeys {
		added, removed := diffReplicas(oldReplicas[key], newReplicas[key])
		if len(added) == 0 && len(removed) == 0 {
			continue
		}
		task := &MigrationTask{Shard: parseShardKey(key), Added: added, Removed: removed, Status: TaskStatusPending}
		rm.mu.Lock()
		rm.tasks[key] = task
		rm.mu.Unlock()
		toRun = append(toRun, task)
	}

	if len(toRun) == 0 {
		rm.logger.Info("rebalance: no shard replica changes")
		return nil
	}
	rm.logger.Info("rebalance: reconciling shard replicas", "shard_count", len(toRun))

	limiter := rate.NewLimiter(rate.Limit(rm.cfg.MaxShardsPerSec), rm.cfg.ConcurrentShards)
	sem := make(chan struct{}, rm.cfg.ConcurrentShards)
	var wg sync.WaitGroup

	for _, task := range toRun {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		wg.Add(1)
		go func(t *MigrationTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			rm.runTask(ctx, t)
		}(task)
	}
	wg.Wait()

	rm.logger.Info("rebalance: reconciliation complete", "shard_count", len(toRun))
	return nil
}

func (rm *RebalanceManager) runTask(ctx context.Context, task *MigrationTask) {
	task.mu.Lock()
	task.Status = TaskStatusRunning
	task.mu.Unlock()

	var failed bool
	for _, nodeID := range task.Added {
		if err := rm.createShardOn(ctx, nodeID, task.Shard); err != nil {
			rm.logger.Error("rebalance: create shard replica failed", "shard", task.Shard.Key(), "node_id", nodeID, "error", err)
			task.mu.Lock()
			task.lastError = err.Error()
			task.mu.Unlock()
			failed = true
		}
	}
	for _, nodeID := range task.Removed {
		if err := rm.deleteShardOn(ctx, nodeID, task.Shard); err != nil {
			rm.logger.Error("rebalance: delete shard replica failed", "shard", task.Shard.Key(), "node_id", nodeID, "error", err)
			task.mu.Lock()
			task.lastError = err.Error()
			task.mu.Unlock()
			failed = true
		}
	}

	task.mu.Lock()
	if failed {
		task.Status = TaskStatusFailed
	} else {
		task.Status = TaskStatusCompleted
	}
	task.mu.Unlock()
}

func (rm *RebalanceManager) createShardOn(ctx context.Context, nodeID string, shard JournalShard) error {
	addr, ok := rm.addrOf(nodeID)
	if !ok {
		return fmt.Errorf("no rpc address known for node %s", nodeID)
	}
	reqCtx, cancel := context.WithTimeout(ctx, rm.cfg.RPCTimeout)
	defer cancel()

	payload, err := rpcpool.EncodePayload(rpcpool.CreateShardRequest{Namespace: shard.Namespace, ShardName: shard.ShardName, Replicas: 1})
	if err != nil {
		return err
	}
	_, err = rm.dispatcher.Call(reqCtx, rpcpool.ServiceJournal, rpcpool.InterfaceCreateShard, []string{addr}, &rpcpool.Envelope{
		Service:   rpcpool.ServiceJournal,
		Interface: rpcpool.InterfaceCreateShard,
		Payload:   payload,
	})
	return err
}

func (rm *RebalanceManager) deleteShardOn(ctx context.Context, nodeID string, shard JournalShard) error {
	addr, ok := rm.addrOf(nodeID)
	if !ok {
		return fmt.Errorf("no rpc address known for node %s", nodeID)
	}
	reqCtx, cancel := context.WithTimeout(ctx, rm.cfg.RPCTimeout)
	defer cancel()

	payload, err := rpcpool.EncodePayload(rpcpool.DeleteShardRequest{Namespace: shard.Namespace, ShardName: shard.ShardName})
	if err != nil {
		return err
	}
	_, err = rm.dispatcher.Call(reqCtx, rpcpool.ServiceJournal, rpcpool.InterfaceDeleteShard, []string{addr}, &rpcpool.Envelope{
		Service:   rpcpool.ServiceJournal,
		Interface: rpcpool.InterfaceDeleteShard,
		Payload:   payload,
	})
	return err
}

// GetTaskStatus returns the migration task for shard key, if any.
func (rm *RebalanceManager) GetTaskStatus(shardKey string) (*MigrationTask, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	task, ok := rm.tasks[shardKey]
	return task, ok
}

// IsRunning reports whether a reconciliation is currently executing.
func (rm *RebalanceManager) IsRunning() bool {
	return rm.running.Load()
}

func diffReplicas(old, new []string) (added, removed []string) {
	oldSet := make(map[string]struct{}, len(old))
	for _, n := range old {
		oldSet[n] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(new))
	for _, n := range new {
		newSet[n] = struct{}{}
	}
	for _, n := range new {
		if _, ok := oldSet[n]; !ok {
			added = append(added, n)
		}
	}
	for _, n := range old {
		if _, ok := newSet[n]; !ok {
			removed = append(removed, n)
		}
	}
	return added, removed
}
