package journal

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/robustmq/robustmq-go/internal/placement"
	"github.com/robustmq/robustmq-go/pkg/cmap"
)

// CacheManager is the journal engine's broker-side view of its own node
// identity, the shards it holds replicas of, and the segments within
// each shard, grounded method-for-method on the source
// JournalCacheManager (add_node/add_shard/get_shard/delete_shard/
// add_segment/get_segment/delete_segment/get_active_segment/
// update_cache), swapping DashMap for pkg/cmap.
type CacheManager struct {
	nodes    *cmap.Map[string, Node]
	shards   *cmap.Map[string, Shard]
	segments *cmap.Map[string, *cmap.Map[int64, Segment]] // key: Shard.Key()

	// onShardDeleted is invoked once per deleted shard after its cache
	// entry and segment sub-map are removed, so a caller can schedule
	// local segment file cleanup without this package owning a
	// filesystem dependency.
	onShardDeleted func(shard Shard)

	logger *slog.Logger
}

// NewCacheManager creates an empty cache. onShardDeleted may be nil.
func NewCacheManager(logger *slog.Logger, onShardDeleted func(shard Shard)) *CacheManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheManager{
		nodes:          cmap.New[string, Node](),
		shards:         cmap.New[string, Shard](),
		segments:       cmap.New[string, *cmap.Map[int64, Segment]](),
		onShardDeleted: onShardDeleted,
		logger:         logger,
	}
}

// AddNode registers a journal engine node.
func (c *CacheManager) AddNode(n Node) { c.nodes.Set(n.NodeID, n) }

// GetNode looks up a journal engine node.
func (c *CacheManager) GetNode(nodeID string) (Node, bool) { return c.nodes.Get(nodeID) }

// RemoveNode forgets a journal engine node.
func (c *CacheManager) RemoveNode(nodeID string) { c.nodes.Delete(nodeID) }

// AddShard records (or replaces) a shard's metadata.
func (c *CacheManager) AddShard(s Shard) {
	c.shards.Set(s.Key(), s)
	c.segments.SetIfAbsent(s.Key(), cmap.New[int64, Segment]())
}

// GetShard looks up a shard's metadata.
func (c *CacheManager) GetShard(namespace, shardName string) (Shard, bool) {
	return c.shards.Get(shardKey(namespace, shardName))
}

// ShardExists reports whether shard metadata is cached, matching the
// source shard_exists check used before routing a write.
func (c *CacheManager) ShardExists(namespace, shardName string) bool {
	return c.shards.Has(shardKey(namespace, shardName))
}

// DeleteShard removes a shard and every segment recorded under it,
// notifying onShardDeleted exactly once. Repeated deletes of an already
// absent shard are no-ops, matching the source's idempotent delete.
func (c *CacheManager) DeleteShard(namespace, shardName string) {
	key := shardKey(namespace, shardName)
	shard, ok := c.shards.Get(key)
	if !ok {
		return
	}
	c.shards.Delete(key)
	c.segments.Delete(key)
	if c.onShardDeleted != nil {
		c.onShardDeleted(shard)
	}
}

// AddSegment records (or replaces) one segment under its shard.
func (c *CacheManager) AddSegment(seg Segment) {
	key := shardKey(seg.Namespace, seg.ShardName)
	segs, ok := c.segments.Get(key)
	if !ok {
		segs = cmap.New[int64, Segment]()
		c.segments.Set(key, segs)
	}
	segs.Set(seg.SegmentSeq, seg)
}

// GetSegment looks up one segment.
func (c *CacheManager) GetSegment(namespace, shardName string, segmentSeq int64) (Segment, bool) {
	segs, ok := c.segments.Get(shardKey(namespace, shardName))
	if !ok {
		return Segment{}, false
	}
	return segs.Get(segmentSeq)
}

// DeleteSegment removes one segment.
func (c *CacheManager) DeleteSegment(namespace, shardName string, segmentSeq int64) {
	if segs, ok := c.segments.Get(shardKey(namespace, shardName)); ok {
		segs.Delete(segmentSeq)
	}
}

// ListSegments returns every segment cached for one shard.
func (c *CacheManager) ListSegments(namespace, shardName string) []Segment {
	segs, ok := c.segments.Get(shardKey(namespace, shardName))
	if !ok {
		return nil
	}
	return segs.Values()
}

// GetActiveSegment returns the shard's active (non-sealed) segment, the
// one new writes land on. It returns false if the shard is unknown, its
// active_segment_seq has no cached segment yet, or that segment has
// already been sealed — in every case the caller should re-load shard
// metadata from the placement center and retry, per spec.md's
// NotActiveSegmentLeader guidance.
func (c *CacheManager) GetActiveSegment(namespace, shardName string) (Segment, bool) {
	shard, ok := c.GetShard(namespace, shardName)
	if !ok {
		return Segment{}, false
	}
	seg, ok := c.GetSegment(namespace, shardName, shard.ActiveSegmentSeq)
	if !ok || seg.Status == placement.SegmentStatusSealUp {
		return Segment{}, false
	}
	return seg, true
}

// UpdateCache parses one cache-update feed tuple and applies it,
// grounded on the source update_cache dispatch. Decode failures are
// logged with the offending payload rather than returned, matching the
// source's must-not-corrupt-other-entries requirement — one bad tuple
// must not abort the feed.
func (c *CacheManager) UpdateCache(ctx context.Context, action ActionType, resource ResourceType, payload json.RawMessage) {
	switch resource {
	case ResourceNode:
		c.applyNode(action, payload)
	case ResourceShard:
		c.applyShard(action, payload)
	case ResourceSegment:
		c.applySegment(action, payload)
	default:
		c.logger.Error("journal cache: unknown update-feed resource", "resource", resource, "payload", string(payload))
	}
}

func (c *CacheManager) applyNode(action ActionType, payload json.RawMessage) {
	var n Node
	if err := json.Unmarshal(payload, &n); err != nil {
		c.logger.Error("journal cache: failed to parse node update", "error", err, "payload", string(payload))
		return
	}
	switch action {
	case ActionAdd:
		c.AddNode(n)
	case ActionDelete:
		c.RemoveNode(n.NodeID)
	}
}

func (c *CacheManager) applyShard(action ActionType, payload json.RawMessage) {
	var s Shard
	if err := json.Unmarshal(payload, &s); err != nil {
		c.logger.Error("journal cache: failed to parse shard update", "error", err, "payload", string(payload))
		return
	}
	switch action {
	case ActionAdd:
		c.AddShard(s)
	case ActionDelete:
		c.DeleteShard(s.Namespace, s.ShardName)
	}
}

func (c *CacheManager) applySegment(action ActionType, payload json.RawMessage) {
	var seg Segment
	if err := json.Unmarshal(payload, &seg); err != nil {
		c.logger.Error("journal cache: failed to parse segment update", "error", err, "payload", string(payload))
		return
	}
	switch action {
	case ActionAdd:
		c.AddSegment(seg)
	case ActionDelete:
		c.DeleteSegment(seg.Namespace, seg.ShardName, seg.SegmentSeq)
	}
}

// LoadCache bootstraps the cache by replaying a batch of update-feed
// tuples fetched at startup. The wire protocol this tree implements has
// no bulk ListShard/ListSegment RPC (only incremental CreateShard/
// CreateSegment/DeleteShard/DeleteSegment writes — see
// internal/rpcpool/classify.go), so a fresh journal engine starts empty
// and catches up from whatever update-feed history the caller supplies
// rather than a dedicated snapshot call.
func (c *CacheManager) LoadCache(ctx context.Context, updates []CacheUpdate) error {
	for _, u := range updates {
		c.UpdateCache(ctx, u.Action, u.Resource, u.Payload)
	}
	return nil
}

// CacheUpdate is one tuple the PC -> JE update feed carries.
type CacheUpdate struct {
	Action   ActionType      `json:"action"`
	Resource ResourceType    `json:"resource"`
	Payload  json.RawMessage `json:"payload"`
}

