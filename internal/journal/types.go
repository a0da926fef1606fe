// Package journal implements the journal engine's broker-side view of
// the shard/segment topology and the local append-only store backing
// each active segment.
package journal

import "github.com/robustmq/robustmq-go/internal/placement"

// Node is a journal engine node registered with the placement center,
// mirroring the subset of placement.BrokerNode the journal engine's own
// cache needs.
type Node struct {
	NodeID        string `json:"node_id"`
	NodeInnerAddr string `json:"node_inner_addr"`
}

// Shard identifies one journal shard this engine may hold a replica of.
type Shard struct {
	Namespace        string `json:"namespace"`
	ShardName        string `json:"shard_name"`
	ReplicaNum       int    `json:"replica_num"`
	ActiveSegmentSeq int64  `json:"active_segment_seq"`
}

// Key returns this shard's cache key, matching the source
// shard_key(namespace, shard_name) helper.
func (s Shard) Key() string {
	return shardKey(s.Namespace, s.ShardName)
}

func shardKey(namespace, shardName string) string {
	return namespace + "_" + shardName
}

// Segment is the journal engine's local mirror of one
// placement.JournalSegment (a type alias, so it carries no extra
// fields); the store layer keeps its seglog writers separately, keyed
// by segment.
type Segment = placement.JournalSegment

// ResourceType names one kind of entity the cache-update feed can carry.
type ResourceType string

const (
	ResourceNode    ResourceType = "JournalNode"
	ResourceShard   ResourceType = "Shard"
	ResourceSegment ResourceType = "Segment"
)

// ActionType names whether a cache-update feed tuple adds or removes an
// entity.
type ActionType string

const (
	ActionAdd    ActionType = "Add"
	ActionDelete ActionType = "Delete"
)
