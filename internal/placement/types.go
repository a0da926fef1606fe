// Package placement implements the placement center: the raft-replicated
// coordination service that tracks broker membership, assigns journal
// shard replicas, and holds the MQTT catalog (users, topics, sessions,
// acls, blacklists) every broker forwards writes to.
package placement

import (
	"fmt"
	"time"
)

// ClusterInfo describes one logical broker cluster the placement center
// coordinates for.
type ClusterInfo struct {
	ClusterName string `json:"cluster_name"`
	CreateTime  int64  `json:"create_time"`
}

// BrokerNode is a journal or mqtt broker registered with the placement
// center.
type BrokerNode struct {
	ClusterName  string `json:"cluster_name"`
	NodeID       string `json:"node_id"`
	NodeInnerAddr string `json:"node_inner_addr"`
	ExtendInfo   string `json:"extend_info,omitempty"`
	StartTime    int64  `json:"start_time"`
}

// NodeHeartbeatData is the last-seen time for a registered node.
type NodeHeartbeatData struct {
	ClusterName string `json:"cluster_name"`
	NodeID      string `json:"node_id"`
	Time        int64  `json:"time"`
}

// RaftMember is a voting member of the placement center's own raft group.
type RaftMember struct {
	NodeID   string `json:"node_id"`
	RaftAddr string `json:"raft_addr"`
}

// JournalShard identifies one journal shard within a namespace.
type JournalShard struct {
	Namespace string `json:"namespace"`
	ShardName string `json:"shard_name"`
}

// Key returns the shard map key for this shard.
func (s JournalShard) Key() string {
	return s.Namespace + "/" + s.ShardName
}

// SegmentStatus is a JournalSegment's place in its sealing lifecycle.
// Transitions are monotonic: Idle -> Write -> PrepareSealUp -> SealUp.
// A sealed segment never re-opens for writes.
type SegmentStatus int

const (
	SegmentStatusIdle SegmentStatus = iota
	SegmentStatusWrite
	SegmentStatusPrepareSealUp
	SegmentStatusSealUp
)

func (s SegmentStatus) String() string {
	switch s {
	case SegmentStatusIdle:
		return "Idle"
	case SegmentStatusWrite:
		return "Write"
	case SegmentStatusPrepareSealUp:
		return "PrepareSealUp"
	case SegmentStatusSealUp:
		return "SealUp"
	default:
		return "Unknown"
	}
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic Idle<Write<PrepareSealUp<SealUp ordering (I2/P2): equal or
// forward moves only, never a downgrade.
func (s SegmentStatus) CanTransitionTo(next SegmentStatus) bool {
	return next >= s
}

// JournalSegment is a bounded slice of a shard's log: the unit of
// sealing and replication. At most one segment per shard may carry
// status=Write at a time, and it must be the shard's active_segment_seq
// (invariant I1).
type JournalSegment struct {
	Namespace     string        `json:"namespace"`
	ShardName     string        `json:"shard_name"`
	SegmentSeq    int64         `json:"segment_seq"`
	Status        SegmentStatus `json:"status"`
	Replicas      []string      `json:"replicas"`
	ReplicaLeader string        `json:"replica_leader"`
}

// Key returns the segment map key this segment is stored under.
func (s JournalSegment) Key() string {
	return segmentKey(s.Namespace, s.ShardName, s.SegmentSeq)
}

func segmentKey(namespace, shardName string, segmentSeq int64) string {
	return fmt.Sprintf("%s/%s/%d", namespace, shardName, segmentSeq)
}

// MqttUser is a registered MQTT client credential.
type MqttUser struct {
	Username    string `json:"username"`
	PasswordHash string `json:"password_hash"`
	IsSuperuser bool   `json:"is_superuser"`
}

// MqttTopic is a registered MQTT topic with optional retained message.
type MqttTopic struct {
	TopicName     string `json:"topic_name"`
	RetainMessage []byte `json:"retain_message,omitempty"`
}

// MqttSession is the durable half of a client session: everything the
// placement center persists so a reconnecting client (or a failed-over
// broker) can recover state the in-memory mqtt session does not own.
type MqttSession struct {
	ClientID      string `json:"client_id"`
	BrokerID      string `json:"broker_id"`
	ConnectionID  uint64 `json:"connection_id"`
	ReconnectTime int64  `json:"reconnect_time"`
	DistinctTime  int64  `json:"distinct_time"`
	LastWill      []byte `json:"last_will,omitempty"`
}

// MqttAcl is an access control rule on a resource.
type MqttAcl struct {
	ResourceType string `json:"resource_type"`
	ResourceName string `json:"resource_name"`
	Username     string `json:"username"`
	Permission   string `json:"permission"`
	Action       string `json:"action"`
}

// MqttBlackList is a deny rule blocking a user, client or IP.
type MqttBlackList struct {
	BlackListType string `json:"blacklist_type"`
	ResourceName  string `json:"resource_name"`
	EndTime       int64  `json:"end_time"`
}

// nowSecond returns the current Unix time in seconds, matching the
// source cache's now_second() granularity for heartbeat comparisons.
func nowSecond() int64 {
	return time.Now().Unix()
}
