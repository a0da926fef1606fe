package placement

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/hashicorp/raft"
)

// LogEntryType tags the payload of a raft log entry. Unlike a generic
// shard-map/member-join/member-leave triad, every write interface in the
// forward set (the interfaces clients must retry against the leader) gets
// its own entry type, since each carries a differently shaped payload.
type LogEntryType uint8

const (
	LogEntryRegisterNode   LogEntryType = 1
	LogEntryUnRegisterNode LogEntryType = 2
	LogEntryHeartbeat      LogEntryType = 3

	LogEntryCreateShard   LogEntryType = 10
	LogEntryDeleteShard   LogEntryType = 11
	LogEntryCreateSegment LogEntryType = 12
	LogEntryDeleteSegment LogEntryType = 13

	LogEntryCreateUser      LogEntryType = 20
	LogEntryDeleteUser      LogEntryType = 21
	LogEntryCreateTopic     LogEntryType = 22
	LogEntryDeleteTopic     LogEntryType = 23
	LogEntryCreateSession   LogEntryType = 24
	LogEntryDeleteSession   LogEntryType = 25
	LogEntryUpdateSession   LogEntryType = 26
	LogEntryCreateAcl       LogEntryType = 27
	LogEntryDeleteAcl       LogEntryType = 28
	LogEntryCreateBlackList LogEntryType = 29
	LogEntryDeleteBlackList LogEntryType = 30
)

// LogEntry is the envelope every raft log entry carries.
type LogEntry struct {
	Type    LogEntryType    `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Payload shapes for entry types whose data isn't already one of the
// placement domain types in types.go.
type (
	unregisterNodePayload struct {
		ClusterName string `json:"cluster_name"`
		NodeID      string `json:"node_id"`
	}
	heartbeatPayload struct {
		ClusterName string `json:"cluster_name"`
		NodeID      string `json:"node_id"`
	}
	createShardPayload struct {
		Shard             JournalShard `json:"shard"`
		ReplicationFactor int          `json:"replication_factor"`
	}
	deleteSegmentPayload struct {
		Namespace  string `json:"namespace"`
		ShardName  string `json:"shard_name"`
		SegmentSeq int64  `json:"segment_seq"`
	}
	usernamePayload struct {
		Username string `json:"username"`
	}
	topicNamePayload struct {
		TopicName string `json:"topic_name"`
	}
	clientIDPayload struct {
		ClientID string `json:"client_id"`
	}
	keyPayload struct {
		Key string `json:"key"`
	}
	keyedAcl struct {
		Key string  `json:"key"`
		Acl MqttAcl `json:"acl"`
	}
	keyedBlackList struct {
		Key       string        `json:"key"`
		BlackList MqttBlackList `json:"black_list"`
	}
)

// NewLogEntry builds a LogEntry carrying payload, for callers (Server.Apply
// in server.go) that need to submit a raft log entry.
func NewLogEntry(t LogEntryType, payload any) (LogEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return LogEntry{}, fmt.Errorf("marshal log entry payload: %w", err)
	}
	return LogEntry{Type: t, Payload: raw}, nil
}

// FSM applies committed raft log entries to a CacheManager. All state
// mutation for the placement center funnels through Apply so every
// replica's cache converges deterministically; a corrupt or
// unrecognized entry is an unrecoverable consistency fault and panics
// rather than silently diverging.
type FSM struct {
	mu    sync.RWMutex
	cache *CacheManager

	logger *slog.Logger
}

// NewFSM creates an FSM around a fresh CacheManager.
func NewFSM(logger *slog.Logger) *FSM {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSM{cache: NewCacheManager(), logger: logger}
}

// Cache returns the FSM's cache manager for read access. Writes must
// only happen through Apply.
func (f *FSM) Cache() *CacheManager {
	return f.cache
}

// applyTyped unmarshals raw into a fresh *T and calls apply with it,
// panicking on a malformed payload — a replica that cannot decode a
// committed entry can no longer reproduce the same state as its peers.
func applyTyped[T any](f *FSM, log *raft.Log, raw json.RawMessage, apply func(*T)) {
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		f.logger.Error("FATAL: failed to unmarshal log entry payload - data corrupted", "error", err, "log_index", log.Index, "log_term", log.Term)
		panic(fmt.Sprintf("FSM.Apply: payload unmarshal failed at index=%d: %v", log.Index, err))
	}
	apply(v)
}

// Apply implements raft.FSM.
func (f *FSM) Apply(log *raft.Log) interface{} {
	var entry LogEntry
	if err := json.Unmarshal(log.Data, &entry); err != nil {
		f.logger.Error("FATAL: failed to unmarshal log entry - data corrupted", "error", err, "log_index", log.Index, "log_term", log.Term)
		panic(fmt.Sprintf("FSM.Apply: unmarshal failed at index=%d: %v", log.Index, err))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch entry.Type {
	case LogEntryRegisterNode:
		applyTyped[BrokerNode](f, log, entry.Payload, func(v *BrokerNode) { f.cache.AddBrokerNode(*v) })
	case LogEntryUnRegisterNode:
		applyTyped[unregisterNodePayload](f, log, entry.Payload, func(v *unregisterNodePayload) {
			f.cache.RemoveBrokerNode(v.ClusterName, v.NodeID)
		})
	case LogEntryHeartbeat:
		applyTyped[heartbeatPayload](f, log, entry.Payload, func(v *heartbeatPayload) {
			f.cache.ReportHeartbeat(v.ClusterName, v.NodeID)
		})
	case LogEntryCreateShard:
		applyTyped[createShardPayload](f, log, entry.Payload, func(v *createShardPayload) {
			f.cache.ShardMap().AssignReplicas(v.Shard, v.ReplicationFactor)
		})
	case LogEntryDeleteShard:
		applyTyped[JournalShard](f, log, entry.Payload, func(v *JournalShard) {
			f.cache.ShardMap().DeleteShard(*v)
			f.cache.DeleteShardSegments(v.Namespace, v.ShardName)
		})
	case LogEntryCreateSegment:
		applyTyped[JournalSegment](f, log, entry.Payload, func(v *JournalSegment) { f.cache.PutSegment(*v) })
	case LogEntryDeleteSegment:
		applyTyped[deleteSegmentPayload](f, log, entry.Payload, func(v *deleteSegmentPayload) {
			f.cache.DeleteSegment(v.Namespace, v.ShardName, v.SegmentSeq)
		})
	case LogEntryCreateUser:
		applyTyped[MqttUser](f, log, entry.Payload, func(v *MqttUser) { f.cache.PutUser(*v) })
	case LogEntryDeleteUser:
		applyTyped[usernamePayload](f, log, entry.Payload, func(v *usernamePayload) { f.cache.DeleteUser(v.Username) })
	case LogEntryCreateTopic:
		applyTyped[MqttTopic](f, log, entry.Payload, func(v *MqttTopic) { f.cache.PutTopic(*v) })
	case LogEntryDeleteTopic:
		applyTyped[topicNamePayload](f, log, entry.Payload, func(v *topicNamePayload) { f.cache.DeleteTopic(v.TopicName) })
	case LogEntryCreateSession, LogEntryUpdateSession:
		applyTyped[MqttSession](f, log, entry.Payload, func(v *MqttSession) { f.cache.PutSession(*v) })
	case LogEntryDeleteSession:
		applyTyped[clientIDPayload](f, log, entry.Payload, func(v *clientIDPayload) { f.cache.DeleteSession(v.ClientID) })
	case LogEntryCreateAcl:
		applyTyped[keyedAcl](f, log, entry.Payload, func(v *keyedAcl) { f.cache.PutAcl(v.Key, v.Acl) })
	case LogEntryDeleteAcl:
		applyTyped[keyPayload](f, log, entry.Payload, func(v *keyPayload) { f.cache.DeleteAcl(v.Key) })
	case LogEntryCreateBlackList:
		applyTyped[keyedBlackList](f, log, entry.Payload, func(v *keyedBlackList) { f.cache.PutBlackList(v.Key, v.BlackList) })
	case LogEntryDeleteBlackList:
		applyTyped[keyPayload](f, log, entry.Payload, func(v *keyPayload) { f.cache.DeleteBlackList(v.Key) })
	default:
		f.logger.Error("FATAL: unknown log entry type", "type", entry.Type, "log_index", log.Index)
		panic(fmt.Sprintf("FSM.Apply: unknown log type %d at index=%d", entry.Type, log.Index))
	}

	return nil
}

// fsmState is the full serializable snapshot of a CacheManager.
type fsmState struct {
	Nodes       []BrokerNode         `json:"nodes"`
	Heartbeats  []NodeHeartbeatData  `json:"heartbeats"`
	RaftMembers []RaftMember         `json:"raft_members"`
	Users       []MqttUser           `json:"users"`
	Topics      []MqttTopic          `json:"topics"`
	Sessions    []MqttSession        `json:"sessions"`
	Acls        []keyedAcl           `json:"acls"`
	BlackLists  []keyedBlackList     `json:"black_lists"`
	ShardGroups []shardGroupSnapshot `json:"shard_groups"`
	Segments    []JournalSegment     `json:"segments"`
}

type shardGroupSnapshot struct {
	Shard    JournalShard `json:"shard"`
	Replicas []string     `json:"replicas"`
}

// exportState serializes the cache manager's full state. Caller must
// hold at least a read lock.
func (f *FSM) exportState() fsmState {
	state := fsmState{
		Nodes:       f.cache.nodes.Values(),
		Heartbeats:  f.cache.heartbeats.Values(),
		RaftMembers: f.cache.raftMembers.Values(),
		Users:       f.cache.ListUsers(),
		Topics:      f.cache.ListTopics(),
		Sessions:    f.cache.ListSessions(),
	}
	f.cache.acls.Range(func(key string, a MqttAcl) bool {
		state.Acls = append(state.Acls, keyedAcl{Key: key, Acl: a})
		return true
	})
	f.cache.blacklists.Range(func(key string, b MqttBlackList) bool {
		state.BlackLists = append(state.BlackLists, keyedBlackList{Key: key, BlackList: b})
		return true
	})
	for _, shard := range f.cache.shardMap.AllShards() {
		state.ShardGroups = append(state.ShardGroups, shardGroupSnapshot{
			Shard:    shard,
			Replicas: f.cache.shardMap.GetReplicas(shard),
		})
	}
	state.Segments = f.cache.segments.Values()
	return state
}

// importState replaces the cache manager's state wholesale. Caller must
// hold the write lock.
func (f *FSM) importState(state fsmState) {
	cache := NewCacheManager()
	for _, n := range state.Nodes {
		cache.AddBrokerNode(n)
	}
	for _, hb := range state.Heartbeats {
		cache.heartbeats.Set(nodeKey(hb.ClusterName, hb.NodeID), hb)
	}
	for _, m := range state.RaftMembers {
		cache.AddRaftMember(m)
	}
	for _, u := range state.Users {
		cache.PutUser(u)
	}
	for _, t := range state.Topics {
		cache.PutTopic(t)
	}
	for _, s := range state.Sessions {
		cache.PutSession(s)
	}
	for _, a := range state.Acls {
		cache.PutAcl(a.Key, a.Acl)
	}
	for _, b := range state.BlackLists {
		cache.PutBlackList(b.Key, b.BlackList)
	}
	for _, g := range state.ShardGroups {
		cache.shardMap.SetReplicas(g.Shard, g.Replicas)
	}
	for _, seg := range state.Segments {
		cache.PutSegment(seg)
	}
	f.cache = cache
}

// Snapshot captures the FSM's full cache state for raft log compaction.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return &fsmSnapshot{state: f.exportState()}, nil
}

// Restore replaces the FSM's cache state from a gzip+JSON snapshot.
func (f *FSM) Restore(r io.ReadCloser) error {
	defer r.Close()

	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzReader.Close()

	var state fsmState
	if err := json.NewDecoder(gzReader).Decode(&state); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.importState(state)

	f.logger.Info("fsm state restored from snapshot",
		"node_count", len(state.Nodes),
		"user_count", len(state.Users),
		"topic_count", len(state.Topics))
	return nil
}

type fsmSnapshot struct {
	state fsmState
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		gzWriter := gzip.NewWriter(sink)
		defer gzWriter.Close()
		if err := json.NewEncoder(gzWriter).Encode(s.state); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return gzWriter.Close()
	}()
	if err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
