package placement

import (
	"github.com/robustmq/robustmq-go/pkg/cmap"
)

// CacheManager is the placement center's in-memory view of cluster
// membership, raft voters, and the MQTT catalog. Every mutation is
// applied exclusively through FSM.Apply so all replicas converge on the
// same state; CacheManager itself has no raft awareness and is safe to
// read from any goroutine, grounded method-for-method on the source
// PlacementCacheManager (add_broker_node/get_broker_node/report_broker_heart
// and friends), swapping DashMap for pkg/cmap.
type CacheManager struct {
	clusters    *cmap.Map[string, ClusterInfo]
	nodes       *cmap.Map[string, BrokerNode]       // key: nodeKey(cluster, nodeID)
	heartbeats  *cmap.Map[string, NodeHeartbeatData] // key: nodeKey(cluster, nodeID)
	raftMembers *cmap.Map[string, RaftMember]        // key: nodeID

	users      *cmap.Map[string, MqttUser]
	topics     *cmap.Map[string, MqttTopic]
	sessions   *cmap.Map[string, MqttSession]
	acls       *cmap.Map[string, MqttAcl]
	blacklists *cmap.Map[string, MqttBlackList]

	shardMap *ShardMap
	segments *cmap.Map[string, JournalSegment] // key: JournalSegment.Key()
}

// NewCacheManager creates an empty cache, mirroring the source
// PlacementCacheManager::new before load_cache runs.
func NewCacheManager() *CacheManager {
	return &CacheManager{
		clusters:    cmap.New[string, ClusterInfo](),
		nodes:       cmap.New[string, BrokerNode](),
		heartbeats:  cmap.New[string, NodeHeartbeatData](),
		raftMembers: cmap.New[string, RaftMember](),
		users:       cmap.New[string, MqttUser](),
		topics:      cmap.New[string, MqttTopic](),
		sessions:    cmap.New[string, MqttSession](),
		acls:        cmap.New[string, MqttAcl](),
		blacklists:  cmap.New[string, MqttBlackList](),
		shardMap:    NewShardMap(),
		segments:    cmap.New[string, JournalSegment](),
	}
}

func nodeKey(clusterName, nodeID string) string {
	return clusterName + "_" + nodeID
}

// AddCluster registers a broker cluster.
func (c *CacheManager) AddCluster(cluster ClusterInfo) {
	c.clusters.Set(cluster.ClusterName, cluster)
}

// AddBrokerNode registers or replaces a broker node and puts it on the
// shard replica ring.
func (c *CacheManager) AddBrokerNode(node BrokerNode) {
	c.nodes.Set(nodeKey(node.ClusterName, node.NodeID), node)
	c.shardMap.AddNode(node.NodeID)
}

// RemoveBrokerNode deregisters a broker node and pulls it off the ring.
func (c *CacheManager) RemoveBrokerNode(clusterName, nodeID string) (BrokerNode, bool) {
	key := nodeKey(clusterName, nodeID)
	node, ok := c.nodes.Get(key)
	if !ok {
		return BrokerNode{}, false
	}
	c.nodes.Delete(key)
	c.heartbeats.Delete(key)
	c.shardMap.RemoveNode(nodeID)
	return node, true
}

// GetBrokerNode looks up one broker node.
func (c *CacheManager) GetBrokerNode(clusterName, nodeID string) (BrokerNode, bool) {
	return c.nodes.Get(nodeKey(clusterName, nodeID))
}

// ListBrokerNodes returns every node registered under clusterName.
func (c *CacheManager) ListBrokerNodes(clusterName string) []BrokerNode {
	var out []BrokerNode
	c.nodes.Range(func(_ string, node BrokerNode) bool {
		if node.ClusterName == clusterName {
			out = append(out, node)
		}
		return true
	})
	return out
}

// ReportHeartbeat records the current time as the last-seen time for a
// broker node.
func (c *CacheManager) ReportHeartbeat(clusterName, nodeID string) {
	c.heartbeats.Set(nodeKey(clusterName, nodeID), NodeHeartbeatData{
		ClusterName: clusterName,
		NodeID:      nodeID,
		Time:        nowSecond(),
	})
}

// GetHeartbeat returns the last-seen time for a broker node.
func (c *CacheManager) GetHeartbeat(clusterName, nodeID string) (NodeHeartbeatData, bool) {
	return c.heartbeats.Get(nodeKey(clusterName, nodeID))
}

// StaleNodes returns every (clusterName, nodeID) pair whose heartbeat is
// older than timeoutSeconds, for heartbeat.go's sweep.
func (c *CacheManager) StaleNodes(timeoutSeconds int64) []NodeHeartbeatData {
	cutoff := nowSecond() - timeoutSeconds
	var stale []NodeHeartbeatData
	c.heartbeats.Range(func(_ string, hb NodeHeartbeatData) bool {
		if hb.Time < cutoff {
			stale = append(stale, hb)
		}
		return true
	})
	return stale
}

// AddRaftMember records a placement center raft voter.
func (c *CacheManager) AddRaftMember(m RaftMember) {
	c.raftMembers.Set(m.NodeID, m)
}

// RemoveRaftMember forgets a placement center raft voter.
func (c *CacheManager) RemoveRaftMember(nodeID string) {
	c.raftMembers.Delete(nodeID)
}

// RaftMembers returns every known raft voter.
func (c *CacheManager) RaftMembers() []RaftMember {
	return c.raftMembers.Values()
}

// ShardMap returns the cache's consistent-hash shard assignment ring.
func (c *CacheManager) ShardMap() *ShardMap {
	return c.shardMap
}

// MQTT catalog accessors. Mutations always go through FSM.Apply first;
// these are the methods the FSM calls once an entry is committed.

func (c *CacheManager) PutUser(u MqttUser)              { c.users.Set(u.Username, u) }
func (c *CacheManager) DeleteUser(username string)       { c.users.Delete(username) }
func (c *CacheManager) GetUser(username string) (MqttUser, bool) { return c.users.Get(username) }
func (c *CacheManager) ListUsers() []MqttUser            { return c.users.Values() }

func (c *CacheManager) PutTopic(t MqttTopic)              { c.topics.Set(t.TopicName, t) }
func (c *CacheManager) DeleteTopic(name string)            { c.topics.Delete(name) }
func (c *CacheManager) GetTopic(name string) (MqttTopic, bool) { return c.topics.Get(name) }
func (c *CacheManager) ListTopics() []MqttTopic            { return c.topics.Values() }

func (c *CacheManager) PutSession(s MqttSession)                { c.sessions.Set(s.ClientID, s) }
func (c *CacheManager) DeleteSession(clientID string)            { c.sessions.Delete(clientID) }
func (c *CacheManager) GetSession(clientID string) (MqttSession, bool) { return c.sessions.Get(clientID) }
func (c *CacheManager) ListSessions() []MqttSession              { return c.sessions.Values() }

func (c *CacheManager) PutAcl(key string, a MqttAcl) { c.acls.Set(key, a) }
func (c *CacheManager) DeleteAcl(key string)         { c.acls.Delete(key) }
func (c *CacheManager) ListAcls() []MqttAcl          { return c.acls.Values() }

func (c *CacheManager) PutBlackList(key string, b MqttBlackList) { c.blacklists.Set(key, b) }
func (c *CacheManager) DeleteBlackList(key string)               { c.blacklists.Delete(key) }
func (c *CacheManager) ListBlackLists() []MqttBlackList          { return c.blacklists.Values() }

// PutSegment upserts a journal segment record, mirroring the source
// SegmentStorage::save_segment.
func (c *CacheManager) PutSegment(s JournalSegment) { c.segments.Set(s.Key(), s) }

// DeleteSegment removes a journal segment record. Repeated deletes are
// no-ops, matching SegmentStorage::delete_segment's idempotence.
func (c *CacheManager) DeleteSegment(namespace, shardName string, segmentSeq int64) {
	c.segments.Delete(segmentKey(namespace, shardName, segmentSeq))
}

// GetSegment looks up one journal segment.
func (c *CacheManager) GetSegment(namespace, shardName string, segmentSeq int64) (JournalSegment, bool) {
	return c.segments.Get(segmentKey(namespace, shardName, segmentSeq))
}

// ListSegments returns every segment recorded for one shard.
func (c *CacheManager) ListSegments(namespace, shardName string) []JournalSegment {
	prefix := namespace + "/" + shardName + "/"
	var out []JournalSegment
	c.segments.Range(func(key string, seg JournalSegment) bool {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, seg)
		}
		return true
	})
	return out
}

// DeleteShardSegments removes every segment recorded for one shard, the
// segment half of the shard-deletion cascade.
func (c *CacheManager) DeleteShardSegments(namespace, shardName string) {
	for _, seg := range c.ListSegments(namespace, shardName) {
		c.segments.Delete(seg.Key())
	}
}
