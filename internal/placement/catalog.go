package placement

import "fmt"

// Catalog is the forward-set-enforced CRUD surface over the MQTT catalog
// (users, topics, sessions, ACLs, blacklists) and cluster/raft membership
// writes. Every mutating method goes through Server.Apply so it only
// succeeds on the raft leader and is replicated before returning.
type Catalog struct {
	server *Server
}

// NewCatalog wraps server with the catalog CRUD surface.
func NewCatalog(server *Server) *Catalog {
	return &Catalog{server: server}
}

func (c *Catalog) RegisterNode(node BrokerNode) error {
	return c.server.Apply(LogEntryRegisterNode, node)
}

func (c *Catalog) UnRegisterNode(clusterName, nodeID string) error {
	return c.server.Apply(LogEntryUnRegisterNode, unregisterNodePayload{ClusterName: clusterName, NodeID: nodeID})
}

func (c *Catalog) Heartbeat(clusterName, nodeID string) error {
	return c.server.Apply(LogEntryHeartbeat, heartbeatPayload{ClusterName: clusterName, NodeID: nodeID})
}

// CreateShard assigns replicationFactor replicas for shard via the ring
// and records the assignment through raft.
func (c *Catalog) CreateShard(shard JournalShard, replicationFactor int) ([]string, error) {
	if err := c.server.Apply(LogEntryCreateShard, createShardPayload{Shard: shard, ReplicationFactor: replicationFactor}); err != nil {
		return nil, err
	}
	return c.server.Cache().ShardMap().GetReplicas(shard), nil
}

func (c *Catalog) DeleteShard(shard JournalShard) error {
	return c.server.Apply(LogEntryDeleteShard, shard)
}

// CreateSegment seals the shard's prior active segment (if any) before
// creating the new one Write, enforcing invariant I1: at most one
// segment per shard may carry status=Write at a time.
func (c *Catalog) CreateSegment(shard JournalShard, segmentSeq int64, replicas []string, replicaLeader string) error {
	for _, existing := range c.server.Cache().ListSegments(shard.Namespace, shard.ShardName) {
		if existing.Status == SegmentStatusWrite {
			sealed := existing
			sealed.Status = SegmentStatusSealUp
			if err := c.server.Apply(LogEntryCreateSegment, sealed); err != nil {
				return err
			}
		}
	}
	segment := JournalSegment{
		Namespace:     shard.Namespace,
		ShardName:     shard.ShardName,
		SegmentSeq:    segmentSeq,
		Status:        SegmentStatusWrite,
		Replicas:      replicas,
		ReplicaLeader: replicaLeader,
	}
	return c.server.Apply(LogEntryCreateSegment, segment)
}

func (c *Catalog) DeleteSegment(namespace, shardName string, segmentSeq int64) error {
	return c.server.Apply(LogEntryDeleteSegment, deleteSegmentPayload{Namespace: namespace, ShardName: shardName, SegmentSeq: segmentSeq})
}

func (c *Catalog) CreateUser(user MqttUser) error {
	if _, ok := c.server.Cache().GetUser(user.Username); ok {
		return fmt.Errorf("user %q already exists", user.Username)
	}
	return c.server.Apply(LogEntryCreateUser, user)
}

func (c *Catalog) DeleteUser(username string) error {
	return c.server.Apply(LogEntryDeleteUser, usernamePayload{Username: username})
}

func (c *Catalog) CreateTopic(topic MqttTopic) error {
	return c.server.Apply(LogEntryCreateTopic, topic)
}

func (c *Catalog) DeleteTopic(topicName string) error {
	return c.server.Apply(LogEntryDeleteTopic, topicNamePayload{TopicName: topicName})
}

func (c *Catalog) CreateSession(session MqttSession) error {
	return c.server.Apply(LogEntryCreateSession, session)
}

func (c *Catalog) UpdateSession(session MqttSession) error {
	return c.server.Apply(LogEntryUpdateSession, session)
}

func (c *Catalog) DeleteSession(clientID string) error {
	return c.server.Apply(LogEntryDeleteSession, clientIDPayload{ClientID: clientID})
}

func (c *Catalog) CreateAcl(key string, acl MqttAcl) error {
	return c.server.Apply(LogEntryCreateAcl, keyedAcl{Key: key, Acl: acl})
}

func (c *Catalog) DeleteAcl(key string) error {
	return c.server.Apply(LogEntryDeleteAcl, keyPayload{Key: key})
}

func (c *Catalog) CreateBlackList(key string, blackList MqttBlackList) error {
	return c.server.Apply(LogEntryCreateBlackList, keyedBlackList{Key: key, BlackList: blackList})
}

func (c *Catalog) DeleteBlackList(key string) error {
	return c.server.Apply(LogEntryDeleteBlackList, keyPayload{Key: key})
}
