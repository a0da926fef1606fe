package placement

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultVirtualNodeCount is the number of virtual nodes each physical
// broker gets on the consistent hash ring.
const DefaultVirtualNodeCount = 256

// ShardMap assigns journal shard replicas to broker nodes using
// consistent hashing with virtual nodes, so adding or removing a broker
// only reshuffles the shards that hashed near it on the ring.
type ShardMap struct {
	mu sync.RWMutex

	// replicas maps a JournalShard's Key() to its ordered replica set;
	// replicas[0] is the segment's active (leader) replica.
	replicas map[string][]string

	// version is monotonically increasing.
	version uint64

	// virtualNodes maps virtual node hash to physical node ID.
	virtualNodes map[uint64]string

	// sortedHashes holds virtualNodes' keys in sorted order for lookup.
	sortedHashes []uint64
}

// NewShardMap creates an empty shard map.
func NewShardMap() *ShardMap {
	return &ShardMap{
		replicas:     make(map[string][]string),
		virtualNodes: make(map[uint64]string),
	}
}

// AddNode adds a broker to the consistent hash ring.
func (m *ShardMap) AddNode(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < DefaultVirtualNodeCount; i++ {
		m.virtualNodes[hashVirtualNode(nodeID, i)] = nodeID
	}
	m.rebuildSortedHashes()
	m.version++
}

// RemoveNode removes a broker from the ring. Shards whose replica set
// included nodeID keep their remaining replicas; callers must reassign
// to restore the target replication factor.
func (m *ShardMap) RemoveNode(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < DefaultVirtualNodeCount; i++ {
		delete(m.virtualNodes, hashVirtualNode(nodeID, i))
	}
	for key, replicas := range m.replicas {
		m.replicas[key] = removeString(replicas, nodeID)
	}
	m.rebuildSortedHashes()
	m.version++
}

// AssignReplicas picks replicationFactor distinct broker nodes for shard
// from the ring, walking clockwise from the shard key's hash, and
// records the assignment. The first entry is the active replica.
func (m *ShardMap) AssignReplicas(shard JournalShard, replicationFactor int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	replicas := m.walkRing(shard.Key(), replicationFactor)
	if len(replicas) > 0 {
		m.replicas[shard.Key()] = replicas
		m.version++
	}
	return append([]string(nil), replicas...)
}

// GetReplicas returns the replica set for a shard, or nil if unassigned.
func (m *ShardMap) GetReplicas(shard JournalShard) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	replicas := m.replicas[shard.Key()]
	return append([]string(nil), replicas...)
}

// ActiveReplica returns the shard's active (leader) replica node ID, or
// "" if the shard has no assignment.
func (m *ShardMap) ActiveReplica(shard JournalShard) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	replicas := m.replicas[shard.Key()]
	if len(replicas) == 0 {
		return ""
	}
	return replicas[0]
}

// DeleteShard removes a shard's replica assignment entirely.
func (m *ShardMap) DeleteShard(shard JournalShard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.replicas, shard.Key())
	m.version++
}

// UnderReplicated returns every assigned shard whose replica count is
// below target.
func (m *ShardMap) UnderReplicated(target int) []JournalShard {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []JournalShard
	for key, replicas := range m.replicas {
		if len(replicas) < target {
			out = append(out, parseShardKey(key))
		}
	}
	return out
}

// AllNodes returns every physical node currently on the ring.
func (m *ShardMap) AllNodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, nodeID := range m.virtualNodes {
		seen[nodeID] = struct{}{}
	}
	nodes := make([]string, 0, len(seen))
	for nodeID := range seen {
		nodes = append(nodes, nodeID)
	}
	sort.Strings(nodes)
	return nodes
}

// AllShards returns every shard with a recorded replica assignment.
func (m *ShardMap) AllShards() []JournalShard {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]JournalShard, 0, len(m.replicas))
	for key := range m.replicas {
		out = append(out, parseShardKey(key))
	}
	return out
}

// SetReplicas installs a shard's replica set verbatim, used when
// restoring a snapshot where the assignment was already decided rather
// than recomputed from the current ring.
func (m *ShardMap) SetReplicas(shard JournalShard, replicas []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replicas[shard.Key()] = append([]string(nil), replicas...)
	m.version++
}

// Version returns the shard map's change counter.
func (m *ShardMap) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Clone returns a deep copy of the shard map, used for raft snapshots.
func (m *ShardMap) Clone() *ShardMap {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clone := &ShardMap{
		replicas:     make(map[string][]string, len(m.replicas)),
		version:      m.version,
		virtualNodes: make(map[uint64]string, len(m.virtualNodes)),
		sortedHashes: append([]uint64(nil), m.sortedHashes...),
	}
	for k, v := range m.replicas {
		clone.replicas[k] = append([]string(nil), v...)
	}
	for k, v := range m.virtualNodes {
		clone.virtualNodes[k] = v
	}
	return clone
}

// walkRing returns up to n distinct physical nodes found walking the
// ring clockwise from hash(key), the standard consistent-hashing
// replica-placement strategy.
func (m *ShardMap) walkRing(key string, n int) []string {
	if len(m.sortedHashes) == 0 || n <= 0 {
		return nil
	}

	target := murmur3.Sum64([]byte(key))
	start := sort.Search(len(m.sortedHashes), func(i int) bool {
		return m.sortedHashes[i] >= target
	})

	seen := make(map[string]struct{}, n)
	var out []string
	for i := 0; i < len(m.sortedHashes) && len(out) < n; i++ {
		idx := (start + i) % len(m.sortedHashes)
		nodeID := m.virtualNodes[m.sortedHashes[idx]]
		if _, ok := seen[nodeID]; ok {
			continue
		}
		seen[nodeID] = struct{}{}
		out = append(out, nodeID)
	}
	return out
}

func (m *ShardMap) rebuildSortedHashes() {
	m.sortedHashes = make([]uint64, 0, len(m.virtualNodes))
	for hash := range m.virtualNodes {
		m.sortedHashes = append(m.sortedHashes, hash)
	}
	sort.Slice(m.sortedHashes, func(i, j int) bool { return m.sortedHashes[i] < m.sortedHashes[j] })
}

func hashVirtualNode(nodeID string, virtualIndex int) uint64 {
	h := murmur3.New64()
	h.Write([]byte(nodeID))
	indexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(indexBytes, uint32(virtualIndex))
	h.Write(indexBytes)
	return h.Sum64()
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func parseShardKey(key string) JournalShard {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return JournalShard{Namespace: key[:i], ShardName: key[i+1:]}
		}
	}
	return JournalShard{ShardName: key}
}
