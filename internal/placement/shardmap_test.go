package placement

import "testing"

func TestShardMap_AssignReplicas(t *testing.T) {
	m := NewShardMap()
	for _, n := range []string{"node-1", "node-2", "node-3", "node-4"} {
		m.AddNode(n)
	}

	shard := JournalShard{Namespace: "ns1", ShardName: "shard-0"}
	replicas := m.AssignReplicas(shard, 3)
	if len(replicas) != 3 {
		t.Fatalf("expected 3 replicas, got %d (%v)", len(replicas), replicas)
	}

	seen := make(map[string]bool)
	for _, r := range replicas {
		if seen[r] {
			t.Fatalf("duplicate replica %q in %v", r, replicas)
		}
		seen[r] = true
	}

	if got := m.GetReplicas(shard); len(got) != 3 {
		t.Errorf("GetReplicas returned %v, want 3 entries", got)
	}
	if got := m.ActiveReplica(shard); got != replicas[0] {
		t.Errorf("ActiveReplica = %q, want %q", got, replicas[0])
	}
}

func TestShardMap_AssignReplicas_Deterministic(t *testing.T) {
	m := NewShardMap()
	for _, n := range []string{"a", "b", "c"} {
		m.AddNode(n)
	}
	shard := JournalShard{Namespace: "ns1", ShardName: "shard-7"}

	first := m.AssignReplicas(shard, 2)
	second := m.AssignReplicas(shard, 2)
	if len(first) != len(second) {
		t.Fatalf("assignment not stable: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("assignment not stable: %v vs %v", first, second)
		}
	}
}

func TestShardMap_RemoveNode(t *testing.T) {
	m := NewShardMap()
	for _, n := range []string{"a", "b", "c"} {
		m.AddNode(n)
	}
	shard := JournalShard{Namespace: "ns", ShardName: "s0"}
	m.AssignReplicas(shard, 3)

	m.RemoveNode("b")
	for _, r := range m.GetReplicas(shard) {
		if r == "b" {
			t.Errorf("removed node still present in replica set: %v", m.GetReplicas(shard))
		}
	}

	for _, n := range m.AllNodes() {
		if n == "b" {
			t.Errorf("removed node still on ring: %v", m.AllNodes())
		}
	}
}

func TestShardMap_UnderReplicated(t *testing.T) {
	m := NewShardMap()
	m.AddNode("only-node")

	shard := JournalShard{Namespace: "ns", ShardName: "s0"}
	m.AssignReplicas(shard, 3)

	under := m.UnderReplicated(3)
	if len(under) != 1 || under[0] != shard {
		t.Errorf("expected %v under-replicated, got %v", shard, under)
	}
}

func TestShardMap_NoNodesAssignsNothing(t *testing.T) {
	m := NewShardMap()
	shard := JournalShard{Namespace: "ns", ShardName: "s0"}
	replicas := m.AssignReplicas(shard, 3)
	if replicas != nil {
		t.Errorf("expected nil replicas with no nodes, got %v", replicas)
	}
}

func TestShardMap_Clone(t *testing.T) {
	m := NewShardMap()
	m.AddNode("a")
	shard := JournalShard{Namespace: "ns", ShardName: "s0"}
	m.AssignReplicas(shard, 1)

	clone := m.Clone()
	clone.AssignReplicas(JournalShard{Namespace: "ns", ShardName: "s1"}, 1)

	if len(m.GetReplicas(JournalShard{Namespace: "ns", ShardName: "s1"})) != 0 {
		t.Error("mutating clone affected original shard map")
	}
}
