package placement

import "testing"

func TestCacheManager_BrokerNodeLifecycle(t *testing.T) {
	c := NewCacheManager()
	node := BrokerNode{ClusterName: "mqtt", NodeID: "n1", NodeInnerAddr: "127.0.0.1:6300"}
	c.AddBrokerNode(node)

	got, ok := c.GetBrokerNode("mqtt", "n1")
	if !ok || got.NodeInnerAddr != node.NodeInnerAddr {
		t.Fatalf("GetBrokerNode = %+v, %v", got, ok)
	}

	list := c.ListBrokerNodes("mqtt")
	if len(list) != 1 {
		t.Fatalf("expected 1 node, got %d", len(list))
	}

	removed, ok := c.RemoveBrokerNode("mqtt", "n1")
	if !ok || removed.NodeID != "n1" {
		t.Fatalf("RemoveBrokerNode = %+v, %v", removed, ok)
	}
	if _, ok := c.GetBrokerNode("mqtt", "n1"); ok {
		t.Error("node should be gone after removal")
	}
}

func TestCacheManager_Heartbeat(t *testing.T) {
	c := NewCacheManager()
	c.AddBrokerNode(BrokerNode{ClusterName: "mqtt", NodeID: "n1"})
	c.ReportHeartbeat("mqtt", "n1")

	hb, ok := c.GetHeartbeat("mqtt", "n1")
	if !ok {
		t.Fatal("expected heartbeat to be recorded")
	}
	if hb.NodeID != "n1" {
		t.Errorf("unexpected heartbeat %+v", hb)
	}

	if stale := c.StaleNodes(1 << 30); len(stale) != 0 {
		t.Errorf("heartbeat should not be stale against a generous timeout, got %v", stale)
	}
	if stale := c.StaleNodes(-1); len(stale) == 0 {
		t.Error("expected heartbeat to be stale once the cutoff is in the future")
	}
}

func TestCacheManager_Catalog(t *testing.T) {
	c := NewCacheManager()

	c.PutUser(MqttUser{Username: "alice"})
	if _, ok := c.GetUser("alice"); !ok {
		t.Error("expected user alice")
	}
	c.DeleteUser("alice")
	if _, ok := c.GetUser("alice"); ok {
		t.Error("expected alice deleted")
	}

	c.PutTopic(MqttTopic{TopicName: "sensors/temp"})
	if len(c.ListTopics()) != 1 {
		t.Error("expected 1 topic")
	}

	c.PutSession(MqttSession{ClientID: "c1"})
	if _, ok := c.GetSession("c1"); !ok {
		t.Error("expected session c1")
	}

	c.PutAcl("acl1", MqttAcl{Username: "alice", Permission: "allow"})
	if len(c.ListAcls()) != 1 {
		t.Error("expected 1 acl")
	}

	c.PutBlackList("bl1", MqttBlackList{ResourceName: "alice"})
	if len(c.ListBlackLists()) != 1 {
		t.Error("expected 1 blacklist entry")
	}
}

func TestCacheManager_RaftMembers(t *testing.T) {
	c := NewCacheManager()
	c.AddRaftMember(RaftMember{NodeID: "1", RaftAddr: "127.0.0.1:6101"})
	c.AddRaftMember(RaftMember{NodeID: "2", RaftAddr: "127.0.0.1:6102"})

	if len(c.RaftMembers()) != 2 {
		t.Fatalf("expected 2 members, got %d", len(c.RaftMembers()))
	}

	c.RemoveRaftMember("1")
	if len(c.RaftMembers()) != 1 {
		t.Errorf("expected 1 member after removal, got %d", len(c.RaftMembers()))
	}
}
