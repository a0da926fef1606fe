package placement

import (
	"errors"
	"testing"
)

func TestCatalog_MutationsRequireLeadership(t *testing.T) {
	s, err := NewServer(validConfig(t))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	catalog := NewCatalog(s)

	if err := catalog.CreateUser(MqttUser{Username: "alice"}); !errors.Is(err, ErrNotLeader) {
		t.Errorf("CreateUser = %v, want ErrNotLeader", err)
	}
	if err := catalog.RegisterNode(BrokerNode{ClusterName: "mqtt", NodeID: "n1"}); !errors.Is(err, ErrNotLeader) {
		t.Errorf("RegisterNode = %v, want ErrNotLeader", err)
	}
	if _, err := catalog.CreateShard(JournalShard{Namespace: "default", ShardName: "s0"}, 1); !errors.Is(err, ErrNotLeader) {
		t.Errorf("CreateShard = %v, want ErrNotLeader", err)
	}
}

func TestCatalog_CreateUserRejectsDuplicateEvenWithoutLeadership(t *testing.T) {
	s, err := NewServer(validConfig(t))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	catalog := NewCatalog(s)

	s.Cache().PutUser(MqttUser{Username: "alice"})
	if err := catalog.CreateUser(MqttUser{Username: "alice"}); err == nil {
		t.Fatal("expected duplicate user create to fail")
	}
}
