package command

import (
	"testing"

	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

func TestClusterCommand_Structure(t *testing.T) {
	cmd := ClusterCommand()
	if cmd == nil {
		t.Fatal("ClusterCommand returned nil")
	}

	if cmd.Name != "cluster" {
		t.Errorf("Name = %q, want %q", cmd.Name, "cluster")
	}

	if len(cmd.Aliases) == 0 || cmd.Aliases[0] != "cls" {
		t.Error("expected alias 'cls'")
	}

	subNames := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subNames[sub.Name] = true
	}

	for _, name := range []string{"status", "nodes"} {
		if !subNames[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestClusterStatus_Success(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServicePlacement, rpcpool.InterfaceClusterStatus, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ClusterStatusReply{
			LeaderID:   "node-1",
			LeaderAddr: "127.0.0.1:6100",
			NodeIDs:    []string{"node-1", "node-2", "node-3"},
		}, nil
	})

	ctx := testContext(server, map[string]any{"output": "json"}, nil)
	if err := clusterStatus(ctx); err != nil {
		t.Errorf("clusterStatus() error = %v", err)
	}
}

func TestClusterStatus_TableFormat(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServicePlacement, rpcpool.InterfaceClusterStatus, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ClusterStatusReply{
			LeaderID:   "node-1",
			LeaderAddr: "127.0.0.1:6100",
			NodeIDs:    []string{"node-1"},
		}, nil
	})

	ctx := testContext(server, map[string]any{"output": "table"}, nil)
	if err := clusterStatus(ctx); err != nil {
		t.Errorf("clusterStatus() error = %v", err)
	}
}

func TestClusterStatus_ServerError(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	ctx := testContext(server, nil, nil)
	if err := clusterStatus(ctx); err == nil {
		t.Error("clusterStatus() expected error when no handler registered")
	}
}

func TestClusterNodes_Success(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServicePlacement, rpcpool.InterfaceListNode, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ListNodeReply{
			Nodes: []rpcpool.NodeInfo{
				{NodeID: "node-1", RPCAddr: "127.0.0.1:6100", RaftAddr: "127.0.0.1:6200"},
				{NodeID: "node-2", RPCAddr: "127.0.0.1:6101", RaftAddr: "127.0.0.1:6201"},
			},
		}, nil
	})

	ctx := testContext(server, map[string]any{"output": "json"}, nil)
	if err := clusterNodes(ctx); err != nil {
		t.Errorf("clusterNodes() error = %v", err)
	}
}

func TestClusterNodes_TableFormat(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServicePlacement, rpcpool.InterfaceListNode, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ListNodeReply{
			Nodes: []rpcpool.NodeInfo{
				{NodeID: "node-1", RPCAddr: "127.0.0.1:6100", RaftAddr: "127.0.0.1:6200"},
			},
		}, nil
	})

	ctx := testContext(server, map[string]any{"output": "table"}, nil)
	if err := clusterNodes(ctx); err != nil {
		t.Errorf("clusterNodes() error = %v", err)
	}
}

func TestClusterNodes_Empty(t *testing.T) {
	server := newMockPlacementServer()
	defer server.Close()

	server.handle(rpcpool.ServicePlacement, rpcpool.InterfaceListNode, func(req *rpcpool.Envelope) (any, error) {
		return rpcpool.ListNodeReply{}, nil
	})

	ctx := testContext(server, map[string]any{"output": "table"}, nil)
	if err := clusterNodes(ctx); err != nil {
		t.Errorf("clusterNodes() error = %v", err)
	}
}
