package placement

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

func newTestJournalNode(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	calls := &sync.Map{}
	procedure, handler := rpcpool.NewCallHandler(func(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
		count, _ := calls.LoadOrStore(string(req.Interface), 0)
		calls.Store(string(req.Interface), count.(int)+1)
		return &rpcpool.Envelope{Service: req.Service, Interface: req.Interface}, nil
	})
	mux := http.NewServeMux()
	mux.Handle(procedure, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestRebalanceManager_Reconcile_CreatesAndDeletes(t *testing.T) {
	nodeA, callsA := newTestJournalNode(t)
	nodeB, callsB := newTestJournalNode(t)

	addrOf := func(nodeID string) (string, bool) {
		switch nodeID {
		case "a":
			return nodeA.Listener.Addr().String(), true
		case "b":
			return nodeB.Listener.Addr().String(), true
		}
		return "", false
	}

	pool := rpcpool.NewPool(http.DefaultClient, nil)
	dispatcher := rpcpool.NewDispatcher(pool)
	rm := NewRebalanceManager(DefaultRebalanceConfig(), dispatcher, addrOf)

	old := map[string][]string{
		"default/orders-0": {"a"},
	}
	next := map[string][]string{
		"default/orders-0": {"b"},
	}

	if err := rm.Reconcile(context.Background(), old, next); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if _, ok := callsA.Load("DeleteShard"); !ok {
		t.Error("expected node a to receive DeleteShard")
	}
	if _, ok := callsB.Load("CreateShard"); !ok {
		t.Error("expected node b to receive CreateShard")
	}

	task, ok := rm.GetTaskStatus("default/orders-0")
	if !ok {
		t.Fatal("expected a migration task to be recorded")
	}
	if task.Status != TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}
}

func TestRebalanceManager_Reconcile_NoChangesIsNoop(t *testing.T) {
	pool := rpcpool.NewPool(http.DefaultClient, nil)
	dispatcher := rpcpool.NewDispatcher(pool)
	rm := NewRebalanceManager(DefaultRebalanceConfig(), dispatcher, func(string) (string, bool) { return "", false })

	same := map[string][]string{"default/orders-0": {"a"}}
	if err := rm.Reconcile(context.Background(), same, same); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, ok := rm.GetTaskStatus("default/orders-0"); ok {
		t.Error("expected no task recorded when replicas are unchanged")
	}
}

func TestRebalanceManager_ConcurrentReconcileRejected(t *testing.T) {
	pool := rpcpool.NewPool(http.DefaultClient, nil)
	dispatcher := rpcpool.NewDispatcher(pool)
	rm := NewRebalanceManager(DefaultRebalanceConfig(), dispatcher, func(string) (string, bool) { return "", false })
	rm.running.Store(true)

	err := rm.Reconcile(context.Background(), nil, map[string][]string{"x": {"a"}})
	if err == nil {
		t.Fatal("expected error when a reconcile is already running")
	}
}
