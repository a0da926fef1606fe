package rpcpool

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/robustmq/robustmq-go/internal/errs"
)

func newTestServer(t *testing.T, fn Handler) *httptest.Server {
	t.Helper()
	procedure, handler := NewCallHandler(fn)
	mux := http.NewServeMux()
	mux.Handle(procedure, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatcher_FollowsForwardableError(t *testing.T) {
	leader := newTestServer(t, func(ctx context.Context, req *Envelope) (*Envelope, error) {
		return &Envelope{Service: req.Service, Interface: req.Interface}, nil
	})
	leaderAddr := leader.Listener.Addr().String()

	follower := newTestServer(t, func(ctx context.Context, req *Envelope) (*Envelope, error) {
		forwardable := errs.NewForwardable("2", leaderAddr)
		return nil, connect.NewError(connect.CodeUnavailable, forwardable)
	})

	pool := NewPool(http.DefaultClient, nil)
	d := NewDispatcher(pool)

	resp, err := d.Call(context.Background(), ServicePlacement, InterfaceCreateUser,
		[]string{follower.Listener.Addr().String()}, &Envelope{Service: ServicePlacement, Interface: InterfaceCreateUser})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Interface != InterfaceCreateUser {
		t.Errorf("unexpected reply: %+v", resp)
	}

	cached := pool.LeaderAddr(ServicePlacement, InterfaceCreateUser, follower.Listener.Addr().String())
	if cached != leaderAddr {
		t.Errorf("leader cache = %q, want %q", cached, leaderAddr)
	}
}

func TestDispatcher_ExhaustsRetries(t *testing.T) {
	calls := 0
	bad := newTestServer(t, func(ctx context.Context, req *Envelope) (*Envelope, error) {
		calls++
		return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("connection refused"))
	})

	pool := NewPool(http.DefaultClient, nil)
	d := NewDispatcher(pool)

	_, err := d.Call(context.Background(), ServiceKv, InterfaceGet,
		[]string{bad.Listener.Addr().String()}, &Envelope{Service: ServiceKv, Interface: InterfaceGet})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls < maxRetryTimes {
		t.Errorf("expected at least %d attempts, got %d", maxRetryTimes, calls)
	}
}

func TestDispatcher_NoAddresses(t *testing.T) {
	pool := NewPool(http.DefaultClient, nil)
	d := NewDispatcher(pool)

	_, err := d.Call(context.Background(), ServiceKv, InterfaceGet, nil, &Envelope{})
	if !errs.Is(err, errs.KindNoConnection) {
		t.Errorf("expected KindNoConnection, got %v", err)
	}
}
