package placement

import (
	"testing"

	"github.com/robustmq/robustmq-go/internal/errs"
)

func alwaysForward(string) bool { return true }
func neverForward(string) bool  { return false }

func TestForwardGuard_LeaderAllowsThrough(t *testing.T) {
	guard := NewForwardGuard(func() bool { return true }, func() string { return "n1" }, func(string) (string, bool) { return "", false })
	if err := guard.Check("CreateUser", alwaysForward); err != nil {
		t.Fatalf("expected leader to pass through, got %v", err)
	}
}

func TestForwardGuard_NonForwardInterfaceAllowsThrough(t *testing.T) {
	guard := NewForwardGuard(func() bool { return false }, func() string { return "n1" }, func(string) (string, bool) { return "addr", true })
	if err := guard.Check("ListNode", neverForward); err != nil {
		t.Fatalf("expected read-only interface to pass through, got %v", err)
	}
}

func TestForwardGuard_FollowerReturnsForwardable(t *testing.T) {
	guard := NewForwardGuard(func() bool { return false }, func() string { return "n1" }, func(nodeID string) (string, bool) {
		if nodeID == "n1" {
			return "127.0.0.1:6200", true
		}
		return "", false
	})

	err := guard.Check("CreateUser", alwaysForward)
	if err == nil {
		t.Fatal("expected forwardable error")
	}
	if !errs.IsForwardable(err.Error()) {
		t.Fatalf("expected forwardable error text, got %v", err)
	}
	if addr := errs.ForwardAddr(err.Error()); addr != "127.0.0.1:6200" {
		t.Errorf("ForwardAddr = %q, want 127.0.0.1:6200", addr)
	}
}

func TestForwardGuard_NoLeaderElected(t *testing.T) {
	guard := NewForwardGuard(func() bool { return false }, func() string { return "" }, func(string) (string, bool) { return "", false })
	err := guard.Check("CreateUser", alwaysForward)
	if err == nil {
		t.Fatal("expected error when no leader elected")
	}
	if errs.IsForwardable(err.Error()) {
		t.Fatal("expected a non-forwardable error when leader is unknown")
	}
}
