package placement

import "github.com/robustmq/robustmq-go/internal/errs"

// ForwardGuard decides whether an incoming forward-set request must be
// rejected with a leader-redirect error, given this node's raft state.
type ForwardGuard struct {
	isLeader func() bool
	leaderID func() string
	leaderRPC func(nodeID string) (rpcAddr string, ok bool)
}

// NewForwardGuard builds a guard around a raft node's leadership state.
// leaderRPC resolves a raft node ID to the rpc_addr brokers should
// connect to, since raft's own leader address is the raft transport
// address, not the RPC listen address.
func NewForwardGuard(isLeader func() bool, leaderID func() string, leaderRPC func(nodeID string) (string, bool)) *ForwardGuard {
	return &ForwardGuard{isLeader: isLeader, leaderID: leaderID, leaderRPC: leaderRPC}
}

// Check returns a forwardable error if iface is in the forward set and
// this node is not the raft leader; nil otherwise.
func (g *ForwardGuard) Check(iface string, shouldForward func(string) bool) error {
	if !shouldForward(iface) {
		return nil
	}
	if g.isLeader() {
		return nil
	}

	leaderID := g.leaderID()
	if leaderID == "" {
		return errs.ErrNotLeader.WithDetails("no leader elected yet")
	}
	rpcAddr, ok := g.leaderRPC(leaderID)
	if !ok {
		return errs.ErrNotLeader.WithDetails("leader rpc address unknown")
	}
	return errs.NewForwardable(leaderID, rpcAddr)
}
