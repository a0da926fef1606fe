package errs

import (
	"fmt"
	"regexp"
	"strings"
)

// addrPattern extracts the rpc_addr value from a forwardable error string.
// The wire format is free text containing `has to forward request to` and
// `rpc_addr: "host:port"`; clients never parse structured fields here,
// matching the source system's string-based forward signal.
var addrPattern = regexp.MustCompile(`rpc_addr: ?\\?"([^"\\]+)\\?"`)

const forwardMarker = "has to forward request to"

// NewForwardable builds the forwardable error a non-leader PC node returns
// for a forward-set request, pointing callers at the current leader.
func NewForwardable(leaderNodeID, leaderAddr string) *DomainError {
	msg := fmt.Sprintf(
		"%s: Some(%s), Some(Node { node_id: %s, rpc_addr: %q })",
		forwardMarker, leaderNodeID, leaderNodeID, leaderAddr,
	)
	return ErrNotLeader.WithDetails(msg)
}

// ForwardAddr extracts the leader's rpc_addr from a forwardable error
// string, or "" if the string does not carry one.
func ForwardAddr(errText string) string {
	m := addrPattern.FindStringSubmatch(errText)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

// IsForwardable reports whether errText carries the forward marker.
func IsForwardable(errText string) bool {
	return strings.Contains(errText, forwardMarker)
}
