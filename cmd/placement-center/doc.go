// Package main provides the entry point for placement-center.
//
// The placement center provides:
//
//   - Raft-replicated cluster membership and leader election
//   - Gossip-based peer discovery
//   - The MQTT catalog: users, topics, sessions, ACLs, blacklists
//   - Journal shard/segment ownership and rebalancing
//
// Usage:
//
//	placement-center [flags]
//	placement-center --conf /path/to/config.yaml
package main
