// Package main provides the entry point for journal-server.
//
// A journal-server process holds segment log replicas for the shards
// the placement center assigns it, appending and reading records
// locally while the placement center's FSM owns every ownership and
// sealing decision.
//
// Usage:
//
//	journal-server [flags]
//	journal-server --conf /path/to/config.yaml
package main
