// Package main provides the entry point for mqtt-server.
//
// An mqtt-server process runs the exclusive subscription push pipeline:
// spawning one goroutine per exclusive subscription, polling the
// message store for new records, and dispatching them under the
// negotiated QoS.
//
// Usage:
//
//	mqtt-server [flags]
//	mqtt-server --conf /path/to/config.yaml
package main
