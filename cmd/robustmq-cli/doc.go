// Package main provides the entry point for robustmq-cli.
//
// The CLI tool provides command-line access to a RobustMQ cluster for:
//
//   - Cluster status and node membership (cluster status, cluster nodes)
//   - MQTT session inspection (session list, session get)
//
// Usage:
//
//	robustmq-cli [command] [flags]
//	robustmq-cli --placement 127.0.0.1:6100 cluster status
//	robustmq-cli --placement 127.0.0.1:6100 session list --output json
//	robustmq-cli repl --placement 127.0.0.1:6100
package main
