// Package command provides CLI command definitions for RobustMQ.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, mode detection
//   - session.go: Session subcommand group
//   - cluster.go: Cluster subcommand group
//
// Commands follow a consistent pattern of parsing flags,
// calling the appropriate service, and formatting output.
//
// @req RQ-0602
// @design DS-0601
package command
