// Package config provides CLI configuration for RobustMQ.
//
// This package defines CLI-specific configuration:
//
//   - spec.go: CLIConfig struct (~/.robustmq/cli.yaml)
//   - loader.go: Load/Save/Merge entry points (Load returns the
//     defaults, Save writes no file, Merge applies no overrides)
//
// Configuration includes:
//
//   - Default connection profile
//   - Output format preferences
//
// There are no color or history-file settings.
//
// @design DS-0601
package config
