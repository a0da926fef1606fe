// Package config provides server configuration for RobustMQ's three
// services (placement-center, journal-server, mqtt-server).
//
// This package defines the configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition, one section per service
//   - default.go: Default configuration values
//   - verify.go: Business validation (required fields, directory creation)
//   - sanitize.go: Log sanitization (hide sensitive values)
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
