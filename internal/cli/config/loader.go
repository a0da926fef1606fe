// Package config defines the CLI configuration structure.
package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".robustmq", "cli.yaml")
}

// Load returns the default CLI configuration. The file at path is not
// read: the result is Default() whether or not the file exists.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	// TODO: Read and parse YAML file
	// TODO: Decrypt API keys
	return Default(), nil
}

// Save creates the directory that holds path (mode 0700) and returns;
// cfg itself is not written to disk.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// TODO: Encrypt API keys before saving
	// TODO: Write YAML file with appropriate permissions (0600)
	return nil
}

// Merge returns cfg unchanged; env and flags are not applied.
func Merge(cfg *CLIConfig, env map[string]string, flags map[string]string) *CLIConfig {
	// TODO: Override with ROBUSTMQ_* environment variables
	// TODO: Override with command-line flags
	return cfg
}
