// Package config defines the server configuration structure.
package config

import (
	"errors"
	"os"
)

// Verify performs business-level validation beyond what koanf's decode
// already guarantees: required fields, directory creation, and sane
// numeric ranges.
func Verify(cfg *ServerConfig) error {
	if err := verifyPlacement(&cfg.Placement); err != nil {
		return err
	}
	if err := verifyJournal(&cfg.Journal); err != nil {
		return err
	}
	if err := verifyMqtt(&cfg.Mqtt); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return nil
}

func verifyPlacement(cfg *PlacementSection) error {
	if cfg.DataDir == "" {
		return errors.New("placement.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create placement data directory: " + err.Error())
	}
	if cfg.ReplicationFactor < 1 || cfg.ReplicationFactor > 7 {
		return errors.New("placement.replication_factor must be between 1 and 7")
	}
	if cfg.Bootstrap && len(cfg.Seeds) > 0 {
		return errors.New("placement.bootstrap and placement.seeds are mutually exclusive")
	}
	if !cfg.Bootstrap && len(cfg.Seeds) == 0 {
		return errors.New("placement.seeds is required when placement.bootstrap is false")
	}
	return nil
}

func verifyJournal(cfg *JournalSection) error {
	if cfg.DataDir == "" {
		return errors.New("journal.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create journal data directory: " + err.Error())
	}
	if len(cfg.PlacementAddrs) == 0 {
		return errors.New("journal.placement_addrs is required")
	}
	return nil
}

func verifyMqtt(cfg *MqttSection) error {
	if len(cfg.PlacementAddrs) == 0 {
		return errors.New("mqtt.placement_addrs is required")
	}
	if cfg.MaxInflight < 1 {
		return errors.New("mqtt.max_inflight must be at least 1")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	// Check if data directory exists or can be created
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}

	if cfg.SnapshotKeep < 1 {
		return errors.New("storage.snapshot_keep must be at least 1")
	}

	return nil
}
