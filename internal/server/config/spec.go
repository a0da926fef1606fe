// Package config defines the server configuration structure shared by the
// placement-center, journal-server and mqtt-server binaries.
package config

import "time"

// ServerConfig is the root configuration loaded by every RobustMQ service
// binary. Each binary only reads the sections relevant to it, but all three
// share one file shape so operators can keep a single templated config
// across a deployment.
type ServerConfig struct {
	Placement PlacementSection `koanf:"placement"`
	Journal   JournalSection   `koanf:"journal"`
	Mqtt      MqttSection      `koanf:"mqtt"`
	Storage   StorageSection   `koanf:"storage"`
	Security  SecuritySection  `koanf:"security"`
	Log       LogSection       `koanf:"log"`
}

// PlacementSection configures the Placement Center's raft/gossip consensus
// layer and its client-facing RPC listener.
type PlacementSection struct {
	NodeID     string   `koanf:"node_id"`
	RPCAddr    string   `koanf:"rpc_addr"`
	RaftAddr   string   `koanf:"raft_addr"`
	GossipAddr string   `koanf:"gossip_addr"`
	GossipPort int      `koanf:"gossip_port"`
	Bootstrap  bool     `koanf:"bootstrap"`
	Seeds      []string `koanf:"seeds"`
	DataDir    string   `koanf:"data_dir"`

	ReplicationFactor int `koanf:"replication_factor"`

	RebalanceMaxRateMBps   int           `koanf:"rebalance_max_rate_mbps"`
	RebalanceMinTTL        time.Duration `koanf:"rebalance_min_ttl"`
	RebalanceConcurrentQty int           `koanf:"rebalance_concurrent_qty"`

	HeartbeatCheckInterval time.Duration `koanf:"heartbeat_check_interval"`
	HeartbeatTimeout       time.Duration `koanf:"heartbeat_timeout"`
}

// JournalSection configures a Journal Engine broker node.
type JournalSection struct {
	NodeID         string        `koanf:"node_id"`
	RPCAddr        string        `koanf:"rpc_addr"`
	DataDir        string        `koanf:"data_dir"`
	PlacementAddrs []string      `koanf:"placement_addrs"`
	MaxSegmentSize int64         `koanf:"max_segment_size"`
	MaxSegmentAge  time.Duration `koanf:"max_segment_age"`
}

// MqttSection configures an MQTT Delivery Core node.
type MqttSection struct {
	NodeID          string        `koanf:"node_id"`
	RPCAddr         string        `koanf:"rpc_addr"`
	PlacementAddrs  []string      `koanf:"placement_addrs"`
	AckTimeout      time.Duration `koanf:"ack_timeout"`
	MaxInflight     int           `koanf:"max_inflight"`
	RetainCacheSize int           `koanf:"retain_cache_size"`
}

// StorageSection configures the embedded KV store backing the Placement
// Center's cluster column family.
type StorageSection struct {
	DataDir         string        `koanf:"data_dir"`
	WALSyncInterval time.Duration `koanf:"wal_sync_interval"`
	SnapshotKeep    int           `koanf:"snapshot_keep"`
}

// SecuritySection configures security settings shared by all services.
type SecuritySection struct {
	EncryptionKey string `koanf:"encryption_key"`
	TLSCAFile     string `koanf:"tls_ca_file"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
