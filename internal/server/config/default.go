package config

import "time"

// Default service addresses and data directories. Every RobustMQ service
// runs as a standalone daemon, so these default to loopback addresses and
// paths under /var/lib, matching what a systemd unit would set up for the
// service.
const (
	DefaultPlacementRPCAddr    = "127.0.0.1:6100"
	DefaultPlacementRaftAddr   = "127.0.0.1:6101"
	DefaultPlacementGossipAddr = "127.0.0.1"
	DefaultPlacementGossipPort = 6102
	DefaultPlacementDataDir    = "/var/lib/robustmq/placement-center/raft"

	DefaultJournalRPCAddr = "127.0.0.1:6200"
	DefaultJournalDataDir = "/var/lib/robustmq/journal-server/data"

	DefaultMqttRPCAddr = "127.0.0.1:6300"

	DefaultStorageDataDir = "/var/lib/robustmq/placement-center/kv"

	DefaultReplicationFactor      = 3
	DefaultRebalanceMaxRateMBps   = 20
	DefaultRebalanceMinTTL        = 60 * time.Second
	DefaultRebalanceConcurrentQty = 3

	DefaultHeartbeatCheckInterval = 5 * time.Second
	DefaultHeartbeatTimeout       = 30 * time.Second

	DefaultMaxSegmentSize = 512 << 20 // 512MB
	DefaultMaxSegmentAge  = 30 * time.Minute

	DefaultAckTimeout      = 20 * time.Second
	DefaultMaxInflight     = 20
	DefaultRetainCacheSize = 10000

	DefaultWALSyncInterval = 100 * time.Millisecond
	DefaultSnapshotKeep    = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns a ServerConfig populated with RobustMQ's defaults. Callers
// overlay this with the loaded file/env values via confloader; fields left
// zero in the loaded config fall back to what Default returns.
func Default() *ServerConfig {
	return &ServerConfig{
		Placement: PlacementSection{
			RPCAddr:                DefaultPlacementRPCAddr,
			RaftAddr:               DefaultPlacementRaftAddr,
			GossipAddr:             DefaultPlacementGossipAddr,
			GossipPort:             DefaultPlacementGossipPort,
			DataDir:                DefaultPlacementDataDir,
			ReplicationFactor:      DefaultReplicationFactor,
			RebalanceMaxRateMBps:   DefaultRebalanceMaxRateMBps,
			RebalanceMinTTL:        DefaultRebalanceMinTTL,
			RebalanceConcurrentQty: DefaultRebalanceConcurrentQty,
			HeartbeatCheckInterval: DefaultHeartbeatCheckInterval,
			HeartbeatTimeout:       DefaultHeartbeatTimeout,
		},
		Journal: JournalSection{
			RPCAddr:        DefaultJournalRPCAddr,
			DataDir:        DefaultJournalDataDir,
			MaxSegmentSize: DefaultMaxSegmentSize,
			MaxSegmentAge:  DefaultMaxSegmentAge,
		},
		Mqtt: MqttSection{
			RPCAddr:         DefaultMqttRPCAddr,
			AckTimeout:      DefaultAckTimeout,
			MaxInflight:     DefaultMaxInflight,
			RetainCacheSize: DefaultRetainCacheSize,
		},
		Storage: StorageSection{
			DataDir:         DefaultStorageDataDir,
			WALSyncInterval: DefaultWALSyncInterval,
			SnapshotKeep:    DefaultSnapshotKeep,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
