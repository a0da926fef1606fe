// Package main provides the entry point for placement-center.
//
// placement-center is RobustMQ's raft-replicated metadata and
// coordination service: cluster membership, the MQTT catalog (users,
// topics, sessions, ACLs), and journal shard/segment ownership all live
// in its FSM, reached by every broker node through a single RPC
// procedure.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/robustmq/robustmq-go/internal/infra/confloader"
	"github.com/robustmq/robustmq-go/internal/infra/shutdown"
	"github.com/robustmq/robustmq-go/internal/placement"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
	"github.com/robustmq/robustmq-go/internal/server/config"
	"github.com/robustmq/robustmq-go/internal/storage"
	"github.com/robustmq/robustmq-go/internal/telemetry/logger"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("conf", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("placement-center %s (commit: %s, built: %s)\n", version, commit, buildTime)
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting placement-center", "version", version, "commit", commit, "node_id", cfg.Placement.NodeID)

	idempotentStore, err := storage.NewBadgerEngine(storage.KVConfig{
		Engine: "badger",
		Dir:    cfg.Storage.DataDir,
	}, nil)
	if err != nil {
		return fmt.Errorf("init idempotent store: %w", err)
	}

	server, err := placement.NewServer(placement.Config{
		NodeID:      cfg.Placement.NodeID,
		ClusterID:   cfg.Placement.NodeID,
		ClusterName: "robustmq",

		RaftBindAddr:   cfg.Placement.RaftAddr,
		GossipBindAddr: cfg.Placement.GossipAddr,
		GossipBindPort: cfg.Placement.GossipPort,

		Bootstrap: cfg.Placement.Bootstrap,
		SeedNodes: cfg.Placement.Seeds,

		RaftDataDir: cfg.Placement.DataDir,

		ReplicationFactor: cfg.Placement.ReplicationFactor,

		IdempotentStore: idempotentStore,

		Rebalance: placement.RebalanceConfig{
			MaxShardsPerSec:  float64(cfg.Placement.RebalanceMaxRateMBps),
			ConcurrentShards: cfg.Placement.RebalanceConcurrentQty,
			RPCTimeout:       30 * time.Second,
		},
		Heartbeat: placement.HeartbeatConfig{
			CheckInterval:  cfg.Placement.HeartbeatCheckInterval,
			TimeoutSeconds: int64(cfg.Placement.HeartbeatTimeout.Seconds()),
		},

		Timeouts: placement.TimeoutConfig{
			RaftApply:      10 * time.Second,
			RaftMembership: 10 * time.Second,
			WaitLeader:     15 * time.Second,
			RebalanceTotal: 5 * time.Minute,
		},
	})
	if err != nil {
		return fmt.Errorf("create placement server: %w", err)
	}

	handler := placement.NewHandler(server, nil)
	path, rpcHandler := rpcpool.NewCallHandler(handler.Handle)

	mux := http.NewServeMux()
	mux.Handle(path, rpcHandler)
	httpServer := &http.Server{Addr: cfg.Placement.RPCAddr, Handler: mux}

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down RPC listener")
		return httpServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down placement server")
		return server.Stop(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing idempotent store")
		return idempotentStore.Close()
	})

	ctx := context.Background()
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start placement server: %w", err)
	}

	go func() {
		log.Info("RPC listener starting", "addr", cfg.Placement.RPCAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("RPC listener error", "error", err)
		}
	}()

	log.Info("placement-center started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("placement-center stopped gracefully")
	return nil
}

func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}
