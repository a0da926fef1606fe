// Package main provides the entry point for journal-server.
//
// journal-server is a Journal Engine broker node: it holds segment log
// replicas for the shards the placement center assigns it, appending
// and reading records locally while deferring every ownership and
// sealing decision to the placement center's FSM.
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
	"github.com/robustmq/robustmq-go/internal/journal"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
	"github.com/robustmq/robustmq-go/internal/server/config"
	"github.com/robustmq/robustmq-go/internal/telemetry/logger"
	"github.com/robustmq/robustmq-go/pkg/crypto/adaptive"
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
		fmt.Printf("journal-server %s (commit: %s, built: %s)\n", version, commit, buildTime)
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

	log.Info("starting journal-server", "version", version, "commit", commit, "node_id", cfg.Journal.NodeID)

	var cipher adaptive.Cipher
	if cfg.Security.EncryptionKey != "" {
		cipher, err = adaptive.New([]byte(cfg.Security.EncryptionKey))
		if err != nil {
			return fmt.Errorf("init cipher: %w", err)
		}
	}

	cache := journal.NewCacheManager(nil, nil)
	store := journal.NewStore(cfg.Journal.DataDir, cfg.Journal.NodeID, cache, cipher, nil)

	httpClient := rpcpool.NewHTTPClient(nil)
	pool := rpcpool.NewPool(httpClient, nil)
	dispatcher := rpcpool.NewDispatcher(pool)
	placementAddrs := func() []string { return cfg.Journal.PlacementAddrs }

	roller := journal.NewSegmentRoller(dispatcher, placementAddrs, journal.SealPolicy{
		MaxSegmentBytes: cfg.Journal.MaxSegmentSize,
		MaxSegmentAge:   cfg.Journal.MaxSegmentAge,
	})
	store.SetRoller(roller)

	updateFeed := journal.NewUpdateFeed(cache, nil)
	updates := make(chan journal.CacheUpdate, 256)

	handler := journal.NewHandler(store, nil)
	path, rpcHandler := rpcpool.NewCallHandler(handler.Handle)
	mux := http.NewServeMux()
	mux.Handle(path, rpcHandler)
	httpServer := &http.Server{Addr: cfg.Journal.RPCAddr, Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())

	if err := registerNode(ctx, dispatcher, placementAddrs(), cfg.Journal); err != nil {
		cancel()
		return fmt.Errorf("register with placement center: %w", err)
	}

	go updateFeed.Run(ctx, updates)
	go heartbeatLoop(ctx, dispatcher, placementAddrs, cfg.Journal.NodeID, log)
	go func() {
		log.Info("RPC listener starting", "addr", cfg.Journal.RPCAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("RPC listener error", "error", err)
		}
	}()

	shutdownHandler := shutdown.NewHandler(30 * time.Second)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down RPC listener")
		return httpServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping update feed and heartbeat loop")
		cancel()
		close(updates)
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		return unregisterNode(ctx, dispatcher, placementAddrs(), cfg.Journal.NodeID)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing segment writers")
		return store.Close()
	})

	log.Info("journal-server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("journal-server stopped gracefully")
	return nil
}

func registerNode(ctx context.Context, dispatcher *rpcpool.Dispatcher, addrs []string, cfg config.JournalSection) error {
	payload, err := rpcpool.EncodePayload(rpcpool.RegisterNodeRequest{
		Node: rpcpool.NodeInfo{NodeID: cfg.NodeID, RPCAddr: cfg.RPCAddr},
	})
	if err != nil {
		return err
	}
	_, err = dispatcher.Call(ctx, rpcpool.ServicePlacement, rpcpool.InterfaceRegisterNode, addrs, &rpcpool.Envelope{
		Service:   rpcpool.ServicePlacement,
		Interface: rpcpool.InterfaceRegisterNode,
		Payload:   payload,
	})
	return err
}

func unregisterNode(ctx context.Context, dispatcher *rpcpool.Dispatcher, addrs []string, nodeID string) error {
	payload, err := rpcpool.EncodePayload(rpcpool.UnRegisterNodeRequest{NodeID: nodeID})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = dispatcher.Call(ctx, rpcpool.ServicePlacement, rpcpool.InterfaceUnRegisterNode, addrs, &rpcpool.Envelope{
		Service:   rpcpool.ServicePlacement,
		Interface: rpcpool.InterfaceUnRegisterNode,
		Payload:   payload,
	})
	return err
}

// heartbeatLoop sends a Heartbeat RPC every interval until ctx is
// cancelled, keeping the placement center's staleness sweep from
// unregistering this node.
func heartbeatLoop(ctx context.Context, dispatcher *rpcpool.Dispatcher, addrs func() []string, nodeID string, log logger.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := rpcpool.EncodePayload(rpcpool.HeartbeatRequest{NodeID: nodeID})
			if err != nil {
				log.Error("encode heartbeat", "error", err)
				continue
			}
			callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err = dispatcher.Call(callCtx, rpcpool.ServicePlacement, rpcpool.InterfaceHeartbeat, addrs(), &rpcpool.Envelope{
				Service:   rpcpool.ServicePlacement,
				Interface: rpcpool.InterfaceHeartbeat,
				Payload:   payload,
			})
			cancel()
			if err != nil {
				log.Warn("heartbeat failed", "error", err)
			}
		}
	}
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
