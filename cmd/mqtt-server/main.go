// Package main provides the entry point for mqtt-server.
//
// mqtt-server is an MQTT Delivery Core node: it runs the exclusive
// subscription push pipeline against the catalog state replicated by
// the placement center, dispatching PUBLISH traffic to connected
// clients. The MQTT wire codec and socket listener are out of scope
// here (they belong to a transport layer this tree does not
// implement); ConnectionManager is the seam that layer plugs into.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robustmq/robustmq-go/internal/infra/confloader"
	"github.com/robustmq/robustmq-go/internal/infra/shutdown"
	"github.com/robustmq/robustmq-go/internal/mqtt"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
	"github.com/robustmq/robustmq-go/internal/server/config"
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
		fmt.Printf("mqtt-server %s (commit: %s, built: %s)\n", version, commit, buildTime)
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

	log.Info("starting mqtt-server", "version", version, "commit", commit, "node_id", cfg.Mqtt.NodeID)

	cache := mqtt.NewCacheManager(mqtt.QoSExactlyOnce)
	subs := mqtt.NewManager()
	retain := mqtt.NewRetainStore()

	httpClient := rpcpool.NewHTTPClient(nil)
	pool := rpcpool.NewPool(httpClient, nil)
	dispatcher := rpcpool.NewDispatcher(pool)
	placementAddrs := cfg.Mqtt.PlacementAddrs

	driver := mqtt.NewExclusiveDriver(cache, subs, &placementMessageStore{}, &unconnectedConnectionManager{}, retain, nil)

	ctx, cancel := context.WithCancel(context.Background())

	if err := registerMqttNode(ctx, dispatcher, placementAddrs, cfg.Mqtt); err != nil {
		cancel()
		return fmt.Errorf("register with placement center: %w", err)
	}

	go driver.Start(ctx)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping exclusive delivery pipeline")
		cancel()
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		return unregisterMqttNode(ctx, dispatcher, placementAddrs, cfg.Mqtt.NodeID)
	})

	log.Info("mqtt-server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("mqtt-server stopped gracefully")
	return nil
}

// placementMessageStore satisfies mqtt.MessageStore without reading
// anything: ReadFrom always reports no new records and CommitOffset is
// a no-op. It does not call the journal engine's ReadRecords RPC
// (rpcpool.ServiceJournalData), and the wire has no offset-commit RPC.
type placementMessageStore struct{}

func (s *placementMessageStore) ReadFrom(ctx context.Context, topicID, groupID string, fromOffset uint64, maxRecords int) ([]mqtt.StoredMessage, error) {
	return nil, nil
}

func (s *placementMessageStore) CommitOffset(ctx context.Context, topicID, groupID string, offset uint64) error {
	return nil
}

// unconnectedConnectionManager satisfies mqtt.ConnectionManager until a
// transport layer registers live connections; every delivery attempt
// returns an error. The exclusive pipeline retries a failed QoS 1
// delivery after a wait; QoS 0 and QoS 2 deliveries log the error and
// move on to the next record.
type unconnectedConnectionManager struct{}

func (c *unconnectedConnectionManager) Deliver(ctx context.Context, connectID uint64, pkt mqtt.PublishPacket, props *mqtt.PublishProperties) error {
	return fmt.Errorf("mqtt-server: no transport layer registered for connection %d", connectID)
}

func registerMqttNode(ctx context.Context, dispatcher *rpcpool.Dispatcher, addrs []string, cfg config.MqttSection) error {
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

func unregisterMqttNode(ctx context.Context, dispatcher *rpcpool.Dispatcher, addrs []string, nodeID string) error {
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
