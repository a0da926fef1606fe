// Package command provides CLI command definitions for robustmq-cli.
package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/robustmq/robustmq-go/internal/cli/output"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

// ClusterCommand returns the cluster management subcommand group.
func ClusterCommand() *cli.Command {
	return &cli.Command{
		Name:    "cluster",
		Aliases: []string{"cls"},
		Usage:   "Placement center cluster commands",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show cluster leader and membership",
				Action: clusterStatus,
			},
			{
				Name:   "nodes",
				Usage:  "List registered nodes",
				Action: clusterNodes,
			},
		},
	}
}

func clusterStatus(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var reply rpcpool.ClusterStatusReply
	if err := client.Call(context.Background(), rpcpool.ServicePlacement, rpcpool.InterfaceClusterStatus, rpcpool.ClusterStatusRequest{}, &reply); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON:
		formatter := &output.JSONFormatter{}
		return formatter.Format(os.Stdout, reply)
	default:
		fmt.Printf("Cluster Status\n")
		fmt.Printf("==============\n\n")
		fmt.Printf("Leader ID:   %s\n", reply.LeaderID)
		fmt.Printf("Leader Addr: %s\n", reply.LeaderAddr)
		fmt.Printf("Node Count:  %d\n", len(reply.NodeIDs))
		for _, id := range reply.NodeIDs {
			fmt.Printf("  - %s\n", id)
		}
		return nil
	}
}

func clusterNodes(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var reply rpcpool.ListNodeReply
	if err := client.Call(context.Background(), rpcpool.ServicePlacement, rpcpool.InterfaceListNode, rpcpool.ListNodeRequest{}, &reply); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON:
		formatter := &output.JSONFormatter{}
		return formatter.Format(os.Stdout, reply.Nodes)
	default:
		table := &output.Table{Headers: []string{"NODE ID", "RPC ADDR", "RAFT ADDR"}}
		for _, n := range reply.Nodes {
			table.Rows = append(table.Rows, []string{n.NodeID, n.RPCAddr, n.RaftAddr})
		}
		if err := table.Render(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("\nTotal: %d nodes\n", len(reply.Nodes))
		return nil
	}
}
