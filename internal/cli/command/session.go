// Package command provides CLI command definitions for robustmq-cli.
package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/robustmq/robustmq-go/internal/cli/output"
	"github.com/robustmq/robustmq-go/internal/placement"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

// SessionCommand returns the MQTT session inspection subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Inspect MQTT sessions known to the placement center catalog",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List MQTT sessions",
				Action: sessionList,
			},
			{
				Name:      "get",
				Usage:     "Show one client's session",
				ArgsUsage: "CLIENT_ID",
				Action:    sessionGet,
			},
		},
	}
}

func sessionList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var reply rpcpool.ListSessionReply
	if err := client.Call(context.Background(), rpcpool.ServiceMqtt, rpcpool.InterfaceListSession, rpcpool.ListSessionRequest{}, &reply); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	sessions, err := decodeSessions(reply.Sessions)
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	return outputSessions(flags, sessions)
}

func decodeSessions(raw [][]byte) ([]placement.MqttSession, error) {
	sessions := make([]placement.MqttSession, 0, len(raw))
	for _, b := range raw {
		var s placement.MqttSession
		if err := rpcpool.DecodePayload(b, &s); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func outputSessions(flags *GlobalFlags, sessions []placement.MqttSession) error {
	switch output.Format(flags.Output) {
	case output.FormatJSON:
		formatter := &output.JSONFormatter{}
		return formatter.Format(os.Stdout, sessions)
	default:
		table := &output.Table{
			Headers: []string{"CLIENT ID", "BROKER ID", "CONNECTION ID", "RECONNECT TIME", "DISTINCT TIME"},
		}
		for _, s := range sessions {
			table.Rows = append(table.Rows, []string{
				truncateID(s.ClientID),
				s.BrokerID,
				fmt.Sprintf("%d", s.ConnectionID),
				fmt.Sprintf("%d", s.ReconnectTime),
				fmt.Sprintf("%d", s.DistinctTime),
			})
		}
		if err := table.Render(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("\nTotal: %d sessions\n", len(sessions))
		return nil
	}
}

func sessionGet(c *cli.Context) error {
	clientID := c.Args().First()
	if clientID == "" {
		return fmt.Errorf("client ID required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var reply rpcpool.ListSessionReply
	if err := client.Call(context.Background(), rpcpool.ServiceMqtt, rpcpool.InterfaceListSession, rpcpool.ListSessionRequest{}, &reply); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	sessions, err := decodeSessions(reply.Sessions)
	if err != nil {
		return err
	}

	for _, s := range sessions {
		if s.ClientID != clientID {
			continue
		}
		flags := ParseGlobalFlags(c)
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, s)
	}
	return fmt.Errorf("session not found: %s", clientID)
}

// truncateID truncates long IDs for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:13] + "..."
}
