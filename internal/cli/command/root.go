// Package command provides CLI command definitions for robustmq-cli.
//
// It uses urfave/cli/v2 for command parsing and talks to a placement
// center over internal/rpcpool's Envelope dispatch, the same RPC
// surface every broker node uses.
package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/robustmq/robustmq-go/internal/cli/connection"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "robustmq-cli",
		Usage:   "RobustMQ cluster management tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ClusterCommand(),
			SessionCommand(),
		},
		Before: func(c *cli.Context) error {
			c.App.Metadata["connMgr"] = connection.NewManager()
			return nil
		},
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "placement",
			Aliases: []string{"p"},
			Usage:   "Comma-separated placement center RPC addresses (e.g., 127.0.0.1:6100)",
			EnvVars: []string{"ROBUSTMQ_PLACEMENT_ADDRS"},
			Value:   "127.0.0.1:6100",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	PlacementAddrs []string
	Output         string
	Wide           bool
	Verbose        bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	addrs := strings.Split(c.String("placement"), ",")
	for i := range addrs {
		addrs[i] = strings.TrimSpace(addrs[i])
	}

	return &GlobalFlags{
		PlacementAddrs: addrs,
		Output:         c.String("output"),
		Wide:           c.Bool("wide"),
		Verbose:        c.Bool("verbose"),
	}
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata["connMgr"].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// EnsureConnected returns an RPC client targeting the configured
// placement center addresses.
func EnsureConnected(c *cli.Context) (*connection.RPCClient, error) {
	flags := ParseGlobalFlags(c)
	if len(flags.PlacementAddrs) == 0 || flags.PlacementAddrs[0] == "" {
		return nil, fmt.Errorf("no placement center address configured")
	}
	return connection.NewRPCClient(flags.PlacementAddrs, nil), nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
