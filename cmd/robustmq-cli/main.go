// Package main provides the entry point for robustmq-cli.
//
// robustmq-cli is the command-line management tool for a RobustMQ
// cluster, talking to the placement center over the same Envelope RPC
// dialect broker nodes use.
package main

import (
	"fmt"
	"os"

	"github.com/robustmq/robustmq-go/internal/cli/command"
	"github.com/robustmq/robustmq-go/internal/cli/repl"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "repl" {
		if err := runRepl(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app := command.App()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runRepl starts an interactive session, re-running command.App()
// once per entered line. baseArgs carries any global flags passed to
// "robustmq-cli repl" itself (e.g. --placement) so they apply to every
// command typed at the prompt.
func runRepl(baseArgs []string) error {
	app := command.App()
	r := repl.NewWithExecutor(func(args []string) error {
		runArgs := append([]string{"robustmq-cli"}, baseArgs...)
		runArgs = append(runArgs, args...)
		return app.Run(runArgs)
	})
	return r.Run()
}
