// Package repl provides the interactive REPL mode for robustmq-cli.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	completer *Completer
	history   *History
	executor  func(args []string) error
}

// New creates a new REPL instance. Without an executor, commands are
// accepted (and kept in history) but not dispatched; use
// NewWithExecutor to wire it to a real command runner.
func New() *REPL {
	return &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		completer: NewCompleter(),
		history:   NewHistory(),
	}
}

// NewWithExecutor creates a REPL that dispatches each parsed line to
// executor, which receives the line split on whitespace (e.g. ["cluster",
// "status"]). cmd/robustmq-cli wires this to its urfave/cli App.Run,
// re-running the same command tree one line at a time.
func NewWithExecutor(executor func(args []string) error) *REPL {
	r := New()
	r.executor = executor
	return r
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		// Print prompt
		fmt.Fprint(r.output, "robustmq> ")

		// Read line
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil {
			return err
		}

		// Trim and skip empty lines
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Add to history
		r.history.Add(line)

		// Handle special commands
		if line == "exit" || line == "quit" {
			return nil
		}

		// Execute command
		if err := r.execute(line); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
	}
}

func (r *REPL) execute(line string) error {
	if r.executor == nil {
		return nil
	}
	return r.executor(strings.Fields(line))
}
