// Package repl provides interactive mode for robustmq-cli.
//
// This package implements the Read-Eval-Print Loop for interactive sessions:
//
//   - repl.go: Main REPL loop and command dispatch
//   - completer.go: Tab completion for commands and arguments
//   - history.go: Command history persistence
//
// Features:
//
//   - Command auto-completion
//   - Command history, with Load/Save for a history file
//
// Input is read one line at a time. There is no multi-line input, no
// history search, and no colored output.
//
// @design DS-0602
package repl
