// Package connection provides connection management for robustmq-cli.
//
// This package manages the CLI's connection to the placement center's
// RPC surface:
//
//   - manager.go: connection profile state (current target addresses)
//   - rpcclient.go: the Envelope-dispatching RPC client (see
//     internal/rpcpool), replacing the teacher's HTTP admin client
package connection
