// Package shutdown provides graceful shutdown for RobustMQ.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - A timeout-bounded context handed to every hook
//   - Cleanup callback registration
//   - Shutdown coordination
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return srv.Close() })
//	err := h.Wait() // blocks until SIGINT/SIGTERM, then runs hooks
//
// @design DS-0501
package shutdown
