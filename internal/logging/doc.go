// Package logging provides structured logging for the ctrlpanel client and simulator.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the client: connection lifecycle events, a dump of
// every frame crossing the socket, and raw widget update blobs.
//
// # Log Levels
//
//   - Debug: Frame dumps, raw update blobs, per-tick protocol decisions
//   - Info: Connections, page changes, device version
//   - Warn: Protocol violations that are recovered locally (stale pages, stray blobs)
//   - Error: Terminal transport failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// The interactive client draws on the terminal, so it logs to a file instead:
//
//	logging.InitializeWithOutput("debug", []string{"/tmp/ctrlpanel.log"})
//
// When no level is given and CTRLPANEL_LOG_LEVEL is unset the logger is a nop.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The transport goroutine
// and the UI tick loop log through the same logger.
package logging
