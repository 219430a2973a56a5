// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr by default so that the standard output of the CLI stays
// reserved for captured child-process output.
//
// Example Usage:
//
//	logger := logging.NewDefault("vmarena")
//	logger.Info("bootstrap finished", zap.Int("workers", 4))
//	logger.Error("spawn failed", zap.Error(err))
package logging
