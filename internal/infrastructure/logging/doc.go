// Package logging provides structured logging for Campus Power Core.
//
// This package wraps Go's standard log/slog package so every component
// logs the same way.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	ingestLog := logger.With("component", "ingest")
//	ingestLog.Warn("dropping telemetry", "topic", topic, "error", err)
//
// Never log broker passwords, JWT secrets or access tokens.
package logging
