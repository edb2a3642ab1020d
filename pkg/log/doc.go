// Package log provides structured protocol logging for PumpLink.
//
// This package defines the Logger interface and Event types for
// capturing protocol-level events at multiple layers (chunk transport,
// decoded messages, connection lifecycle). It is separate from
// operational logging (slog) - protocol capture provides a complete
// machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/pumplink/session.plog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw BLE chunks (ChunkEvent)
//   - Packet: decoded messages (MessageEvent)
//   - Connection: state changes (StateChangeEvent) and handshake
//     progress (AuthEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files use CBOR encoding with integer-keyed structs and the
// .plog extension; Reader streams them back, optionally filtered.
package log
