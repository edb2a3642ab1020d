// Package connection orchestrates the PumpLink session lifecycle.
//
// This package handles:
//   - Connection state tracking
//   - Driving the authentication handshake after transport readiness
//   - Serializing outbound writes (one chunk in flight at a time)
//   - Correlating responses to requests by transaction id
//   - Exponential backoff for automatic reconnection
//
// # Reconnection Strategy
//
// When an authenticated connection is lost unexpectedly, the client
// reconnects with exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s
//  3. Maximum delay: 32 seconds
//  4. Continue at 32s until successful
//  5. Reset to 1s after a successful authentication
//
// A failed authentication never reconnects silently; the application
// must call Connect again with a pairing code.
package connection
