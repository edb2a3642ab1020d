// Package persistence stores pairing credentials across restarts.
//
// After the first successful authentication the stack remembers the
// device address, the pairing code and the derived session material so
// later connections can re-authenticate without user interaction.
// CredentialStore is the interface the connection layer programs
// against; FileStore persists to a JSON file, MemoryStore backs tests
// and ephemeral sessions.
package persistence
