// Package auth implements the two mutually exclusive authentication
// handshakes a connection attempt can run on the authorization
// characteristic: the EC-JPAKE pairing handshake used with short
// numeric codes, and the legacy HMAC challenge-response handshake used
// with long pairing codes.
//
// Both expose the same Authenticator contract to the connection
// orchestrator: the orchestrator pulls outbound messages with
// NextMessage and routes every inbound authorization message to
// HandleMessage until the handshake reports success or failure.
// Exactly one authenticator is active per connection attempt, selected
// from the pairing-code format before the handshake starts.
//
// The device-side counterparts (responders) live here too; the
// simulated peripheral and the handshake tests run them.
package auth
