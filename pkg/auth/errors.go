package auth

import "errors"

// Handshake errors.
var (
	// ErrKeyConfirmationFailed indicates the peer's key-confirmation
	// value did not match. Fatal to the authentication session; the
	// caller must restart pairing or reconnect explicitly.
	ErrKeyConfirmationFailed = errors.New("auth: key confirmation failed")

	// ErrChallengeMismatch indicates a legacy challenge HMAC that did
	// not verify.
	ErrChallengeMismatch = errors.New("auth: challenge response mismatch")

	// ErrUnexpectedOpcode indicates an inbound message the active
	// handshake state cannot consume.
	ErrUnexpectedOpcode = errors.New("auth: unexpected opcode for handshake state")

	// ErrMalformedCargo indicates handshake cargo with the wrong layout.
	ErrMalformedCargo = errors.New("auth: malformed handshake cargo")

	// ErrInvalidPairingCode indicates a pairing code in neither
	// supported format.
	ErrInvalidPairingCode = errors.New("auth: invalid pairing code format")

	// ErrHandshakeDone indicates a message arriving after the
	// handshake already concluded.
	ErrHandshakeDone = errors.New("auth: handshake already concluded")
)
