// Package crypto implements the key-derivation and message
// authentication primitives shared by both PumpLink handshakes.
//
// The peripheral's firmware forces every key and message byte through
// a signed-byte "sanitization" step before HMAC hashing (see Sanitize).
// This is a compatibility quirk that must be reproduced bit-for-bit:
// an HMAC computed over the raw bytes will not verify against the
// device. The quirk is confined to this package; nothing else in the
// repository should imitate it.
package crypto
