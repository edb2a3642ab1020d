package crypto

import "crypto/sha256"

// KeySize is the only output length the protocol derives.
const KeySize = sha256.Size

// HKDF32 derives exactly one 32-byte block of key material per the
// RFC 5869 extract-then-expand construction, restricted to the
// single-block case the protocol uses:
//
//	PRK = HMAC-SHA256(salt, ikm)
//	OKM = HMAC-SHA256(PRK, 0x01)
//
// An empty salt substitutes a 32-byte all-zero HMAC key (the RFC 5869
// default). Both HMAC steps use the sanitized variant, which is why
// the stock x/crypto HKDF cannot be used here.
func HKDF32(salt, ikm []byte) []byte {
	if len(salt) == 0 {
		salt = make([]byte, KeySize)
	}
	prk := SanitizedHMACSHA256(salt, ikm)
	return SanitizedHMACSHA256(prk, []byte{0x01})
}
