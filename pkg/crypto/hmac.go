package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// Sanitize maps each byte through the peripheral's signed-byte
// conversion: a byte that reads as negative under the two's-complement
// convention (0x80..0xFF) has 255 added to its signed value, yielding
// 0x7F..0xFE. Bytes 0x00..0x7F pass through unchanged. The result for
// an originally-negative byte is never zero.
//
// This reproduces a conversion artifact in the device firmware, not an
// intentional transform. It must match bit-for-bit or nothing keyed by
// it will verify.
func Sanitize(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 0x80 {
			out[i] = byte(int(int8(b)) + 255)
		} else {
			out[i] = b
		}
	}
	return out
}

// SanitizedHMACSHA256 computes HMAC-SHA256 over the sanitized key and
// message bytes.
func SanitizedHMACSHA256(key, message []byte) []byte {
	mac := hmac.New(sha256.New, Sanitize(key))
	mac.Write(Sanitize(message))
	return mac.Sum(nil)
}

// HMACEqual compares two MACs in constant time.
func HMACEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}
