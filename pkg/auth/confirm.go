package auth

import (
	"github.com/pumplink-protocol/pumplink-go/pkg/crypto"
)

// Key confirmation constants.
const (
	// NonceSize is the length of the server's confirmation nonce.
	NonceSize = 32

	// ConfirmSize is the length of a key-confirmation value.
	ConfirmSize = 32

	// ChallengeSize is the length of a legacy handshake challenge.
	ChallengeSize = 8
)

// confirmationKey turns the raw shared secret into the session key
// used for confirmation: a single-block HKDF salted with the server's
// nonce.
func confirmationKey(serverNonce, sharedSecret []byte) []byte {
	return crypto.HKDF32(serverNonce, sharedSecret)
}

// clientConfirmation is the value the client sends to prove it holds
// the same secret: an HMAC over the server's nonce under the
// confirmation key.
func clientConfirmation(confirmKey, serverNonce []byte) []byte {
	return crypto.SanitizedHMACSHA256(confirmKey, serverNonce)
}

// serverConfirmation is the device's reply, chained over the client's
// value so the two sides can never echo each other.
func serverConfirmation(confirmKey, clientConfirm []byte) []byte {
	return crypto.SanitizedHMACSHA256(confirmKey, clientConfirm)
}
