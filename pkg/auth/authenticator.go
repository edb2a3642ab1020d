package auth

import (
	"fmt"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// Result is the outcome of feeding one inbound message to an
// authenticator.
type Result uint8

const (
	// ResultContinue means the handshake needs more messages.
	ResultContinue Result = iota

	// ResultSuccess means the handshake completed and the channel may
	// be trusted.
	ResultSuccess

	// ResultFailure means the handshake was rejected. The session is
	// discarded; there is no automatic retry.
	ResultFailure
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultContinue:
		return "CONTINUE"
	case ResultSuccess:
		return "SUCCESS"
	case ResultFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Authenticator is the uniform contract both handshakes expose to the
// connection orchestrator.
//
// The orchestrator alternates NextMessage and HandleMessage: it sends
// every message NextMessage yields (transaction ids are assigned at
// encode time, not here), and routes every inbound authorization
// message to HandleMessage. Implementations are not safe for
// concurrent use; the orchestrator serializes access.
type Authenticator interface {
	// Reset discards all handshake state, including ephemeral key
	// material, returning the authenticator to its initial state.
	Reset()

	// NextMessage returns the next outbound handshake message, or nil
	// when the handshake is waiting on the peer.
	NextMessage() (*wire.Message, error)

	// HandleMessage consumes one inbound authorization message.
	HandleMessage(opcode uint8, cargo []byte) (Result, error)
}

// SecretSource is implemented by authenticators that derive pairing
// material worth persisting after a successful handshake.
type SecretSource interface {
	// DerivedSecret returns the shared secret once derived.
	DerivedSecret() ([]byte, bool)

	// ServerNonce returns the device's confirmation nonce once seen.
	ServerNonce() ([]byte, bool)
}

// CodeType classifies a pairing code's format.
type CodeType uint8

const (
	// CodeTypeJpake is the short numeric code shown on the device
	// screen; it selects the EC-JPAKE handshake.
	CodeTypeJpake CodeType = iota

	// CodeTypeLegacy is the long pre-2FA pairing code; it selects the
	// HMAC challenge-response handshake.
	CodeTypeLegacy
)

// Pairing code formats.
const (
	// JpakeCodeLength is the length of a short numeric pairing code.
	JpakeCodeLength = 6

	// LegacyCodeLength is the length of a long legacy pairing code.
	LegacyCodeLength = 16
)

// ClassifyPairingCode determines which handshake a pairing code
// selects. Short all-digit codes run EC-JPAKE; long codes run the
// legacy challenge-response.
func ClassifyPairingCode(code string) (CodeType, error) {
	switch len(code) {
	case JpakeCodeLength:
		for _, c := range code {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("%w: %d-char code with non-digit", ErrInvalidPairingCode, len(code))
			}
		}
		return CodeTypeJpake, nil
	case LegacyCodeLength:
		return CodeTypeLegacy, nil
	default:
		return 0, fmt.Errorf("%w: length %d", ErrInvalidPairingCode, len(code))
	}
}

// SelectAuthenticator constructs the authenticator matching the
// pairing code's format. The two handshakes are mutually exclusive
// per connection attempt.
func SelectAuthenticator(pairingCode string) (Authenticator, error) {
	kind, err := ClassifyPairingCode(pairingCode)
	if err != nil {
		return nil, err
	}
	switch kind {
	case CodeTypeJpake:
		return NewJpakeAuthenticator(pairingCode)
	default:
		return NewLegacyAuthenticator(pairingCode)
	}
}
