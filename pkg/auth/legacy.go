package auth

import (
	"crypto/rand"
	"fmt"

	"github.com/pumplink-protocol/pumplink-go/pkg/crypto"
	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// Legacy handshake status bytes.
const (
	legacyAccept = 0x00
	legacyReject = 0x01
)

// legacyState tracks the client challenge-response position.
type legacyState uint8

const (
	legacyIdle legacyState = iota
	legacyChallengeSent
	legacyResponseSent
	legacyAuthenticated
	legacyFailed
)

// LegacyAuthenticator drives the client side of the HMAC
// challenge-response handshake used with long pairing codes.
//
// The pairing code bytes key every HMAC, passed through the same
// byte-sanitization rule as the key-derivation path for device
// compatibility.
type LegacyAuthenticator struct {
	key   []byte
	state legacyState

	challenge []byte
	next      *wire.Message
}

// NewLegacyAuthenticator creates the client-side handshake for a long
// pairing code.
func NewLegacyAuthenticator(pairingCode string) (*LegacyAuthenticator, error) {
	if len(pairingCode) != LegacyCodeLength {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPairingCode, len(pairingCode))
	}
	return &LegacyAuthenticator{key: []byte(pairingCode)}, nil
}

// Reset returns the handshake to its initial state, discarding the
// outstanding challenge.
func (a *LegacyAuthenticator) Reset() {
	a.state = legacyIdle
	a.challenge = nil
	a.next = nil
}

// NextMessage returns the next outbound handshake message, or nil
// while waiting on the device.
func (a *LegacyAuthenticator) NextMessage() (*wire.Message, error) {
	if a.state == legacyIdle {
		challenge := make([]byte, ChallengeSize)
		if _, err := rand.Read(challenge); err != nil {
			return nil, fmt.Errorf("failed to generate challenge: %w", err)
		}
		a.challenge = challenge
		a.state = legacyChallengeSent
		return &wire.Message{Opcode: wire.OpcodeCentralChallengeRequest, Cargo: challenge}, nil
	}

	msg := a.next
	a.next = nil
	return msg, nil
}

// HandleMessage consumes one inbound authorization message.
func (a *LegacyAuthenticator) HandleMessage(opcode uint8, cargo []byte) (Result, error) {
	switch a.state {
	case legacyAuthenticated, legacyFailed:
		return ResultFailure, ErrHandshakeDone
	}

	result, err := a.handle(opcode, cargo)
	if err != nil {
		a.state = legacyFailed
		return ResultFailure, err
	}
	if result == ResultSuccess {
		a.state = legacyAuthenticated
	}
	return result, nil
}

func (a *LegacyAuthenticator) handle(opcode uint8, cargo []byte) (Result, error) {
	switch {
	case a.state == legacyChallengeSent && opcode == wire.OpcodeCentralChallengeResponse:
		// Cargo: HMAC over our challenge, then the device's
		// counter-challenge.
		if len(cargo) != ConfirmSize+ChallengeSize {
			return ResultFailure, fmt.Errorf("%w: challenge response is %d bytes", ErrMalformedCargo, len(cargo))
		}
		deviceMAC := cargo[:ConfirmSize]
		counterChallenge := cargo[ConfirmSize:]

		if !crypto.HMACEqual(deviceMAC, crypto.SanitizedHMACSHA256(a.key, a.challenge)) {
			return ResultFailure, ErrChallengeMismatch
		}

		a.next = &wire.Message{
			Opcode: wire.OpcodePumpChallengeRequest,
			Cargo:  crypto.SanitizedHMACSHA256(a.key, counterChallenge),
		}
		a.state = legacyResponseSent
		return ResultContinue, nil

	case a.state == legacyResponseSent && opcode == wire.OpcodePumpChallengeResponse:
		if len(cargo) != 1 {
			return ResultFailure, fmt.Errorf("%w: status is %d bytes", ErrMalformedCargo, len(cargo))
		}
		if cargo[0] != legacyAccept {
			return ResultFailure, ErrChallengeMismatch
		}
		return ResultSuccess, nil

	default:
		return ResultFailure, fmt.Errorf("%w: opcode 0x%02x", ErrUnexpectedOpcode, opcode)
	}
}

// Compile-time interface satisfaction check.
var _ Authenticator = (*LegacyAuthenticator)(nil)
