package auth

import (
	"crypto/rand"
	"fmt"

	"github.com/pumplink-protocol/pumplink-go/pkg/crypto"
	"github.com/pumplink-protocol/pumplink-go/pkg/jpake"
	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// The device-side responders mirror the client authenticators message
// for message. They exist for the simulated peripheral and for
// end-to-end handshake tests; a real deployment talks to firmware.

// JpakeDeviceAuthenticator is the responder side of the EC-JPAKE
// handshake.
type JpakeDeviceAuthenticator struct {
	pairingCode string
	session     *jpake.Session

	peerHalf1 []byte
	secret    []byte
	nonce     []byte
	done      bool
	failed    bool

	next *wire.Message
}

// NewJpakeDeviceAuthenticator creates the device side of the EC-JPAKE
// handshake for a short numeric pairing code.
func NewJpakeDeviceAuthenticator(pairingCode string) (*JpakeDeviceAuthenticator, error) {
	a := &JpakeDeviceAuthenticator{pairingCode: pairingCode}
	if err := a.reset(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *JpakeDeviceAuthenticator) reset() error {
	session, err := jpake.NewSession(jpake.NewP256Group(), jpake.RoleServer, serverIdentity, clientIdentity, a.pairingCode)
	if err != nil {
		return err
	}
	a.session = session
	a.peerHalf1 = nil
	a.secret = nil
	a.nonce = nil
	a.done = false
	a.failed = false
	a.next = nil
	return nil
}

// Reset discards the session and all ephemeral key material.
func (a *JpakeDeviceAuthenticator) Reset() {
	_ = a.reset()
}

// NextMessage returns the queued response, or nil when waiting on the
// client.
func (a *JpakeDeviceAuthenticator) NextMessage() (*wire.Message, error) {
	msg := a.next
	a.next = nil
	return msg, nil
}

// HandleMessage consumes one inbound request and queues the response.
func (a *JpakeDeviceAuthenticator) HandleMessage(opcode uint8, cargo []byte) (Result, error) {
	if a.done || a.failed {
		return ResultFailure, ErrHandshakeDone
	}

	result, err := a.handle(opcode, cargo)
	if err != nil {
		a.failed = true
		return ResultFailure, err
	}
	if result == ResultSuccess {
		a.done = true
	}
	return result, nil
}

func (a *JpakeDeviceAuthenticator) handle(opcode uint8, cargo []byte) (Result, error) {
	switch opcode {
	case wire.OpcodeJpake1aRequest:
		if a.peerHalf1 != nil {
			return ResultFailure, fmt.Errorf("%w: repeated round 1a", ErrUnexpectedOpcode)
		}
		a.peerHalf1 = append([]byte(nil), cargo...)
		own, err := a.session.BuildRound1()
		if err != nil {
			return ResultFailure, err
		}
		a.next = &wire.Message{Opcode: wire.OpcodeJpake1aResponse, Cargo: own[:Round1HalfSize]}
		return ResultContinue, nil

	case wire.OpcodeJpake1bRequest:
		if a.peerHalf1 == nil {
			return ResultFailure, fmt.Errorf("%w: round 1b before 1a", ErrUnexpectedOpcode)
		}
		if err := a.session.ReadRound1(append(a.peerHalf1, cargo...)); err != nil {
			return ResultFailure, err
		}
		own, err := a.session.BuildRound1()
		if err != nil {
			return ResultFailure, err
		}
		a.next = &wire.Message{Opcode: wire.OpcodeJpake1bResponse, Cargo: own[Round1HalfSize:]}
		return ResultContinue, nil

	case wire.OpcodeJpake2Request:
		if err := a.session.ReadRound2(cargo); err != nil {
			return ResultFailure, err
		}
		own, err := a.session.BuildRound2()
		if err != nil {
			return ResultFailure, err
		}
		secret, err := a.session.DeriveSecret()
		if err != nil {
			return ResultFailure, err
		}
		a.secret = secret
		a.next = &wire.Message{Opcode: wire.OpcodeJpake2Response, Cargo: own}
		return ResultContinue, nil

	case wire.OpcodeJpake3SessionKeyRequest:
		if a.secret == nil {
			return ResultFailure, fmt.Errorf("%w: session key before round 2", ErrUnexpectedOpcode)
		}
		nonce := make([]byte, NonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return ResultFailure, fmt.Errorf("failed to generate nonce: %w", err)
		}
		a.nonce = nonce
		a.next = &wire.Message{Opcode: wire.OpcodeJpake3SessionKeyResponse, Cargo: nonce}
		return ResultContinue, nil

	case wire.OpcodeJpake4KeyConfirmRequest:
		if a.nonce == nil {
			return ResultFailure, fmt.Errorf("%w: confirmation before nonce", ErrUnexpectedOpcode)
		}
		confirmKey := confirmationKey(a.nonce, a.secret)
		if !crypto.HMACEqual(cargo, clientConfirmation(confirmKey, a.nonce)) {
			// An empty round-4 response tells the client the
			// confirmation was rejected.
			a.next = &wire.Message{Opcode: wire.OpcodeJpake4KeyConfirmResponse}
			return ResultFailure, ErrKeyConfirmationFailed
		}
		a.next = &wire.Message{
			Opcode: wire.OpcodeJpake4KeyConfirmResponse,
			Cargo:  serverConfirmation(confirmKey, append([]byte(nil), cargo...)),
		}
		return ResultSuccess, nil

	default:
		return ResultFailure, fmt.Errorf("%w: opcode 0x%02x", ErrUnexpectedOpcode, opcode)
	}
}

// DerivedSecret returns the shared secret once derived.
func (a *JpakeDeviceAuthenticator) DerivedSecret() ([]byte, bool) {
	return a.secret, a.secret != nil
}

// ServerNonce returns the confirmation nonce once generated.
func (a *JpakeDeviceAuthenticator) ServerNonce() ([]byte, bool) {
	return a.nonce, a.nonce != nil
}

// LegacyDeviceAuthenticator is the responder side of the legacy
// challenge-response handshake.
type LegacyDeviceAuthenticator struct {
	key []byte

	counterChallenge []byte
	done             bool
	failed           bool
	next             *wire.Message
}

// NewLegacyDeviceAuthenticator creates the device side of the legacy
// handshake.
func NewLegacyDeviceAuthenticator(pairingCode string) (*LegacyDeviceAuthenticator, error) {
	if len(pairingCode) != LegacyCodeLength {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPairingCode, len(pairingCode))
	}
	return &LegacyDeviceAuthenticator{key: []byte(pairingCode)}, nil
}

// Reset returns the responder to its initial state.
func (a *LegacyDeviceAuthenticator) Reset() {
	a.counterChallenge = nil
	a.done = false
	a.failed = false
	a.next = nil
}

// NextMessage returns the queued response, or nil when waiting on the
// client.
func (a *LegacyDeviceAuthenticator) NextMessage() (*wire.Message, error) {
	msg := a.next
	a.next = nil
	return msg, nil
}

// HandleMessage consumes one inbound request and queues the response.
func (a *LegacyDeviceAuthenticator) HandleMessage(opcode uint8, cargo []byte) (Result, error) {
	if a.done || a.failed {
		return ResultFailure, ErrHandshakeDone
	}

	switch opcode {
	case wire.OpcodeCentralChallengeRequest:
		if len(cargo) != ChallengeSize {
			a.failed = true
			return ResultFailure, fmt.Errorf("%w: challenge is %d bytes", ErrMalformedCargo, len(cargo))
		}
		counter := make([]byte, ChallengeSize)
		if _, err := rand.Read(counter); err != nil {
			a.failed = true
			return ResultFailure, fmt.Errorf("failed to generate counter-challenge: %w", err)
		}
		a.counterChallenge = counter

		response := crypto.SanitizedHMACSHA256(a.key, cargo)
		a.next = &wire.Message{
			Opcode: wire.OpcodeCentralChallengeResponse,
			Cargo:  append(response, counter...),
		}
		return ResultContinue, nil

	case wire.OpcodePumpChallengeRequest:
		if a.counterChallenge == nil {
			a.failed = true
			return ResultFailure, fmt.Errorf("%w: response before challenge", ErrUnexpectedOpcode)
		}
		if !crypto.HMACEqual(cargo, crypto.SanitizedHMACSHA256(a.key, a.counterChallenge)) {
			a.failed = true
			a.next = &wire.Message{Opcode: wire.OpcodePumpChallengeResponse, Cargo: []byte{legacyReject}}
			return ResultFailure, ErrChallengeMismatch
		}
		a.done = true
		a.next = &wire.Message{Opcode: wire.OpcodePumpChallengeResponse, Cargo: []byte{legacyAccept}}
		return ResultSuccess, nil

	default:
		a.failed = true
		return ResultFailure, fmt.Errorf("%w: opcode 0x%02x", ErrUnexpectedOpcode, opcode)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Authenticator = (*JpakeDeviceAuthenticator)(nil)
	_ Authenticator = (*LegacyDeviceAuthenticator)(nil)
	_ SecretSource  = (*JpakeDeviceAuthenticator)(nil)
)
