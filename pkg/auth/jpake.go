package auth

import (
	"fmt"

	"github.com/pumplink-protocol/pumplink-go/pkg/crypto"
	"github.com/pumplink-protocol/pumplink-go/pkg/jpake"
	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// Round1HalfSize is where the engine's round-1 message is cut into the
// 1a and 1b wire messages: one key pair and its proof per half. The
// full round exceeds the 255-byte cargo limit, the halves do not.
const Round1HalfSize = 165

// Handshake identities. The declared identity feeds every
// zero-knowledge proof challenge, so both sides must use these exact
// byte strings.
var (
	clientIdentity = []byte("client")
	serverIdentity = []byte("server")
)

// jpakeState tracks the client handshake's position.
type jpakeState uint8

const (
	jpakeIdle jpakeState = iota
	jpakeAwait1a
	jpakeAwait1b
	jpakeAwait2
	jpakeAwaitNonce
	jpakeAwaitConfirm
	jpakeDone
	jpakeFailed
)

// JpakeAuthenticator drives the client side of the EC-JPAKE handshake
// over the authorization characteristic's round opcodes.
type JpakeAuthenticator struct {
	pairingCode string
	session     *jpake.Session
	state       jpakeState

	peerHalf1 []byte

	secret      []byte
	serverNonce []byte
	confirmKey  []byte

	// next is the outbound message produced by the last state change.
	next *wire.Message
}

// NewJpakeAuthenticator creates the client-side handshake for a short
// numeric pairing code.
func NewJpakeAuthenticator(pairingCode string) (*JpakeAuthenticator, error) {
	a := &JpakeAuthenticator{pairingCode: pairingCode}
	if err := a.reset(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *JpakeAuthenticator) reset() error {
	session, err := jpake.NewSession(jpake.NewP256Group(), jpake.RoleClient, clientIdentity, serverIdentity, a.pairingCode)
	if err != nil {
		return err
	}
	a.session = session
	a.state = jpakeIdle
	a.peerHalf1 = nil
	a.secret = nil
	a.serverNonce = nil
	a.confirmKey = nil
	a.next = nil
	return nil
}

// Reset discards the session and all ephemeral key material. A new
// connection attempt always starts from a fresh session.
func (a *JpakeAuthenticator) Reset() {
	// The pairing code was already validated at construction.
	_ = a.reset()
}

// NextMessage returns the next outbound handshake message, or nil
// while waiting on the peer.
func (a *JpakeAuthenticator) NextMessage() (*wire.Message, error) {
	if a.state == jpakeIdle {
		round1, err := a.session.BuildRound1()
		if err != nil {
			return nil, err
		}
		a.state = jpakeAwait1a
		return &wire.Message{Opcode: wire.OpcodeJpake1aRequest, Cargo: round1[:Round1HalfSize]}, nil
	}

	msg := a.next
	a.next = nil
	return msg, nil
}

// HandleMessage consumes one inbound authorization message and
// advances the handshake.
func (a *JpakeAuthenticator) HandleMessage(opcode uint8, cargo []byte) (Result, error) {
	switch a.state {
	case jpakeDone, jpakeFailed:
		return ResultFailure, ErrHandshakeDone
	}

	result, err := a.handle(opcode, cargo)
	if err != nil {
		a.state = jpakeFailed
		return ResultFailure, err
	}
	if result == ResultSuccess {
		a.state = jpakeDone
	}
	return result, nil
}

func (a *JpakeAuthenticator) handle(opcode uint8, cargo []byte) (Result, error) {
	switch {
	case a.state == jpakeAwait1a && opcode == wire.OpcodeJpake1aResponse:
		a.peerHalf1 = append([]byte(nil), cargo...)
		round1, err := a.session.BuildRound1()
		if err != nil {
			return ResultFailure, err
		}
		a.next = &wire.Message{Opcode: wire.OpcodeJpake1bRequest, Cargo: round1[Round1HalfSize:]}
		a.state = jpakeAwait1b
		return ResultContinue, nil

	case a.state == jpakeAwait1b && opcode == wire.OpcodeJpake1bResponse:
		if err := a.session.ReadRound1(append(a.peerHalf1, cargo...)); err != nil {
			return ResultFailure, err
		}
		round2, err := a.session.BuildRound2()
		if err != nil {
			return ResultFailure, err
		}
		a.next = &wire.Message{Opcode: wire.OpcodeJpake2Request, Cargo: round2}
		a.state = jpakeAwait2
		return ResultContinue, nil

	case a.state == jpakeAwait2 && opcode == wire.OpcodeJpake2Response:
		if err := a.session.ReadRound2(cargo); err != nil {
			return ResultFailure, err
		}
		secret, err := a.session.DeriveSecret()
		if err != nil {
			return ResultFailure, err
		}
		a.secret = secret
		a.next = &wire.Message{Opcode: wire.OpcodeJpake3SessionKeyRequest}
		a.state = jpakeAwaitNonce
		return ResultContinue, nil

	case a.state == jpakeAwaitNonce && opcode == wire.OpcodeJpake3SessionKeyResponse:
		if len(cargo) != NonceSize {
			return ResultFailure, fmt.Errorf("%w: nonce is %d bytes", ErrMalformedCargo, len(cargo))
		}
		a.serverNonce = append([]byte(nil), cargo...)
		a.confirmKey = confirmationKey(a.serverNonce, a.secret)
		a.next = &wire.Message{
			Opcode: wire.OpcodeJpake4KeyConfirmRequest,
			Cargo:  clientConfirmation(a.confirmKey, a.serverNonce),
		}
		a.state = jpakeAwaitConfirm
		return ResultContinue, nil

	case a.state == jpakeAwaitConfirm && opcode == wire.OpcodeJpake4KeyConfirmResponse:
		// Anything that is not a full confirmation value is a
		// rejection; the device answers a failed confirmation with an
		// empty response.
		if len(cargo) != ConfirmSize {
			return ResultFailure, ErrKeyConfirmationFailed
		}
		want := serverConfirmation(a.confirmKey, clientConfirmation(a.confirmKey, a.serverNonce))
		if !crypto.HMACEqual(cargo, want) {
			return ResultFailure, ErrKeyConfirmationFailed
		}
		return ResultSuccess, nil

	default:
		return ResultFailure, fmt.Errorf("%w: opcode 0x%02x", ErrUnexpectedOpcode, opcode)
	}
}

// DerivedSecret returns the shared secret once both rounds completed.
func (a *JpakeAuthenticator) DerivedSecret() ([]byte, bool) {
	return a.secret, a.secret != nil
}

// ServerNonce returns the device's confirmation nonce once received.
func (a *JpakeAuthenticator) ServerNonce() ([]byte, bool) {
	return a.serverNonce, a.serverNonce != nil
}

// Compile-time interface satisfaction checks.
var (
	_ Authenticator = (*JpakeAuthenticator)(nil)
	_ SecretSource  = (*JpakeAuthenticator)(nil)
)
