package jpake

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
)

// BlindingSize is the byte length of the per-operation random blinding
// factor applied to the pairing code scalar. Fixed protocol parameter.
const BlindingSize = 16

// SecretSize is the length of the derived shared secret.
const SecretSize = sha256.Size

// Role selects which side of the exchange this session plays. The
// roles differ only in which point sets feed the round-2 generators.
type Role uint8

const (
	// RoleClient initiates the exchange.
	RoleClient Role = iota

	// RoleServer responds to the exchange.
	RoleServer
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

// State is the session's progress through the exchange. Transitions
// are one-directional; the only permitted reordering is that a
// responder reads the peer's round 1 before building its own.
type State uint8

const (
	StateInit State = iota
	StateRound1Built
	StateRound1PeerSeen
	StateRound2Built
	StateRound2PeerSeen
	StateSecretDerived
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRound1Built:
		return "ROUND1_BUILT"
	case StateRound1PeerSeen:
		return "ROUND1_PEER_SEEN"
	case StateRound2Built:
		return "ROUND2_BUILT"
	case StateRound2PeerSeen:
		return "ROUND2_PEER_SEEN"
	case StateSecretDerived:
		return "SECRET_DERIVED"
	default:
		return "UNKNOWN"
	}
}

// Session holds the ephemeral state of one key-exchange attempt.
//
// A session is single-use: its ephemeral keys exist only for one
// connection attempt and are discarded with it. Replaying a finished
// session fails; a new connection attempt must construct a new
// session. Round builders are idempotent — calling one twice returns
// the cached message rather than regenerating ephemerals, so a
// retransmitted handshake message can never split a session across
// two key pairs.
//
// Session is not safe for concurrent use; the authenticator driving
// it serializes access.
type Session struct {
	group  Group
	role   Role
	ownID  []byte
	peerID []byte

	// s is the pairing code reduced to a scalar.
	s *big.Int

	// Own ephemerals.
	x1, x2 *big.Int
	pX1    Point
	pX2    Point

	// Peer values.
	peer1 Point
	peer2 Point
	peerM Point

	built1, seen1 bool
	built2, seen2 bool

	round1Msg []byte
	round2Msg []byte
	secret    []byte
}

// NewSession creates a fresh key-exchange session.
//
// The pairing code is reduced to a scalar mod the group order; a code
// that reduces to zero cannot be blinded and is rejected.
func NewSession(group Group, role Role, ownID, peerID []byte, pairingCode string) (*Session, error) {
	s := new(big.Int).SetBytes([]byte(pairingCode))
	s.Mod(s, group.N())
	if s.Sign() == 0 {
		return nil, ErrInvalidSecret
	}
	return &Session{
		group:  group,
		role:   role,
		ownID:  append([]byte(nil), ownID...),
		peerID: append([]byte(nil), peerID...),
		s:      s,
	}, nil
}

// State reports the session's progress.
func (s *Session) State() State {
	switch {
	case s.secret != nil:
		return StateSecretDerived
	case s.seen2:
		return StateRound2PeerSeen
	case s.built2:
		return StateRound2Built
	case s.built1 && s.seen1:
		return StateRound1PeerSeen
	case s.built1:
		return StateRound1Built
	default:
		return StateInit
	}
}

// Role returns the session's role.
func (s *Session) Role() Role {
	return s.role
}

// BuildRound1 generates the two ephemeral key pairs and returns the
// round-1 message: X1 ‖ ZKP(base, x1, X1, id) ‖ X2 ‖ ZKP(base, x2,
// X2, id). Repeat calls return the cached message.
func (s *Session) BuildRound1() ([]byte, error) {
	if s.built1 {
		return s.round1Msg, nil
	}

	base := s.group.Generator()
	var err error
	if s.x1, err = randomScalar(s.group.N()); err != nil {
		return nil, err
	}
	if s.x2, err = randomScalar(s.group.N()); err != nil {
		return nil, err
	}
	s.pX1 = s.group.ScalarMult(base, s.x1)
	s.pX2 = s.group.ScalarMult(base, s.x2)

	zkp1, err := proveZKP(s.group, base, s.x1, s.pX1, s.ownID)
	if err != nil {
		return nil, err
	}
	zkp2, err := proveZKP(s.group, base, s.x2, s.pX2, s.ownID)
	if err != nil {
		return nil, err
	}

	var msg []byte
	msg = appendPoint(msg, s.group, s.pX1)
	msg = appendZKP(msg, s.group, zkp1)
	msg = appendPoint(msg, s.group, s.pX2)
	msg = appendZKP(msg, s.group, zkp2)

	s.round1Msg = msg
	s.built1 = true
	return msg, nil
}

// ReadRound1 validates the peer's round-1 message: both ZKPs must
// verify against the base generator and the peer's declared identity.
func (s *Session) ReadRound1(msg []byte) error {
	if s.seen1 {
		return fmt.Errorf("%w: round 1 already received", ErrBadState)
	}
	if s.built2 || s.secret != nil {
		return fmt.Errorf("%w: round 1 after round 2", ErrBadState)
	}

	r := newReader(msg)
	p1, err := r.readPoint(s.group)
	if err != nil {
		return err
	}
	zkp1, err := r.readZKP(s.group)
	if err != nil {
		return err
	}
	p2, err := r.readPoint(s.group)
	if err != nil {
		return err
	}
	zkp2, err := r.readZKP(s.group)
	if err != nil {
		return err
	}

	base := s.group.Generator()
	if err := verifyZKP(s.group, base, p1, zkp1, s.peerID); err != nil {
		return err
	}
	if err := verifyZKP(s.group, base, p2, zkp2, s.peerID); err != nil {
		return err
	}

	s.peer1 = p1
	s.peer2 = p2
	s.seen1 = true
	return nil
}

// BuildRound2 blinds the pairing code into the round-2 point:
// G = Xp1 + Xp2 + X1, Xm = G · (x2·(b·n + s)), with a fresh random
// blinding factor b per call. Returns curveinfo ‖ Xm ‖ ZKP(G, xm, Xm,
// id). Repeat calls return the cached message.
func (s *Session) BuildRound2() ([]byte, error) {
	if s.built2 {
		return s.round2Msg, nil
	}
	if !s.built1 || !s.seen1 {
		return nil, fmt.Errorf("%w: round 2 requires both round-1 halves", ErrBadState)
	}

	gen := s.group.Add(s.group.Add(s.peer1, s.peer2), s.pX1)

	xm, err := s.blindedSecret(false)
	if err != nil {
		return nil, err
	}
	xmPoint := s.group.ScalarMult(gen, xm)

	proof, err := proveZKP(s.group, gen, xm, xmPoint, s.ownID)
	if err != nil {
		return nil, err
	}

	var msg []byte
	msg = appendCurveInfo(msg)
	msg = appendPoint(msg, s.group, xmPoint)
	msg = appendZKP(msg, s.group, proof)

	s.round2Msg = msg
	s.built2 = true
	return msg, nil
}

// ReadRound2 validates the peer's round-2 message. The peer's
// generator is recomputed from this side's point set, G' = X1 + X2 +
// Xp1, and the ZKP verified against it.
func (s *Session) ReadRound2(msg []byte) error {
	if s.seen2 {
		return fmt.Errorf("%w: round 2 already received", ErrBadState)
	}
	if !s.built1 || !s.seen1 {
		return fmt.Errorf("%w: round 2 before round 1 complete", ErrBadState)
	}

	r := newReader(msg)
	if err := r.readCurveInfo(); err != nil {
		return err
	}
	peerM, err := r.readPoint(s.group)
	if err != nil {
		return err
	}
	proof, err := r.readZKP(s.group)
	if err != nil {
		return err
	}

	gen := s.group.Add(s.group.Add(s.pX1, s.pX2), s.peer1)
	if err := verifyZKP(s.group, gen, peerM, proof, s.peerID); err != nil {
		return err
	}

	s.peerM = peerM
	s.seen2 = true
	return nil
}

// DeriveSecret computes the 32-byte shared secret: the pairing code is
// blinded a second time with negation, K = (Xp + Xp2·(−x2·s))·x2, and
// the secret is SHA-256 over K's x-coordinate. The value is derived
// once and cached; repeat calls return the cache, since the ephemeral
// state it consumes exists only once.
func (s *Session) DeriveSecret() ([]byte, error) {
	if s.secret != nil {
		return s.secret, nil
	}
	if !s.built2 || !s.seen2 {
		return nil, fmt.Errorf("%w: secret derivation requires both round-2 halves", ErrBadState)
	}

	xs, err := s.blindedSecret(true)
	if err != nil {
		return nil, err
	}

	// K = (Xm_peer + Xp2·xs) · x2
	k := s.group.Add(s.peerM, s.group.ScalarMult(s.peer2, xs))
	k = s.group.ScalarMult(k, s.x2)

	var xBytes [SecretSize]byte
	k.X.FillBytes(xBytes[:])
	digest := sha256.Sum256(xBytes[:])

	s.secret = digest[:]
	return s.secret, nil
}

// blindedSecret computes x2·(b·n + s) mod n with a fresh 16-byte
// random blinding factor b, optionally negated. The b·n term vanishes
// mod n, so the blinding never changes the result — it only decouples
// the intermediate products from the raw pairing code across repeated
// transcripts. b is never reused between calls.
func (s *Session) blindedSecret(negate bool) (*big.Int, error) {
	var bBytes [BlindingSize]byte
	if _, err := io.ReadFull(rand.Reader, bBytes[:]); err != nil {
		return nil, fmt.Errorf("failed to generate blinding factor: %w", err)
	}
	b := new(big.Int).SetBytes(bBytes[:])

	n := s.group.N()
	v := new(big.Int).Mul(b, n)
	v.Add(v, s.s)
	v.Mul(v, s.x2)
	v.Mod(v, n)
	if negate {
		v.Sub(n, v)
		v.Mod(v, n)
	}
	return v, nil
}
