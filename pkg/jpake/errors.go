package jpake

import "errors"

// Key-exchange errors.
var (
	// ErrBadState indicates a round operation called out of order.
	ErrBadState = errors.New("jpake: operation not valid in current state")

	// ErrZKPInvalid indicates a zero-knowledge proof that failed
	// verification. The peer is assumed malicious or holds a
	// different pairing code; the handshake aborts.
	ErrZKPInvalid = errors.New("jpake: zero-knowledge proof validation failed")

	// ErrInvalidPoint indicates a wire encoding that does not decode
	// to a point on the curve. Fatal, not a retry condition.
	ErrInvalidPoint = errors.New("jpake: invalid curve point encoding")

	// ErrCurveMismatch indicates a named-curve announcement that does
	// not match the fixed protocol parameters. Fatal.
	ErrCurveMismatch = errors.New("jpake: curve parameters mismatch")

	// ErrTruncated indicates a round message shorter than its layout.
	ErrTruncated = errors.New("jpake: truncated round message")

	// ErrInvalidSecret indicates a pairing code that reduces to the
	// zero scalar and cannot be blinded.
	ErrInvalidSecret = errors.New("jpake: pairing code reduces to zero scalar")
)
