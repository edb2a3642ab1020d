package jpake

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Wire encoding constants. These are fixed protocol parameters per the
// RFC 4492 named-curve convention and must match the peer
// byte-for-byte; a mismatch is a fatal decode error.
const (
	// curveTypeNamedCurve is the RFC 4492 curve-type tag.
	curveTypeNamedCurve = 0x03

	// curveIDSecp256r1 is the RFC 4492 named-curve id for P-256.
	curveIDSecp256r1 = 0x0017

	// ScalarSize is the fixed big-endian scalar encoding length.
	ScalarSize = 32
)

// appendCurveInfo appends the named-curve announcement.
func appendCurveInfo(b []byte) []byte {
	b = append(b, curveTypeNamedCurve)
	return binary.BigEndian.AppendUint16(b, curveIDSecp256r1)
}

// appendPoint appends a length-prefixed uncompressed point.
func appendPoint(b []byte, g Group, p Point) []byte {
	enc := g.Encode(p)
	b = append(b, byte(len(enc)))
	return append(b, enc...)
}

// appendScalar appends a length-prefixed fixed-width scalar.
func appendScalar(b []byte, k *big.Int) []byte {
	b = append(b, ScalarSize)
	var buf [ScalarSize]byte
	k.FillBytes(buf[:])
	return append(b, buf[:]...)
}

// appendZKP appends a proof: its commitment point then its response
// scalar.
func appendZKP(b []byte, g Group, p ZKP) []byte {
	b = appendPoint(b, g, p.V)
	return appendScalar(b, p.R)
}

// reader walks a round message buffer.
type reader struct {
	buf []byte
	off int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// readCurveInfo consumes and validates the named-curve announcement.
func (r *reader) readCurveInfo() error {
	b, err := r.take(3)
	if err != nil {
		return err
	}
	if b[0] != curveTypeNamedCurve {
		return fmt.Errorf("%w: curve type 0x%02x", ErrCurveMismatch, b[0])
	}
	if id := binary.BigEndian.Uint16(b[1:]); id != curveIDSecp256r1 {
		return fmt.Errorf("%w: curve id 0x%04x", ErrCurveMismatch, id)
	}
	return nil
}

// readPoint consumes a length-prefixed point.
func (r *reader) readPoint(g Group) (Point, error) {
	lb, err := r.take(1)
	if err != nil {
		return Point{}, err
	}
	enc, err := r.take(int(lb[0]))
	if err != nil {
		return Point{}, err
	}
	return g.Decode(enc)
}

// readScalar consumes a length-prefixed scalar.
func (r *reader) readScalar() (*big.Int, error) {
	lb, err := r.take(1)
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(lb[0]))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// readZKP consumes a proof.
func (r *reader) readZKP(g Group) (ZKP, error) {
	v, err := r.readPoint(g)
	if err != nil {
		return ZKP{}, err
	}
	s, err := r.readScalar()
	if err != nil {
		return ZKP{}, err
	}
	return ZKP{V: v, R: s}, nil
}
