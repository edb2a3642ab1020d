package jpake

import (
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"
)

// Point is an affine point on the group's curve.
type Point struct {
	X, Y *big.Int
}

// Group is the minimal curve-group surface the round logic needs. Any
// library capable of constant-time scalar multiplication over a prime
// order curve can satisfy it.
type Group interface {
	// Generator returns the base point.
	Generator() Point

	// Add returns p + q.
	Add(p, q Point) Point

	// ScalarMult returns p * k.
	ScalarMult(p Point, k *big.Int) Point

	// Encode serializes a point in the protocol's uncompressed form.
	Encode(p Point) []byte

	// Decode parses an encoded point, rejecting values not on the curve.
	Decode(data []byte) (Point, error)

	// N returns the group order.
	N() *big.Int

	// PointSize returns the encoded point length in bytes.
	PointSize() int
}

// P256Group implements Group over NIST P-256, the protocol's fixed
// curve.
type P256Group struct {
	curve elliptic.Curve
}

// NewP256Group returns the protocol curve group.
func NewP256Group() *P256Group {
	return &P256Group{curve: elliptic.P256()}
}

// Generator returns the P-256 base point.
func (g *P256Group) Generator() Point {
	params := g.curve.Params()
	return Point{X: params.Gx, Y: params.Gy}
}

// Add returns p + q.
func (g *P256Group) Add(p, q Point) Point {
	x, y := g.curve.Add(p.X, p.Y, q.X, q.Y)
	return Point{X: x, Y: y}
}

// ScalarMult returns p * k.
func (g *P256Group) ScalarMult(p Point, k *big.Int) Point {
	x, y := g.curve.ScalarMult(p.X, p.Y, k.Bytes())
	return Point{X: x, Y: y}
}

// Encode serializes p uncompressed (0x04 ‖ X ‖ Y, 65 bytes).
func (g *P256Group) Encode(p Point) []byte {
	return elliptic.Marshal(g.curve, p.X, p.Y)
}

// Decode parses an uncompressed point and verifies it lies on the curve.
func (g *P256Group) Decode(data []byte) (Point, error) {
	x, y := elliptic.Unmarshal(g.curve, data)
	if x == nil {
		return Point{}, fmt.Errorf("%w: %d bytes", ErrInvalidPoint, len(data))
	}
	return Point{X: x, Y: y}, nil
}

// N returns the order of the P-256 base point.
func (g *P256Group) N() *big.Int {
	return g.curve.Params().N
}

// PointSize returns the uncompressed encoding length (65 bytes).
func (g *P256Group) PointSize() int {
	return 1 + 2*((g.curve.Params().BitSize+7)/8)
}

// randomScalar draws a uniform non-zero scalar below n.
func randomScalar(n *big.Int) (*big.Int, error) {
	for {
		k, err := rand.Int(rand.Reader, n)
		if err != nil {
			return nil, fmt.Errorf("failed to generate scalar: %w", err)
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
}
