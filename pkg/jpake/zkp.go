package jpake

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// ZKP is a Schnorr-style proof of knowledge of x in X = G·x,
// generalized to an arbitrary generator G (not just the curve's base
// point, which round 2 requires).
type ZKP struct {
	// V is the prover's commitment G·v.
	V Point

	// R is the response v − x·h mod n.
	R *big.Int
}

// zkpChallenge computes h = Hash(G ‖ V ‖ X ‖ id) mod n. Every element
// is hashed as a 4-byte big-endian length followed by its encoding, so
// no point or identity boundary is ambiguous in the challenge input.
func zkpChallenge(g Group, generator, v, x Point, id []byte) *big.Int {
	h := sha256.New()
	for _, part := range [][]byte{g.Encode(generator), g.Encode(v), g.Encode(x), id} {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(part)))
		h.Write(lenBuf[:])
		h.Write(part)
	}
	digest := h.Sum(nil)
	return new(big.Int).Mod(new(big.Int).SetBytes(digest), g.N())
}

// proveZKP produces a proof of knowledge of x where X = generator·x.
func proveZKP(g Group, generator Point, x *big.Int, X Point, id []byte) (ZKP, error) {
	v, err := randomScalar(g.N())
	if err != nil {
		return ZKP{}, err
	}
	V := g.ScalarMult(generator, v)

	h := zkpChallenge(g, generator, V, X, id)

	// r = v − x·h mod n
	r := new(big.Int).Mul(x, h)
	r.Sub(v, r)
	r.Mod(r, g.N())

	return ZKP{V: V, R: r}, nil
}

// verifyZKP checks a proof against the stated generator, public point
// and prover identity: G·r + X·h must equal V.
func verifyZKP(g Group, generator Point, X Point, proof ZKP, id []byte) error {
	h := zkpChallenge(g, generator, proof.V, X, id)

	gr := g.ScalarMult(generator, proof.R)
	xh := g.ScalarMult(X, h)
	if recovered := g.Add(gr, xh); recovered.X.Cmp(proof.V.X) != 0 || recovered.Y.Cmp(proof.V.Y) != 0 {
		return ErrZKPInvalid
	}
	return nil
}
