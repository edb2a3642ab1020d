// Package jpake implements the three-round EC-JPAKE password
// authenticated key exchange used to pair with the peripheral.
//
// Both parties blind a shared low-entropy pairing code into ephemeral
// curve points, prove knowledge of the blinding exponents with
// Schnorr-style zero-knowledge proofs, and derive a 32-byte shared
// secret that only matches when both sides hold the same code. The
// code itself never travels on the wire.
//
// The protocol runs over P-256. Curve arithmetic is abstracted behind
// the Group interface so the round logic does not depend on a
// particular curve library.
package jpake
