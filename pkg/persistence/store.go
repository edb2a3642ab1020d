package persistence

import "time"

// Pairing identifies the peripheral the stack is bonded to.
type Pairing struct {
	// Address is the peripheral's BLE address.
	Address string `json:"address"`

	// PairingCode is the code the bond was established with. It is
	// needed again for every re-authentication.
	PairingCode string `json:"pairing_code"`

	// PairedAt is when the first authentication succeeded.
	PairedAt time.Time `json:"paired_at"`
}

// CredentialStore persists the pairing and the session key material
// derived from it. Getters return nil with a nil error when nothing is
// stored.
//
// Implemented by FileStore and MemoryStore.
type CredentialStore interface {
	// Pairing returns the stored pairing.
	Pairing() (*Pairing, error)

	// SavePairing stores the pairing, replacing any previous one.
	SavePairing(p Pairing) error

	// ClearPairing removes the pairing and all derived key material.
	ClearPairing() error

	// DerivedSecret returns the stored shared secret.
	DerivedSecret() ([]byte, error)

	// SaveDerivedSecret stores the handshake's shared secret.
	SaveDerivedSecret(secret []byte) error

	// ServerNonce returns the stored server nonce.
	ServerNonce() ([]byte, error)

	// SaveServerNonce stores the device's key-confirmation nonce.
	SaveServerNonce(nonce []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ CredentialStore = (*FileStore)(nil)
	_ CredentialStore = (*MemoryStore)(nil)
)
