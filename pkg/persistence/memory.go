package persistence

import "sync"

// MemoryStore is an in-memory CredentialStore for tests and sessions
// that should not leave credentials on disk.
type MemoryStore struct {
	mu sync.Mutex

	pairing *Pairing
	secret  []byte
	nonce   []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Pairing returns the stored pairing.
func (s *MemoryStore) Pairing() (*Pairing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pairing == nil {
		return nil, nil
	}
	p := *s.pairing
	return &p, nil
}

// SavePairing stores the pairing, replacing any previous one.
func (s *MemoryStore) SavePairing(p Pairing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairing = &p
	return nil
}

// ClearPairing removes the pairing and all derived key material.
func (s *MemoryStore) ClearPairing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairing = nil
	s.secret = nil
	s.nonce = nil
	return nil
}

// DerivedSecret returns the stored shared secret.
func (s *MemoryStore) DerivedSecret() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.secret...), nil
}

// SaveDerivedSecret stores the handshake's shared secret.
func (s *MemoryStore) SaveDerivedSecret(secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = append([]byte(nil), secret...)
	return nil
}

// ServerNonce returns the stored server nonce.
func (s *MemoryStore) ServerNonce() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.nonce...), nil
}

// SaveServerNonce stores the device's key-confirmation nonce.
func (s *MemoryStore) SaveServerNonce(nonce []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce = append([]byte(nil), nonce...)
	return nil
}
