package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateVersion is the current version of the credential file format.
const StateVersion = 1

// credentialState is the on-disk layout.
type credentialState struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	Pairing       *Pairing `json:"pairing,omitempty"`
	DerivedSecret []byte   `json:"derived_secret,omitempty"`
	ServerNonce   []byte   `json:"server_nonce,omitempty"`
}

// FileStore persists credentials to a JSON file. Writes go through a
// temp file and a rename so a crash never leaves a half-written store.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the given path. The file is
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Pairing returns the stored pairing.
func (s *FileStore) Pairing() (*Pairing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	return state.Pairing, nil
}

// SavePairing stores the pairing, replacing any previous one.
func (s *FileStore) SavePairing(p Pairing) error {
	return s.update(func(state *credentialState) {
		state.Pairing = &p
	})
}

// ClearPairing removes the pairing and all derived key material.
func (s *FileStore) ClearPairing() error {
	return s.update(func(state *credentialState) {
		state.Pairing = nil
		state.DerivedSecret = nil
		state.ServerNonce = nil
	})
}

// DerivedSecret returns the stored shared secret.
func (s *FileStore) DerivedSecret() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	return state.DerivedSecret, nil
}

// SaveDerivedSecret stores the handshake's shared secret.
func (s *FileStore) SaveDerivedSecret(secret []byte) error {
	return s.update(func(state *credentialState) {
		state.DerivedSecret = append([]byte(nil), secret...)
	})
}

// ServerNonce returns the stored server nonce.
func (s *FileStore) ServerNonce() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	return state.ServerNonce, nil
}

// SaveServerNonce stores the device's key-confirmation nonce.
func (s *FileStore) SaveServerNonce(nonce []byte) error {
	return s.update(func(state *credentialState) {
		state.ServerNonce = append([]byte(nil), nonce...)
	})
}

// update applies a mutation under the lock with read-modify-write.
func (s *FileStore) update(mutate func(*credentialState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	mutate(state)
	return s.save(state)
}

// load reads the state file. A missing file is an empty state.
func (s *FileStore) load() (*credentialState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &credentialState{Version: StateVersion}, nil
	}
	if err != nil {
		return nil, err
	}

	state := &credentialState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse credential store %s: %w", s.path, err)
	}
	return state, nil
}

func (s *FileStore) save(state *credentialState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
