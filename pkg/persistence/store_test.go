package persistence

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testStores(t *testing.T) map[string]CredentialStore {
	t.Helper()
	return map[string]CredentialStore{
		"FileStore":   NewFileStore(filepath.Join(t.TempDir(), "credentials.json")),
		"MemoryStore": NewMemoryStore(),
	}
}

func TestCredentialStore(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("EmptyStore", func(t *testing.T) {
				p, err := store.Pairing()
				if err != nil {
					t.Fatalf("Pairing() error = %v", err)
				}
				if p != nil {
					t.Fatalf("Pairing() = %+v, want nil", p)
				}

				secret, err := store.DerivedSecret()
				if err != nil {
					t.Fatalf("DerivedSecret() error = %v", err)
				}
				if len(secret) != 0 {
					t.Fatalf("DerivedSecret() = %v, want empty", secret)
				}
			})

			t.Run("SaveAndLoadPairing", func(t *testing.T) {
				want := Pairing{
					Address:     "00:11:22:33:44:55",
					PairingCode: "123456",
					PairedAt:    time.Now().UTC(),
				}
				if err := store.SavePairing(want); err != nil {
					t.Fatalf("SavePairing() error = %v", err)
				}

				got, err := store.Pairing()
				if err != nil {
					t.Fatalf("Pairing() error = %v", err)
				}
				if got == nil {
					t.Fatal("Pairing() = nil after save")
				}
				if got.Address != want.Address || got.PairingCode != want.PairingCode {
					t.Fatalf("Pairing() = %+v, want %+v", got, want)
				}
			})

			t.Run("SaveAndLoadKeyMaterial", func(t *testing.T) {
				secret := bytes.Repeat([]byte{0xAB}, 32)
				nonce := bytes.Repeat([]byte{0xCD}, 32)

				if err := store.SaveDerivedSecret(secret); err != nil {
					t.Fatalf("SaveDerivedSecret() error = %v", err)
				}
				if err := store.SaveServerNonce(nonce); err != nil {
					t.Fatalf("SaveServerNonce() error = %v", err)
				}

				gotSecret, err := store.DerivedSecret()
				if err != nil {
					t.Fatalf("DerivedSecret() error = %v", err)
				}
				if !bytes.Equal(gotSecret, secret) {
					t.Fatalf("DerivedSecret() = %x, want %x", gotSecret, secret)
				}

				gotNonce, err := store.ServerNonce()
				if err != nil {
					t.Fatalf("ServerNonce() error = %v", err)
				}
				if !bytes.Equal(gotNonce, nonce) {
					t.Fatalf("ServerNonce() = %x, want %x", gotNonce, nonce)
				}
			})

			t.Run("ClearRemovesEverything", func(t *testing.T) {
				if err := store.ClearPairing(); err != nil {
					t.Fatalf("ClearPairing() error = %v", err)
				}

				p, err := store.Pairing()
				if err != nil {
					t.Fatalf("Pairing() error = %v", err)
				}
				if p != nil {
					t.Fatalf("Pairing() = %+v after clear, want nil", p)
				}

				secret, err := store.DerivedSecret()
				if err != nil {
					t.Fatalf("DerivedSecret() error = %v", err)
				}
				if len(secret) != 0 {
					t.Fatal("derived secret survived ClearPairing")
				}

				nonce, err := store.ServerNonce()
				if err != nil {
					t.Fatalf("ServerNonce() error = %v", err)
				}
				if len(nonce) != 0 {
					t.Fatal("server nonce survived ClearPairing")
				}
			})
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store := NewFileStore(path)
	if err := store.SavePairing(Pairing{Address: "aa:bb", PairingCode: "123456"}); err != nil {
		t.Fatalf("SavePairing() error = %v", err)
	}
	if err := store.SaveDerivedSecret([]byte{1, 2, 3}); err != nil {
		t.Fatalf("SaveDerivedSecret() error = %v", err)
	}

	reopened := NewFileStore(path)
	p, err := reopened.Pairing()
	if err != nil {
		t.Fatalf("Pairing() error = %v", err)
	}
	if p == nil || p.Address != "aa:bb" {
		t.Fatalf("Pairing() = %+v after reopen", p)
	}

	secret, err := reopened.DerivedSecret()
	if err != nil {
		t.Fatalf("DerivedSecret() error = %v", err)
	}
	if !bytes.Equal(secret, []byte{1, 2, 3}) {
		t.Fatalf("DerivedSecret() = %v after reopen", secret)
	}
}

func TestFileStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "credentials.json")

	store := NewFileStore(path)
	if err := store.SavePairing(Pairing{Address: "aa:bb", PairingCode: "123456"}); err != nil {
		t.Fatalf("SavePairing() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewFileStore(path)
	_, err := store.Pairing()
	if err == nil {
		t.Fatal("Pairing() succeeded on corrupt file")
	}
	if !strings.Contains(err.Error(), "credential store") {
		t.Fatalf("error %q does not identify the store", err)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	store := NewFileStore(path)
	for i := 0; i < 5; i++ {
		if err := store.SaveDerivedSecret([]byte{byte(i)}); err != nil {
			t.Fatalf("SaveDerivedSecret() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory holds %d entries, want just the store file", len(entries))
	}
}
