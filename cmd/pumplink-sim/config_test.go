package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`address: "pump-01"
pairing_code: "654321"
auto_reconnect: false
request_timeout: 2s
backoff:
  initial: 500ms
  max: 8s
credentials_file: creds.json
verbose: true
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "pump-01" {
		t.Errorf("Address = %q, want pump-01", cfg.Address)
	}
	if cfg.PairingCode != "654321" {
		t.Errorf("PairingCode = %q, want 654321", cfg.PairingCode)
	}
	if cfg.AutoReconnect {
		t.Error("AutoReconnect should be overridden to false")
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %v, want 2s", cfg.RequestTimeout)
	}
	if cfg.Backoff.Initial != 500*time.Millisecond || cfg.Backoff.Max != 8*time.Second {
		t.Errorf("Backoff = %+v", cfg.Backoff)
	}
	if cfg.CredentialsFile != "creds.json" {
		t.Errorf("CredentialsFile = %q", cfg.CredentialsFile)
	}
	if !cfg.Verbose {
		t.Error("Verbose should be true")
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`pairing_code: "111111"`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.PairingCode != "111111" {
		t.Errorf("PairingCode = %q, want 111111", cfg.PairingCode)
	}
	def := DefaultConfig()
	if cfg.Address != def.Address {
		t.Errorf("Address = %q, want default %q", cfg.Address, def.Address)
	}
	if !cfg.AutoReconnect {
		t.Error("AutoReconnect default should survive a partial config")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() on a missing file should return an error")
	}
}
