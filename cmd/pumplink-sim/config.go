package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the simulator configuration.
type Config struct {
	// Address is the simulated peripheral's address.
	Address string `yaml:"address"`

	// PairingCode is used by both the simulated device and, as the
	// default, by the connect command.
	PairingCode string `yaml:"pairing_code"`

	// AutoReconnect enables reconnection with backoff after an
	// unexpected connection loss.
	AutoReconnect bool `yaml:"auto_reconnect"`

	// RequestTimeout bounds requests without an explicit deadline.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Backoff tunes the reconnection delays.
	Backoff BackoffSettings `yaml:"backoff"`

	// CredentialsFile persists the pairing across runs. Empty keeps
	// credentials in memory.
	CredentialsFile string `yaml:"credentials_file"`

	// LogFile captures the protocol trace in CBOR. Empty disables.
	LogFile string `yaml:"log_file"`

	// Verbose mirrors protocol events to the console.
	Verbose bool `yaml:"verbose"`
}

// BackoffSettings mirrors connection.BackoffConfig for YAML.
type BackoffSettings struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// DefaultConfig returns the simulator defaults.
func DefaultConfig() Config {
	return Config{
		Address:       "SIM-00:11:22:33:44:55",
		PairingCode:   "123456",
		AutoReconnect: true,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
