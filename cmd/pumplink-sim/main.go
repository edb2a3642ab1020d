// Command pumplink-sim runs the PumpLink client stack against a
// simulated pump over an in-process transport.
//
// The simulator wires the full stack: chunked framing, the
// authentication handshake (EC-JPAKE or legacy, depending on the
// pairing code format), credential persistence and automatic
// reconnection. An interactive prompt drives connections and status
// requests and can inject link failures.
//
// Usage:
//
//	pumplink-sim [flags]
//
// Flags:
//
//	-config string   Configuration file path (YAML)
//	-code string     Pairing code (6-digit for EC-JPAKE, 16-char for legacy)
//	-address string  Simulated device address
//	-log-file string Protocol trace output file (CBOR)
//	-verbose         Mirror protocol events to the console
//
// Examples:
//
//	# EC-JPAKE pairing with defaults
//	pumplink-sim -code 123456
//
//	# Legacy pairing with a protocol trace
//	pumplink-sim -code ABCDEFGHIJKLMNOP -log-file session.plog
package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"

	"github.com/pumplink-protocol/pumplink-go/pkg/auth"
	"github.com/pumplink-protocol/pumplink-go/pkg/ble"
	"github.com/pumplink-protocol/pumplink-go/pkg/connection"
	"github.com/pumplink-protocol/pumplink-go/pkg/log"
	"github.com/pumplink-protocol/pumplink-go/pkg/persistence"
)

func main() {
	var (
		configPath string
		code       string
		address    string
		logFile    string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&code, "code", "", "Pairing code (6-digit for EC-JPAKE, 16-char for legacy)")
	flag.StringVar(&address, "address", "", "Simulated device address")
	flag.StringVar(&logFile, "log-file", "", "Protocol trace output file (CBOR)")
	flag.BoolVar(&verbose, "verbose", false, "Mirror protocol events to the console")
	flag.Parse()

	cfg := DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			stdlog.Fatalf("Failed to load config: %v", err)
		}
	}

	// Flags override the config file.
	if code != "" {
		cfg.PairingCode = code
	}
	if address != "" {
		cfg.Address = address
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if verbose {
		cfg.Verbose = true
	}

	if _, err := auth.ClassifyPairingCode(cfg.PairingCode); err != nil {
		stdlog.Fatalf("Invalid pairing code %q: %v", cfg.PairingCode, err)
	}

	if err := run(cfg); err != nil {
		stdlog.Fatalf("Simulator failed: %v", err)
	}
}

func run(cfg Config) error {
	transport, port := ble.NewPipe()
	defer transport.Close()

	device, err := ble.NewSimulatedDevice(port, cfg.PairingCode)
	if err != nil {
		return fmt.Errorf("failed to create simulated device: %w", err)
	}

	var store persistence.CredentialStore
	if cfg.CredentialsFile != "" {
		store = persistence.NewFileStore(cfg.CredentialsFile)
	} else {
		store = persistence.NewMemoryStore()
	}

	logger, closeLogger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLogger()

	orch, err := connection.NewOrchestrator(connection.Config{
		Transport:      transport,
		Store:          store,
		Logger:         logger,
		AutoReconnect:  cfg.AutoReconnect,
		RequestTimeout: cfg.RequestTimeout,
		Backoff: connection.BackoffConfig{
			Initial: cfg.Backoff.Initial,
			Max:     cfg.Backoff.Max,
		},
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	session, err := newSession(orch, device, port, cfg)
	if err != nil {
		return err
	}
	return session.run()
}

// buildLogger assembles the protocol logger from the configuration.
func buildLogger(cfg Config) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeLogger := func() {}

	if cfg.LogFile != "" {
		fileLogger, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		loggers = append(loggers, fileLogger)
		closeLogger = func() { fileLogger.Close() }
	}
	if cfg.Verbose {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, log.NewSlogAdapter(slog.New(handler)))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeLogger, nil
	case 1:
		return loggers[0], closeLogger, nil
	default:
		return log.NewMultiLogger(loggers...), closeLogger, nil
	}
}
