package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/pumplink-protocol/pumplink-go/pkg/ble"
	"github.com/pumplink-protocol/pumplink-go/pkg/connection"
	"github.com/pumplink-protocol/pumplink-go/pkg/version"
	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// session is the interactive command loop around one orchestrator.
type session struct {
	orch   *connection.Orchestrator
	device *ble.SimulatedDevice
	port   *ble.DevicePort
	cfg    Config
	rl     *readline.Instance
}

func newSession(orch *connection.Orchestrator, device *ble.SimulatedDevice, port *ble.DevicePort, cfg Config) (*session, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pump> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := &session{orch: orch, device: device, port: port, cfg: cfg, rl: rl}
	orch.OnStateChange(func(oldState, newState connection.State) {
		fmt.Fprintf(rl.Stdout(), "state: %s -> %s\n", oldState, newState)
	})
	return s, nil
}

// run executes the command loop until exit or EOF.
func (s *session) run() error {
	defer s.rl.Close()

	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "connect", "c":
			s.cmdConnect(args)

		case "reconnect":
			s.cmdReconnect()

		case "disconnect", "d":
			s.cmdDisconnect()

		case "state", "s":
			fmt.Fprintf(s.rl.Stdout(), "%s\n", s.orch.State())

		case "battery", "b":
			s.cmdBattery()

		case "version", "v":
			s.cmdVersion()

		case "uptime", "u":
			s.cmdUptime()

		case "drop":
			s.cmdDrop()

		case "setbattery":
			s.cmdSetBattery(args)

		case "exit", "quit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return nil

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command %q. Type 'help' for commands.\n", cmd)
		}
	}
}

func (s *session) printHelp() {
	fmt.Fprint(s.rl.Stdout(), `Commands:
  connect [code]   Connect and authenticate (default code from config)
  reconnect        Connect using the stored pairing
  disconnect       Tear the connection down
  state            Show the connection state
  battery          Request the battery percentage
  version          Request the API version
  uptime           Request time since device reset
  drop             Simulate an unexpected link loss
  setbattery <n>   Change the simulated battery percentage
  exit             Quit
`)
}

func (s *session) cmdConnect(args []string) {
	code := s.cfg.PairingCode
	if len(args) > 0 {
		code = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.orch.Connect(ctx, s.cfg.Address, code); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "connect failed: %v\n", err)
	}
}

func (s *session) cmdReconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.orch.ConnectStored(ctx); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "reconnect failed: %v\n", err)
	}
}

func (s *session) cmdDisconnect() {
	if err := s.orch.Disconnect(); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "disconnect failed: %v\n", err)
	}
}

func (s *session) cmdBattery() {
	cargo, err := s.request(wire.OpcodeBatteryStatusRequest)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "battery request failed: %v\n", err)
		return
	}
	if len(cargo) != 1 {
		fmt.Fprintf(s.rl.Stdout(), "unexpected battery response: %x\n", cargo)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "battery: %d%%\n", cargo[0])
}

func (s *session) cmdVersion() {
	cargo, err := s.request(wire.OpcodeApiVersionRequest)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "version request failed: %v\n", err)
		return
	}
	v, err := version.Decode(cargo)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "unexpected version response: %x\n", cargo)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "api version: %s", v)
	if !v.Compatible(version.Supported) {
		fmt.Fprintf(s.rl.Stdout(), " (incompatible, supported %s)", version.Supported)
	}
	fmt.Fprintln(s.rl.Stdout())
}

func (s *session) cmdUptime() {
	cargo, err := s.request(wire.OpcodeTimeSinceResetRequest)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "uptime request failed: %v\n", err)
		return
	}
	if len(cargo) != 4 {
		fmt.Fprintf(s.rl.Stdout(), "unexpected uptime response: %x\n", cargo)
		return
	}
	seconds := binary.BigEndian.Uint32(cargo)
	fmt.Fprintf(s.rl.Stdout(), "time since reset: %s\n", time.Duration(seconds)*time.Second)
}

func (s *session) cmdDrop() {
	s.port.DropLink(errors.New("simulated link loss"))
	fmt.Fprintln(s.rl.Stdout(), "link dropped")
}

func (s *session) cmdSetBattery(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "usage: setbattery <0-100>")
		return
	}
	var percent uint8
	if _, err := fmt.Sscanf(args[0], "%d", &percent); err != nil || percent > 100 {
		fmt.Fprintln(s.rl.Stdout(), "usage: setbattery <0-100>")
		return
	}
	s.device.SetBattery(percent)
	fmt.Fprintf(s.rl.Stdout(), "battery set to %d%%\n", percent)
}

func (s *session) request(opcode uint8) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.orch.Request(ctx, wire.CharCurrentStatus, opcode, nil)
}
