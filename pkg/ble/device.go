package ble

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/pumplink-protocol/pumplink-go/pkg/auth"
	"github.com/pumplink-protocol/pumplink-go/pkg/packet"
	"github.com/pumplink-protocol/pumplink-go/pkg/version"
	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// Simulated device defaults.
const defaultBattery = 75

// SimulatedDevice is a scripted peripheral behind a DevicePort. It
// speaks the real wire format: chunks in, chunks out, with CRC-checked
// frames in between. It runs the device side of the configured
// handshake and answers status requests once authenticated.
type SimulatedDevice struct {
	mu sync.Mutex

	port          *DevicePort
	authenticator auth.Authenticator
	reassemblers  map[wire.Characteristic]*packet.Reassembler

	authenticated bool
	startedAt     time.Time

	api     version.ApiVersion
	battery uint8

	lastErr error
}

// NewSimulatedDevice creates a device expecting the given pairing code
// and attaches it to the port. The handshake flavor follows the code
// format, as on the real peripheral.
func NewSimulatedDevice(port *DevicePort, pairingCode string) (*SimulatedDevice, error) {
	codeType, err := auth.ClassifyPairingCode(pairingCode)
	if err != nil {
		return nil, err
	}

	var authenticator auth.Authenticator
	switch codeType {
	case auth.CodeTypeJpake:
		authenticator, err = auth.NewJpakeDeviceAuthenticator(pairingCode)
	case auth.CodeTypeLegacy:
		authenticator, err = auth.NewLegacyDeviceAuthenticator(pairingCode)
	default:
		return nil, fmt.Errorf("%w: unhandled code type %v", auth.ErrInvalidPairingCode, codeType)
	}
	if err != nil {
		return nil, err
	}

	d := &SimulatedDevice{
		port:          port,
		authenticator: authenticator,
		reassemblers:  make(map[wire.Characteristic]*packet.Reassembler),
		startedAt:     time.Now(),
		api:           version.Supported,
		battery:       defaultBattery,
	}
	port.SetReceiver(d.receive)
	port.SetConnectHandler(d.onConnect)
	return d, nil
}

// onConnect starts every central connection from a clean slate: fresh
// handshake, empty reassembly buffers.
func (d *SimulatedDevice) onConnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.authenticator.Reset()
	d.reassemblers = make(map[wire.Characteristic]*packet.Reassembler)
	d.authenticated = false
}

// Authenticated reports whether the current connection has completed
// the handshake.
func (d *SimulatedDevice) Authenticated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authenticated
}

// DerivedSecret returns the handshake's shared secret, when the
// configured handshake produces one.
func (d *SimulatedDevice) DerivedSecret() ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if src, ok := d.authenticator.(auth.SecretSource); ok {
		return src.DerivedSecret()
	}
	return nil, false
}

// SetBattery overrides the reported battery percentage.
func (d *SimulatedDevice) SetBattery(percent uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.battery = percent
}

// LastError returns the most recent protocol error the device
// swallowed (malformed chunk, bad frame, failed handshake step).
func (d *SimulatedDevice) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *SimulatedDevice) receive(c wire.Characteristic, chunk []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.reassemblers[c]
	if !ok {
		r = packet.NewReassembler()
		d.reassemblers[c] = r
	}

	raw, err := r.Feed(chunk)
	if err != nil {
		d.lastErr = err
		return
	}
	if raw == nil {
		return
	}

	msg, err := packet.Parse(raw)
	if err != nil {
		d.lastErr = err
		return
	}

	switch c {
	case wire.CharAuthorization:
		d.handleAuthorization(msg)
	case wire.CharCurrentStatus:
		d.handleStatus(msg)
	default:
		// Control and event traffic is out of the simulation's scope.
	}
}

func (d *SimulatedDevice) handleAuthorization(msg wire.Message) {
	result, err := d.authenticator.HandleMessage(msg.Opcode, msg.Cargo)
	if err != nil {
		d.lastErr = err
	}

	// A failing handshake may still queue a rejection; send whatever
	// the authenticator produced.
	for {
		reply, nerr := d.authenticator.NextMessage()
		if nerr != nil {
			d.lastErr = nerr
			return
		}
		if reply == nil {
			break
		}
		reply.TxID = msg.TxID
		d.send(wire.CharAuthorization, *reply)
	}

	if result == auth.ResultSuccess {
		d.authenticated = true
	}
}

func (d *SimulatedDevice) handleStatus(msg wire.Message) {
	// Status traffic requires a completed handshake.
	if !d.authenticated {
		return
	}

	var cargo []byte
	switch msg.Opcode {
	case wire.OpcodeApiVersionRequest:
		cargo = d.api.Encode()
	case wire.OpcodeTimeSinceResetRequest:
		seconds := uint32(time.Since(d.startedAt) / time.Second)
		cargo = binary.BigEndian.AppendUint32(nil, seconds)
	case wire.OpcodeBatteryStatusRequest:
		cargo = []byte{d.battery}
	default:
		return
	}

	d.send(wire.CharCurrentStatus, wire.Message{
		Opcode: wire.ResponseOpcode(msg.Opcode),
		TxID:   msg.TxID,
		Cargo:  cargo,
	})
}

func (d *SimulatedDevice) send(c wire.Characteristic, msg wire.Message) {
	chunks, err := packet.Encode(msg, c.ChunkSize())
	if err != nil {
		d.lastErr = err
		return
	}
	for _, chunk := range chunks {
		if err := d.port.Notify(c, chunk); err != nil {
			d.lastErr = err
			return
		}
	}
}
