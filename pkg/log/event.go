package log

import (
	"time"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Characteristic the traffic moved on, where applicable.
	Characteristic *wire.Characteristic `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peripheral's BLE address.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Chunk       *ChunkEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Packet layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Connection state
	Auth        *AuthEvent        `cbor:"13,keyasint,omitempty"` // Handshake progress
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the BLE chunk layer (raw bytes).
	LayerTransport Layer = 0
	// LayerPacket is the frame/message layer (decoded).
	LayerPacket Layer = 1
	// LayerConnection is the connection/session layer.
	LayerConnection Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerPacket:
		return "PACKET"
	case LayerConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a decoded protocol message.
	CategoryMessage Category = 0
	// CategoryChunk indicates a raw transport chunk.
	CategoryChunk Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryAuth indicates handshake progress.
	CategoryAuth Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryChunk:
		return "CHUNK"
	case CategoryState:
		return "STATE"
	case CategoryAuth:
		return "AUTH"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ChunkEvent captures one raw BLE chunk at the transport layer.
type ChunkEvent struct {
	// Size is the chunk size in bytes (including the chunk header).
	Size int `cbor:"1,keyasint"`

	// TxID is the transaction id carried in the chunk header.
	TxID uint8 `cbor:"2,keyasint"`

	// Remaining is the chunk header's remaining count.
	Remaining uint8 `cbor:"3,keyasint"`

	// Data is the raw chunk bytes (may be truncated for large chunks).
	Data []byte `cbor:"4,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"5,keyasint,omitempty"`
}

// MessageEvent captures a decoded protocol message at the packet layer.
type MessageEvent struct {
	// Opcode is the message opcode.
	Opcode uint8 `cbor:"1,keyasint"`

	// TxID correlates request/response pairs.
	TxID uint8 `cbor:"2,keyasint"`

	// CargoSize is the cargo length in bytes.
	CargoSize int `cbor:"3,keyasint"`

	// Cargo is the message payload. Auth traffic never records cargo;
	// key material must not reach the trace.
	Cargo []byte `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures connection lifecycle events.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// AuthEvent captures handshake progress.
type AuthEvent struct {
	// Method is the handshake flavor in use.
	Method AuthMethod `cbor:"1,keyasint"`

	// Opcode is the handshake message that advanced the exchange.
	Opcode uint8 `cbor:"2,keyasint"`

	// Outcome is set on the concluding event.
	Outcome string `cbor:"3,keyasint,omitempty"`
}

// AuthMethod identifies the handshake flavor.
type AuthMethod uint8

const (
	// AuthMethodJpake is the EC-JPAKE handshake.
	AuthMethodJpake AuthMethod = 0
	// AuthMethodLegacy is the HMAC challenge-response handshake.
	AuthMethodLegacy AuthMethod = 1
)

// String returns the auth method name.
func (m AuthMethod) String() string {
	switch m {
	case AuthMethodJpake:
		return "JPAKE"
	case AuthMethodLegacy:
		return "LEGACY"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
