package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// Frame layout constants.
const (
	// HeaderSize is opcode + txId + cargoLen.
	HeaderSize = 3

	// CRCSize is the trailing frame check sequence.
	CRCSize = 2

	// MinFrameSize is the smallest valid serialized frame (no cargo).
	MinFrameSize = HeaderSize + CRCSize
)

// Build serializes a message into its raw frame:
// opcode, txId, cargo length, cargo, CRC16 (big-endian).
func Build(msg wire.Message) ([]byte, error) {
	if len(msg.Cargo) > wire.MaxCargoSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(msg.Cargo), wire.MaxCargoSize)
	}

	raw := make([]byte, 0, HeaderSize+len(msg.Cargo)+CRCSize)
	raw = append(raw, msg.Opcode, msg.TxID, byte(len(msg.Cargo)))
	raw = append(raw, msg.Cargo...)
	raw = binary.BigEndian.AppendUint16(raw, CRC16(raw))
	return raw, nil
}

// Parse validates a reassembled raw frame and extracts the message.
// It rejects frames shorter than the minimum, frames whose declared
// cargo length does not match the buffer, and frames whose trailing
// CRC does not match the computed value.
func Parse(raw []byte) (wire.Message, error) {
	if len(raw) < MinFrameSize {
		return wire.Message{}, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(raw))
	}

	cargoLen := int(raw[2])
	if len(raw) != HeaderSize+cargoLen+CRCSize {
		return wire.Message{}, fmt.Errorf("%w: cargo length %d does not match frame length %d",
			ErrMalformedFrame, cargoLen, len(raw))
	}

	body := raw[:HeaderSize+cargoLen]
	want := binary.BigEndian.Uint16(raw[HeaderSize+cargoLen:])
	if got := CRC16(body); got != want {
		return wire.Message{}, fmt.Errorf("%w: crc 0x%04x != 0x%04x", ErrMalformedFrame, got, want)
	}

	cargo := make([]byte, cargoLen)
	copy(cargo, raw[HeaderSize:HeaderSize+cargoLen])
	return wire.Message{Opcode: raw[0], TxID: raw[1], Cargo: cargo}, nil
}
