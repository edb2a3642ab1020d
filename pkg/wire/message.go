package wire

import "fmt"

// MaxCargoSize is the maximum cargo length of a single message.
// The cargo length travels in a single byte.
const MaxCargoSize = 255

// Message is a single PumpLink application message.
//
// Messages are immutable once constructed: authenticators and request
// issuers produce them, the packet layer consumes them. Cargo is owned
// by the message; callers must not mutate it after construction.
type Message struct {
	Opcode uint8
	TxID   uint8
	Cargo  []byte
}

// NewMessage constructs a message, copying the cargo.
func NewMessage(opcode, txID uint8, cargo []byte) (Message, error) {
	if len(cargo) > MaxCargoSize {
		return Message{}, fmt.Errorf("cargo length %d exceeds %d bytes", len(cargo), MaxCargoSize)
	}
	c := make([]byte, len(cargo))
	copy(c, cargo)
	return Message{Opcode: opcode, TxID: txID, Cargo: c}, nil
}

// String returns a compact description for logging.
func (m Message) String() string {
	return fmt.Sprintf("opcode=0x%02x tx=%d cargo=%d", m.Opcode, m.TxID, len(m.Cargo))
}
