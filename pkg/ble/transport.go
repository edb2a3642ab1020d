package ble

import (
	"context"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// TransportHandler receives transport events. All callbacks for one
// transport are delivered sequentially from a single goroutine.
type TransportHandler interface {
	// OnReady fires once the connection is established, the MTU is
	// negotiated and characteristic discovery has finished. Writes and
	// subscriptions are valid from this point on.
	OnReady()

	// OnChunkReceived delivers one notification chunk from the
	// peripheral. The slice is owned by the handler.
	OnChunkReceived(c wire.Characteristic, chunk []byte)

	// OnWriteComplete reports the outcome of the oldest outstanding
	// WriteChunk on the characteristic.
	OnWriteComplete(c wire.Characteristic, err error)

	// OnDisconnected reports an unsolicited connection loss. It does
	// not fire for an explicit Disconnect.
	OnDisconnected(err error)
}

// Transport models the BLE central operations the protocol stack
// needs. Implemented by Pipe; a production build supplies a platform
// binding.
type Transport interface {
	// Connect establishes a connection to the peripheral at the given
	// address. Completion is signalled through OnReady.
	Connect(ctx context.Context, address string) error

	// Disconnect tears the connection down. Idempotent.
	Disconnect() error

	// WriteChunk initiates one chunk write. The outcome arrives via
	// OnWriteComplete; at most one write per characteristic may be
	// outstanding.
	WriteChunk(c wire.Characteristic, chunk []byte) error

	// Subscribe enables notifications on the characteristic.
	Subscribe(c wire.Characteristic) error

	// SetHandler installs the event handler. Must be called before
	// Connect.
	SetHandler(h TransportHandler)
}
