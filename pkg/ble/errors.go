package ble

import "errors"

var (
	// ErrNotConnected is returned for operations that require an
	// established connection.
	ErrNotConnected = errors.New("ble: not connected")

	// ErrAlreadyConnected is returned by Connect on a transport that
	// already holds a connection.
	ErrAlreadyConnected = errors.New("ble: already connected")

	// ErrNotSubscribed is returned when a notification is sent on a
	// characteristic the central has not subscribed to.
	ErrNotSubscribed = errors.New("ble: characteristic not subscribed")

	// ErrChunkTooLarge is returned when a chunk exceeds the
	// characteristic's write size.
	ErrChunkTooLarge = errors.New("ble: chunk exceeds characteristic write size")

	// ErrTransportClosed is returned once the transport has been shut
	// down for good.
	ErrTransportClosed = errors.New("ble: transport closed")
)
