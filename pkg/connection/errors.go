package connection

import "errors"

var (
	// ErrClosed is returned for operations on a closed orchestrator.
	ErrClosed = errors.New("connection: orchestrator closed")

	// ErrNotConnected is returned when a request is issued without an
	// authenticated connection.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrAlreadyConnected is returned by Connect while a connection is
	// established or being established.
	ErrAlreadyConnected = errors.New("connection: already connected")

	// ErrNotPaired is returned by ConnectStored when no pairing is on
	// record.
	ErrNotPaired = errors.New("connection: no stored pairing")

	// ErrRequestTimeout is returned when a request's deadline passes
	// before the response arrives.
	ErrRequestTimeout = errors.New("connection: request timed out")

	// ErrRequestCancelled is returned when a request is abandoned
	// before completion: connection loss, tx-id eviction, or caller
	// cancellation.
	ErrRequestCancelled = errors.New("connection: request cancelled")

	// ErrAuthenticationFailed is reported when the handshake concludes
	// unsuccessfully.
	ErrAuthenticationFailed = errors.New("connection: authentication failed")

	// ErrWriteFailed indicates a chunk write the transport could not
	// complete. The connection is torn down in response.
	ErrWriteFailed = errors.New("connection: transport write failed")
)
