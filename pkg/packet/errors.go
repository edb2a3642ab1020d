package packet

import "errors"

// Framing errors.
var (
	// ErrPayloadTooLarge indicates a cargo over the 255-byte limit.
	// Rejected before any I/O happens.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrChunkSizeTooSmall indicates a chunk size below the 3-byte
	// minimum (2 header bytes plus at least 1 payload byte).
	ErrChunkSizeTooSmall = errors.New("chunk size too small")

	// ErrMalformedFrame indicates a reassembled frame with a bad
	// length or CRC. Dropped, not fatal.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrMalformedChunk indicates a wire chunk shorter than its header.
	ErrMalformedChunk = errors.New("malformed chunk")

	// ErrChunkSequence indicates a chunk whose remaining count or
	// transaction id does not continue the in-progress stream.
	ErrChunkSequence = errors.New("unexpected chunk sequence")
)
