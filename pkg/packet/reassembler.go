package packet

import (
	"fmt"
	"sync"
)

// Reassembler accumulates wire chunks for one logical stream and
// produces the complete raw frame once the final chunk arrives.
//
// A Reassembler holds at most one in-flight message. When multiple
// exchanges can interleave, the caller must key one Reassembler per
// transaction id so streams cannot corrupt each other.
//
// Reassembler is safe for concurrent use, though chunks for one stream
// are expected to arrive in order from a single delivery path.
type Reassembler struct {
	mu sync.Mutex

	buf       []byte
	txID      uint8
	remaining int
	active    bool
}

// NewReassembler creates an empty reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed consumes one wire chunk. It returns the complete raw frame when
// the chunk reports zero remaining, or nil when more chunks are needed.
//
// A malformed chunk or a chunk that does not continue the in-progress
// stream resets the buffer and returns an error; the caller logs and
// drops it.
func (r *Reassembler) Feed(chunk []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(chunk) < ChunkHeaderSize {
		r.resetLocked()
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedChunk, len(chunk))
	}

	remaining := int(chunk[0] >> 4)
	txID := chunk[1]
	payload := chunk[ChunkHeaderSize:]

	if r.active {
		if txID != r.txID {
			prev := r.txID
			r.resetLocked()
			return nil, fmt.Errorf("%w: tx %d interrupts in-progress tx %d", ErrChunkSequence, txID, prev)
		}
		// The remaining count saturates at 15 on long frames, so it
		// may hold then drop; it must never grow.
		if remaining > r.remaining {
			r.resetLocked()
			return nil, fmt.Errorf("%w: remaining count grew from %d to %d", ErrChunkSequence, r.remaining, remaining)
		}
	} else {
		r.active = true
		r.txID = txID
	}

	r.remaining = remaining
	r.buf = append(r.buf, payload...)

	if remaining != 0 {
		return nil, nil
	}

	raw := r.buf
	r.resetLocked()
	return raw, nil
}

// Reset discards any partially assembled message.
func (r *Reassembler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

// TxID reports the transaction id of the in-progress stream.
func (r *Reassembler) TxID() (uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txID, r.active
}

func (r *Reassembler) resetLocked() {
	r.buf = nil
	r.remaining = 0
	r.active = false
}
