package connection

import (
	"sync"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// queuedChunk is one outbound chunk awaiting its turn on the link.
type queuedChunk struct {
	char  wire.Characteristic
	chunk []byte
}

// writeQueue serializes outbound chunk writes: exactly one chunk is in
// flight at a time, the rest wait in FIFO order.
type writeQueue struct {
	mu       sync.Mutex
	items    []queuedChunk
	inFlight bool
}

// push appends chunks to the queue. When the link was idle it returns
// the first chunk to write and marks it in flight; otherwise nil.
func (q *writeQueue) push(items ...queuedChunk) *queuedChunk {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, items...)
	if q.inFlight || len(q.items) == 0 {
		return nil
	}
	next := q.items[0]
	q.items = q.items[1:]
	q.inFlight = true
	return &next
}

// completeNext acknowledges the in-flight write and returns the next
// chunk to send, or nil when the queue drained.
func (q *writeQueue) completeNext() *queuedChunk {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		q.inFlight = false
		return nil
	}
	next := q.items[0]
	q.items = q.items[1:]
	q.inFlight = true
	return &next
}

// reset discards all queued chunks.
func (q *writeQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.inFlight = false
}

// depth reports how many chunks are waiting (excluding in flight).
func (q *writeQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
