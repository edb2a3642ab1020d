package connection

import (
	"fmt"
	"sync"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// pendingResult carries a request's outcome to the waiting caller.
type pendingResult struct {
	cargo []byte
	err   error
}

// pendingRequest is one in-flight request awaiting its response.
type pendingRequest struct {
	char   wire.Characteristic
	opcode uint8 // expected response opcode

	// done is buffered so completion never blocks the delivery path.
	done chan pendingResult
}

func newPendingRequest(char wire.Characteristic, requestOpcode uint8) *pendingRequest {
	return &pendingRequest{
		char:   char,
		opcode: wire.ResponseOpcode(requestOpcode),
		done:   make(chan pendingResult, 1),
	}
}

func (p *pendingRequest) complete(res pendingResult) {
	select {
	case p.done <- res:
	default:
		// Already completed.
	}
}

// pendingTable tracks in-flight requests by transaction id. The tx-id
// counter wraps at 256, so issuing a request under an id that is still
// live evicts the stale entry.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint8]*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[uint8]*pendingRequest)}
}

// register installs a request under its tx id, cancelling any stale
// entry holding the same id.
func (t *pendingTable) register(txID uint8, pr *pendingRequest) {
	t.mu.Lock()
	stale := t.entries[txID]
	t.entries[txID] = pr
	t.mu.Unlock()

	if stale != nil {
		stale.complete(pendingResult{err: fmt.Errorf("%w: tx id %d reissued", ErrRequestCancelled, txID)})
	}
}

// resolve completes the request registered under txID if the response
// matches its characteristic and expected opcode. It reports whether a
// waiter was found.
func (t *pendingTable) resolve(txID uint8, char wire.Characteristic, opcode uint8, cargo []byte) bool {
	t.mu.Lock()
	pr, ok := t.entries[txID]
	if ok && (pr.char != char || pr.opcode != opcode) {
		ok = false
		pr = nil
	}
	if ok {
		delete(t.entries, txID)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	pr.complete(pendingResult{cargo: cargo})
	return true
}

// remove drops the entry if it still belongs to pr. Used when the
// caller gives up (timeout, cancellation).
func (t *pendingTable) remove(txID uint8, pr *pendingRequest) {
	t.mu.Lock()
	if t.entries[txID] == pr {
		delete(t.entries, txID)
	}
	t.mu.Unlock()
}

// cancelAll completes every in-flight request with err and empties the
// table. Called before the connection leaves the usable state.
func (t *pendingTable) cancelAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[uint8]*pendingRequest)
	t.mu.Unlock()

	for _, pr := range entries {
		pr.complete(pendingResult{err: err})
	}
}
