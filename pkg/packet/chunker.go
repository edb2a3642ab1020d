package packet

import (
	"fmt"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// Chunk header layout constants.
const (
	// ChunkHeaderSize is the remaining-count byte plus the txId byte.
	ChunkHeaderSize = 2

	// MinChunkSize is the smallest usable chunk size: the header plus
	// one payload byte.
	MinChunkSize = ChunkHeaderSize + 1

	// maxRemaining is the largest value the remaining-count nibble can
	// carry. Longer frames saturate the nibble; the reassembler only
	// relies on zero marking the final chunk.
	maxRemaining = 15
)

// Split divides a raw frame into wire chunks of at most chunkSize
// bytes. Each chunk is prefixed with (remainingAfterThis<<4)|0 and the
// transaction id. The remaining count saturates at 15.
func Split(raw []byte, txID uint8, chunkSize int) ([][]byte, error) {
	if chunkSize < MinChunkSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrChunkSizeTooSmall, chunkSize, MinChunkSize)
	}

	payloadPer := chunkSize - ChunkHeaderSize
	total := (len(raw) + payloadPer - 1) / payloadPer
	if total == 0 {
		total = 1
	}

	chunks := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * payloadPer
		end := start + payloadPer
		if end > len(raw) {
			end = len(raw)
		}
		remaining := total - i - 1
		if remaining > maxRemaining {
			remaining = maxRemaining
		}
		chunk := make([]byte, 0, ChunkHeaderSize+end-start)
		chunk = append(chunk, byte(remaining)<<4, txID)
		chunk = append(chunk, raw[start:end]...)
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Encode builds and splits a message in one step.
func Encode(msg wire.Message, chunkSize int) ([][]byte, error) {
	raw, err := Build(msg)
	if err != nil {
		return nil, err
	}
	return Split(raw, msg.TxID, chunkSize)
}
