package log

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

func chunkEvent(connID string, c wire.Characteristic, direction Direction) Event {
	return Event{
		Timestamp:      time.Now(),
		ConnectionID:   connID,
		Direction:      direction,
		Layer:          LayerTransport,
		Category:       CategoryChunk,
		Characteristic: &c,
		Chunk:          &ChunkEvent{Size: 20, TxID: 1},
	}
}

func TestFileLoggerWritesReadableEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.plog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.Log(chunkEvent("conn-1", wire.CharAuthorization, DirectionOut))
	logger.Log(chunkEvent("conn-1", wire.CharCurrentStatus, DirectionIn))
	logger.Log(chunkEvent("conn-2", wire.CharAuthorization, DirectionOut))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer reader.Close()

	var count int
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		count++
	}
	if count != 3 {
		t.Fatalf("read %d events, want 3", count)
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.plog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	logger.Log(chunkEvent("conn-1", wire.CharAuthorization, DirectionOut))
	logger.Log(chunkEvent("conn-1", wire.CharCurrentStatus, DirectionIn))
	logger.Log(chunkEvent("conn-2", wire.CharAuthorization, DirectionIn))
	logger.Close()

	t.Run("ByConnectionID", func(t *testing.T) {
		reader, err := NewFilteredReader(path, Filter{ConnectionID: "conn-2"})
		if err != nil {
			t.Fatalf("NewFilteredReader() error = %v", err)
		}
		defer reader.Close()

		event, err := reader.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if event.ConnectionID != "conn-2" {
			t.Fatalf("ConnectionID = %q, want conn-2", event.ConnectionID)
		}
		if _, err := reader.Next(); err != io.EOF {
			t.Fatalf("Next() = %v, want io.EOF", err)
		}
	})

	t.Run("ByCharacteristic", func(t *testing.T) {
		char := wire.CharCurrentStatus
		reader, err := NewFilteredReader(path, Filter{Characteristic: &char})
		if err != nil {
			t.Fatalf("NewFilteredReader() error = %v", err)
		}
		defer reader.Close()

		event, err := reader.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if event.Characteristic == nil || *event.Characteristic != wire.CharCurrentStatus {
			t.Fatalf("Characteristic = %v, want CharCurrentStatus", event.Characteristic)
		}
	})

	t.Run("ByDirection", func(t *testing.T) {
		in := DirectionIn
		reader, err := NewFilteredReader(path, Filter{Direction: &in})
		if err != nil {
			t.Fatalf("NewFilteredReader() error = %v", err)
		}
		defer reader.Close()

		var count int
		for {
			_, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			count++
		}
		if count != 2 {
			t.Fatalf("read %d inbound events, want 2", count)
		}
	})
}

func TestFileLoggerConcurrentUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.plog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(chunkEvent("conn", wire.CharControl, DirectionOut))
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer reader.Close()

	var count int
	for {
		if _, err := reader.Next(); err != nil {
			break
		}
		count++
	}
	if count != 200 {
		t.Fatalf("read %d events, want 200", count)
	}
}

func TestFileLoggerLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.plog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	logger.Close()

	// Must not panic or write.
	logger.Log(chunkEvent("conn", wire.CharControl, DirectionOut))
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
