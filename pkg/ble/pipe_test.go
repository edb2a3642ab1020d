package ble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

const eventTimeout = 2 * time.Second

type receivedChunk struct {
	char  wire.Characteristic
	chunk []byte
}

type writeResult struct {
	char wire.Characteristic
	err  error
}

// recordingHandler funnels transport callbacks into channels so tests
// can wait on them.
type recordingHandler struct {
	ready       chan struct{}
	chunks      chan receivedChunk
	writes      chan writeResult
	disconnects chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		ready:       make(chan struct{}, 4),
		chunks:      make(chan receivedChunk, 64),
		writes:      make(chan writeResult, 64),
		disconnects: make(chan error, 4),
	}
}

func (h *recordingHandler) OnReady() { h.ready <- struct{}{} }

func (h *recordingHandler) OnChunkReceived(c wire.Characteristic, chunk []byte) {
	h.chunks <- receivedChunk{char: c, chunk: chunk}
}

func (h *recordingHandler) OnWriteComplete(c wire.Characteristic, err error) {
	h.writes <- writeResult{char: c, err: err}
}

func (h *recordingHandler) OnDisconnected(err error) { h.disconnects <- err }

func (h *recordingHandler) waitReady(t *testing.T) {
	t.Helper()
	select {
	case <-h.ready:
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for OnReady")
	}
}

func (h *recordingHandler) waitChunk(t *testing.T) receivedChunk {
	t.Helper()
	select {
	case rc := <-h.chunks:
		return rc
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for a chunk")
		return receivedChunk{}
	}
}

func (h *recordingHandler) waitWrite(t *testing.T) writeResult {
	t.Helper()
	select {
	case wr := <-h.writes:
		return wr
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for write completion")
		return writeResult{}
	}
}

func connectedPipe(t *testing.T) (*Pipe, *DevicePort, *recordingHandler) {
	t.Helper()
	transport, port := NewPipe()
	t.Cleanup(transport.Close)

	h := newRecordingHandler()
	transport.SetHandler(h)
	if err := transport.Connect(context.Background(), "00:11:22:33:44:55"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	h.waitReady(t)
	return transport, port, h
}

func TestPipeConnectFiresReady(t *testing.T) {
	connectedPipe(t)
}

func TestPipeDoubleConnect(t *testing.T) {
	transport, _, _ := connectedPipe(t)
	if err := transport.Connect(context.Background(), "addr"); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("second Connect = %v, want ErrAlreadyConnected", err)
	}
}

func TestPipeWriteDeliversToPortAndCompletes(t *testing.T) {
	transport, port, h := connectedPipe(t)

	got := make(chan receivedChunk, 1)
	port.SetReceiver(func(c wire.Characteristic, chunk []byte) {
		got <- receivedChunk{char: c, chunk: chunk}
	})

	payload := []byte{0x00, 0x01, 0xAA, 0xBB}
	if err := transport.WriteChunk(wire.CharControl, payload); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}

	wr := h.waitWrite(t)
	if wr.char != wire.CharControl || wr.err != nil {
		t.Fatalf("write completion = %+v", wr)
	}

	select {
	case rc := <-got:
		if rc.char != wire.CharControl || string(rc.chunk) != string(payload) {
			t.Fatalf("port received %+v", rc)
		}
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for port delivery")
	}
}

func TestPipeWriteWhileDisconnected(t *testing.T) {
	transport, _ := NewPipe()
	t.Cleanup(transport.Close)
	if err := transport.WriteChunk(wire.CharControl, []byte{0x00}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("WriteChunk = %v, want ErrNotConnected", err)
	}
}

func TestPipeWriteTooLarge(t *testing.T) {
	transport, _, _ := connectedPipe(t)
	oversize := make([]byte, wire.CharAuthorization.ChunkSize()+1)
	if err := transport.WriteChunk(wire.CharAuthorization, oversize); !errors.Is(err, ErrChunkTooLarge) {
		t.Fatalf("WriteChunk = %v, want ErrChunkTooLarge", err)
	}
}

func TestPipeNotifyRequiresSubscription(t *testing.T) {
	transport, port, h := connectedPipe(t)

	if err := port.Notify(wire.CharCurrentStatus, []byte{0x00}); !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("Notify = %v, want ErrNotSubscribed", err)
	}

	if err := transport.Subscribe(wire.CharCurrentStatus); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := port.Notify(wire.CharCurrentStatus, []byte{0x42}); err != nil {
		t.Fatalf("Notify after Subscribe failed: %v", err)
	}

	rc := h.waitChunk(t)
	if rc.char != wire.CharCurrentStatus || len(rc.chunk) != 1 || rc.chunk[0] != 0x42 {
		t.Fatalf("received %+v", rc)
	}
}

func TestPipeDropLinkReportsDisconnect(t *testing.T) {
	_, port, h := connectedPipe(t)

	cause := errors.New("supervision timeout")
	port.DropLink(cause)

	select {
	case err := <-h.disconnects:
		if !errors.Is(err, cause) {
			t.Fatalf("OnDisconnected(%v), want %v", err, cause)
		}
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for OnDisconnected")
	}

	if port.Connected() {
		t.Fatal("port still reports connected after DropLink")
	}
}

func TestPipeExplicitDisconnectIsSilent(t *testing.T) {
	transport, _, h := connectedPipe(t)

	if err := transport.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	select {
	case err := <-h.disconnects:
		t.Fatalf("unexpected OnDisconnected(%v) after explicit Disconnect", err)
	case <-time.After(50 * time.Millisecond):
	}
}
