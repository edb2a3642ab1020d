package ble

import (
	"context"
	"fmt"
	"sync"

	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// dispatcher serializes callback delivery on a single goroutine so
// handlers never run concurrently and enqueueing never blocks the
// caller.
type dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.closed {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn()
	}
}

// enqueue schedules fn for delivery. Dropped after close.
func (d *dispatcher) enqueue(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, fn)
	d.cond.Signal()
}

// close drains the pending queue, then stops the delivery goroutine.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()
	<-d.done
}

// Pipe is an in-process loopback Transport. The central side talks
// GATT through the Transport interface; the peripheral side receives
// and injects chunks through the paired DevicePort.
//
// Chunks are delivered in order with no loss. Use DevicePort.DropLink
// to simulate a connection loss.
type Pipe struct {
	mu sync.Mutex

	d       *dispatcher
	handler TransportHandler
	port    *DevicePort

	connected  bool
	closed     bool
	address    string
	subscribed map[wire.Characteristic]bool
}

// NewPipe creates a connected transport/port pair.
func NewPipe() (*Pipe, *DevicePort) {
	p := &Pipe{d: newDispatcher()}
	p.port = &DevicePort{pipe: p}
	return p, p.port
}

// SetHandler installs the event handler.
func (p *Pipe) SetHandler(h TransportHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Connect establishes the loopback link. OnReady fires asynchronously.
func (p *Pipe) Connect(ctx context.Context, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrTransportClosed
	}
	if p.connected {
		return ErrAlreadyConnected
	}
	p.connected = true
	p.address = address
	p.subscribed = make(map[wire.Characteristic]bool)

	// The peripheral observes the connection before the central's
	// OnReady fires, so it starts each connection from a clean slate.
	if onConnect := p.port.connectHandlerLocked(); onConnect != nil {
		p.d.enqueue(onConnect)
	}
	handler := p.handler
	if handler != nil {
		p.d.enqueue(handler.OnReady)
	}
	return nil
}

// Disconnect tears the link down without an OnDisconnected callback.
func (p *Pipe) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// Close shuts the transport down for good and stops callback delivery.
func (p *Pipe) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.connected = false
	p.mu.Unlock()
	p.d.close()
}

// WriteChunk delivers one chunk to the peripheral side. Completion is
// reported through OnWriteComplete before any response notification.
func (p *Pipe) WriteChunk(c wire.Characteristic, chunk []byte) error {
	if len(chunk) > c.ChunkSize() {
		return fmt.Errorf("%w: %d > %d on %s", ErrChunkTooLarge, len(chunk), c.ChunkSize(), c)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return ErrNotConnected
	}

	data := append([]byte(nil), chunk...)
	handler := p.handler
	receiver := p.port.receiverLocked()

	if handler != nil {
		p.d.enqueue(func() { handler.OnWriteComplete(c, nil) })
	}
	if receiver != nil {
		p.d.enqueue(func() { receiver(c, data) })
	}
	return nil
}

// Subscribe enables notifications on the characteristic.
func (p *Pipe) Subscribe(c wire.Characteristic) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return ErrNotConnected
	}
	p.subscribed[c] = true
	return nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*Pipe)(nil)

// DevicePort is the peripheral end of a Pipe.
type DevicePort struct {
	mu        sync.Mutex
	receiver  func(wire.Characteristic, []byte)
	onConnect func()

	pipe *Pipe
}

// SetReceiver installs the callback for chunks written by the central.
func (dp *DevicePort) SetReceiver(fn func(c wire.Characteristic, chunk []byte)) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.receiver = fn
}

// SetConnectHandler installs a callback that fires when the central
// connects, before its OnReady.
func (dp *DevicePort) SetConnectHandler(fn func()) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.onConnect = fn
}

func (dp *DevicePort) receiverLocked() func(wire.Characteristic, []byte) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return dp.receiver
}

func (dp *DevicePort) connectHandlerLocked() func() {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return dp.onConnect
}

// Connected reports whether the central currently holds the link.
func (dp *DevicePort) Connected() bool {
	dp.pipe.mu.Lock()
	defer dp.pipe.mu.Unlock()
	return dp.pipe.connected
}

// Notify delivers a notification chunk to the central. The central
// must have subscribed to the characteristic.
func (dp *DevicePort) Notify(c wire.Characteristic, chunk []byte) error {
	if len(chunk) > c.ChunkSize() {
		return fmt.Errorf("%w: %d > %d on %s", ErrChunkTooLarge, len(chunk), c.ChunkSize(), c)
	}

	p := dp.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return ErrNotConnected
	}
	if !p.subscribed[c] {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, c)
	}

	data := append([]byte(nil), chunk...)
	handler := p.handler
	if handler != nil {
		p.d.enqueue(func() { handler.OnChunkReceived(c, data) })
	}
	return nil
}

// DropLink simulates an unsolicited connection loss. The central's
// handler observes it through OnDisconnected.
func (dp *DevicePort) DropLink(err error) {
	p := dp.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return
	}
	p.connected = false

	handler := p.handler
	if handler != nil {
		p.d.enqueue(func() { handler.OnDisconnected(err) })
	}
}
