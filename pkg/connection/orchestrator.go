package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pumplink-protocol/pumplink-go/pkg/auth"
	"github.com/pumplink-protocol/pumplink-go/pkg/ble"
	"github.com/pumplink-protocol/pumplink-go/pkg/log"
	"github.com/pumplink-protocol/pumplink-go/pkg/packet"
	"github.com/pumplink-protocol/pumplink-go/pkg/persistence"
	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

// DefaultRequestTimeout bounds a request when the caller's context
// carries no deadline.
const DefaultRequestTimeout = 10 * time.Second

// reconnectAttemptTimeout bounds one transport connect during the
// reconnection loop.
const reconnectAttemptTimeout = 30 * time.Second

// Config configures an Orchestrator.
type Config struct {
	// Transport carries the GATT traffic. Required.
	Transport ble.Transport

	// Store persists pairing credentials. Optional.
	Store persistence.CredentialStore

	// Logger receives protocol events. Optional.
	Logger log.Logger

	// AutoReconnect enables reconnection with backoff after an
	// unexpected connection loss.
	AutoReconnect bool

	// RequestTimeout bounds requests without a caller deadline.
	// Defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Backoff customizes the reconnection delays.
	Backoff BackoffConfig
}

// reassemblyKey identifies one in-progress chunk stream.
type reassemblyKey struct {
	char wire.Characteristic
	txID uint8
}

// Orchestrator drives a PumpLink session: it owns the transport,
// runs the handshake, serializes outbound writes and correlates
// responses to requests.
//
// Transport callbacks arrive on the transport's delivery goroutine;
// Request may be called from any goroutine.
type Orchestrator struct {
	mu sync.Mutex

	transport ble.Transport
	store     persistence.CredentialStore
	logger    log.Logger

	state         State
	closed        bool
	autoReconnect bool

	address     string
	pairingCode string
	codeType    auth.CodeType

	connID        string
	authenticator auth.Authenticator
	txCounter     uint8

	pending        *pendingTable
	queue          *writeQueue
	reassemblers   map[reassemblyKey]*packet.Reassembler
	backoff        *Backoff
	requestTimeout time.Duration

	onStateChange func(oldState, newState State)

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	reconnectCh chan struct{}
}

// NewOrchestrator creates an orchestrator over the given transport and
// starts its reconnection loop.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Transport == nil {
		return nil, errors.New("connection: Config.Transport is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		transport:      cfg.Transport,
		store:          cfg.Store,
		logger:         cfg.Logger,
		state:          StateDisconnected,
		autoReconnect:  cfg.AutoReconnect,
		pending:        newPendingTable(),
		queue:          &writeQueue{},
		reassemblers:   make(map[reassemblyKey]*packet.Reassembler),
		backoff:        NewBackoffWithConfig(cfg.Backoff),
		requestTimeout: cfg.RequestTimeout,
		ctx:            ctx,
		cancel:         cancel,
		reconnectCh:    make(chan struct{}, 1),
	}
	o.transport.SetHandler(o)

	o.wg.Add(1)
	go o.reconnectLoop()
	return o, nil
}

// State returns the current connection state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnStateChange sets a callback for state changes. The callback runs
// on the goroutine performing the transition and must not block.
func (o *Orchestrator) OnStateChange(fn func(oldState, newState State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onStateChange = fn
}

// Connect establishes a connection to the device at address and
// authenticates with the pairing code. The connection is usable once
// the state reaches StateConnected.
func (o *Orchestrator) Connect(ctx context.Context, address, pairingCode string) error {
	codeType, err := auth.ClassifyPairingCode(pairingCode)
	if err != nil {
		return err
	}
	authenticator, err := auth.SelectAuthenticator(pairingCode)
	if err != nil {
		return err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	switch o.state {
	case StateDisconnected, StateAuthFailed:
	default:
		o.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrAlreadyConnected, o.state)
	}
	o.address = address
	o.pairingCode = pairingCode
	o.codeType = codeType
	o.authenticator = authenticator
	o.mu.Unlock()

	o.setState(StateConnecting, "connect requested")
	if err := o.transport.Connect(ctx, address); err != nil {
		o.setState(StateDisconnected, "transport connect failed")
		return err
	}
	return nil
}

// ConnectStored connects using the pairing on record in the
// credential store.
func (o *Orchestrator) ConnectStored(ctx context.Context) error {
	if o.store == nil {
		return ErrNotPaired
	}
	p, err := o.store.Pairing()
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotPaired
	}
	return o.Connect(ctx, p.Address, p.PairingCode)
}

// Disconnect tears the connection down. No reconnection is attempted.
func (o *Orchestrator) Disconnect() error {
	o.teardown(fmt.Errorf("%w: disconnect requested", ErrRequestCancelled))
	err := o.transport.Disconnect()
	o.setState(StateDisconnected, "disconnect requested")
	return err
}

// Close shuts the orchestrator down for good.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()

	o.teardown(fmt.Errorf("%w: orchestrator closed", ErrRequestCancelled))
	err := o.transport.Disconnect()
	o.setState(StateDisconnected, "closed")
	return err
}

// Request sends one request on the characteristic and waits for the
// matching response cargo. Without a caller deadline the configured
// request timeout applies.
func (o *Orchestrator) Request(ctx context.Context, c wire.Characteristic, opcode uint8, cargo []byte) ([]byte, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.state != StateConnected {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: state %s", ErrNotConnected, o.state)
	}
	txID := o.txCounter
	o.txCounter++ // wraps mod 256
	o.mu.Unlock()

	pr := newPendingRequest(c, opcode)
	o.pending.register(txID, pr)

	msg := wire.Message{Opcode: opcode, TxID: txID, Cargo: cargo}
	chunks, err := packet.Encode(msg, c.ChunkSize())
	if err != nil {
		o.pending.remove(txID, pr)
		return nil, err
	}
	o.logMessage(log.DirectionOut, c, msg)
	o.enqueue(c, chunks)

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.requestTimeout)
		defer cancel()
	}

	select {
	case res := <-pr.done:
		return res.cargo, res.err
	case <-ctx.Done():
		o.pending.remove(txID, pr)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: opcode 0x%02x on %s", ErrRequestTimeout, opcode, c)
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestCancelled, ctx.Err())
	}
}

// OnReady implements ble.TransportHandler. The transport is up;
// subscribe and start the handshake.
func (o *Orchestrator) OnReady() {
	for _, c := range []wire.Characteristic{
		wire.CharAuthorization,
		wire.CharCurrentStatus,
		wire.CharControl,
		wire.CharQualifyingEvents,
	} {
		if err := o.transport.Subscribe(c); err != nil {
			o.logError(log.LayerConnection, err, "subscribe")
			o.connectionLost(err)
			return
		}
	}

	o.mu.Lock()
	o.connID = uuid.NewString()
	o.reassemblers = make(map[reassemblyKey]*packet.Reassembler)
	authenticator := o.authenticator
	o.mu.Unlock()

	if authenticator == nil {
		o.connectionLost(errors.New("connection: no authenticator configured"))
		return
	}
	authenticator.Reset()

	o.setState(StateAuthenticating, "transport ready")
	o.pumpAuth()
}

// OnChunkReceived implements ble.TransportHandler: reassemble, decode
// and route one inbound chunk.
func (o *Orchestrator) OnChunkReceived(c wire.Characteristic, chunk []byte) {
	o.logChunk(log.DirectionIn, c, chunk)

	if len(chunk) < packet.ChunkHeaderSize {
		o.logError(log.LayerTransport, packet.ErrMalformedChunk, "chunk header")
		return
	}
	key := reassemblyKey{char: c, txID: chunk[1]}

	o.mu.Lock()
	r, ok := o.reassemblers[key]
	if !ok {
		r = packet.NewReassembler()
		o.reassemblers[key] = r
	}
	o.mu.Unlock()

	raw, err := r.Feed(chunk)
	if err != nil {
		o.logError(log.LayerTransport, err, "reassembly")
		return
	}
	if raw == nil {
		return
	}

	o.mu.Lock()
	delete(o.reassemblers, key)
	o.mu.Unlock()

	msg, err := packet.Parse(raw)
	if err != nil {
		o.logError(log.LayerPacket, err, "frame decode")
		return
	}
	o.logMessage(log.DirectionIn, c, msg)
	o.route(c, msg)
}

// OnWriteComplete implements ble.TransportHandler.
func (o *Orchestrator) OnWriteComplete(c wire.Characteristic, err error) {
	if err != nil {
		// A failed write means the link is not usable; tear down and
		// let the reconnection policy decide.
		o.logError(log.LayerTransport, err, "write")
		_ = o.transport.Disconnect()
		o.connectionLost(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		return
	}

	if next := o.queue.completeNext(); next != nil {
		o.writeChunk(*next)
	}
}

// OnDisconnected implements ble.TransportHandler: unexpected loss.
func (o *Orchestrator) OnDisconnected(err error) {
	o.connectionLost(err)
}

// route dispatches one decoded message. During authentication the
// authorization characteristic belongs to the handshake; everything
// else resolves against the pending-request table.
func (o *Orchestrator) route(c wire.Characteristic, msg wire.Message) {
	o.mu.Lock()
	state := o.state
	authenticator := o.authenticator
	o.mu.Unlock()

	if state == StateAuthenticating && c == wire.CharAuthorization {
		o.handleAuthMessage(authenticator, msg)
		return
	}

	if !o.pending.resolve(msg.TxID, c, msg.Opcode, msg.Cargo) {
		o.logError(log.LayerConnection,
			fmt.Errorf("unmatched response opcode 0x%02x tx %d", msg.Opcode, msg.TxID), "route")
	}
}

func (o *Orchestrator) handleAuthMessage(authenticator auth.Authenticator, msg wire.Message) {
	result, err := authenticator.HandleMessage(msg.Opcode, msg.Cargo)
	if err != nil {
		o.authFailed(err)
		return
	}
	o.logAuth(msg.Opcode, "")

	switch result {
	case auth.ResultContinue:
		o.pumpAuth()
	case auth.ResultSuccess:
		o.authSucceeded(authenticator)
	case auth.ResultFailure:
		o.authFailed(ErrAuthenticationFailed)
	}
}

// pumpAuth sends the authenticator's next outbound message, if any.
func (o *Orchestrator) pumpAuth() {
	o.mu.Lock()
	authenticator := o.authenticator
	txID := o.txCounter
	o.txCounter++
	o.mu.Unlock()

	msg, err := authenticator.NextMessage()
	if err != nil {
		o.authFailed(err)
		return
	}
	if msg == nil {
		return
	}
	msg.TxID = txID

	chunks, err := packet.Encode(*msg, wire.CharAuthorization.ChunkSize())
	if err != nil {
		o.authFailed(err)
		return
	}
	o.logAuth(msg.Opcode, "")
	o.enqueue(wire.CharAuthorization, chunks)
}

func (o *Orchestrator) authSucceeded(authenticator auth.Authenticator) {
	o.persistCredentials(authenticator)
	o.backoff.Reset()
	o.logAuth(0, "success")
	o.setState(StateConnected, "authenticated")
}

func (o *Orchestrator) authFailed(err error) {
	o.logError(log.LayerConnection, err, "handshake")
	o.logAuth(0, "failure")
	o.teardown(fmt.Errorf("%w: %v", ErrRequestCancelled, err))
	_ = o.transport.Disconnect()
	o.setState(StateAuthFailed, err.Error())
}

// persistCredentials saves the pairing on first success and refreshes
// the session key material on every success.
func (o *Orchestrator) persistCredentials(authenticator auth.Authenticator) {
	if o.store == nil {
		return
	}

	o.mu.Lock()
	address, code := o.address, o.pairingCode
	o.mu.Unlock()

	stored, err := o.store.Pairing()
	if err != nil {
		o.logError(log.LayerConnection, err, "credential store")
	}
	if stored == nil || stored.Address != address || stored.PairingCode != code {
		err := o.store.SavePairing(persistence.Pairing{
			Address:     address,
			PairingCode: code,
			PairedAt:    time.Now(),
		})
		if err != nil {
			o.logError(log.LayerConnection, err, "credential store")
		}
	}

	src, ok := authenticator.(auth.SecretSource)
	if !ok {
		return
	}
	if secret, ok := src.DerivedSecret(); ok {
		if err := o.store.SaveDerivedSecret(secret); err != nil {
			o.logError(log.LayerConnection, err, "credential store")
		}
	}
	if nonce, ok := src.ServerNonce(); ok {
		if err := o.store.SaveServerNonce(nonce); err != nil {
			o.logError(log.LayerConnection, err, "credential store")
		}
	}
}

// connectionLost handles an unexpected loss of the transport.
func (o *Orchestrator) connectionLost(err error) {
	o.teardown(fmt.Errorf("%w: connection lost", ErrRequestCancelled))

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	reconnect := o.autoReconnect && o.address != "" &&
		(o.state == StateConnected || o.state == StateAuthenticating ||
			o.state == StateConnecting || o.state == StateReconnecting)
	o.mu.Unlock()

	reason := "connection lost"
	if err != nil {
		reason = err.Error()
	}

	if reconnect {
		o.setState(StateReconnecting, reason)
		o.triggerReconnect()
		return
	}
	o.setState(StateDisconnected, reason)
}

// teardown cancels all in-flight work before the connection leaves the
// usable state.
func (o *Orchestrator) teardown(cause error) {
	o.pending.cancelAll(cause)
	o.queue.reset()

	o.mu.Lock()
	o.reassemblers = make(map[reassemblyKey]*packet.Reassembler)
	o.mu.Unlock()
}

func (o *Orchestrator) enqueue(c wire.Characteristic, chunks [][]byte) {
	items := make([]queuedChunk, len(chunks))
	for i, chunk := range chunks {
		items[i] = queuedChunk{char: c, chunk: chunk}
	}
	if first := o.queue.push(items...); first != nil {
		o.writeChunk(*first)
	}
}

func (o *Orchestrator) writeChunk(item queuedChunk) {
	o.logChunk(log.DirectionOut, item.char, item.chunk)
	if err := o.transport.WriteChunk(item.char, item.chunk); err != nil {
		o.logError(log.LayerTransport, err, "write")
		_ = o.transport.Disconnect()
		o.connectionLost(fmt.Errorf("%w: %w", ErrWriteFailed, err))
	}
}

// triggerReconnect signals that reconnection should be attempted.
func (o *Orchestrator) triggerReconnect() {
	select {
	case o.reconnectCh <- struct{}{}:
	default:
		// Already pending
	}
}

// reconnectLoop runs in a goroutine and handles reconnection attempts.
func (o *Orchestrator) reconnectLoop() {
	defer o.wg.Done()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-o.reconnectCh:
			o.attemptReconnect()
		}
	}
}

// attemptReconnect retries the transport with backoff until the
// connection is back or reconnection stops being wanted.
func (o *Orchestrator) attemptReconnect() {
	for {
		o.mu.Lock()
		state, address := o.state, o.address
		o.mu.Unlock()
		if state != StateReconnecting {
			return
		}

		delay := o.backoff.Next()
		select {
		case <-o.ctx.Done():
			return
		case <-time.After(delay):
		}

		o.mu.Lock()
		state = o.state
		o.mu.Unlock()
		if state != StateReconnecting {
			return
		}

		ctx, cancel := context.WithTimeout(o.ctx, reconnectAttemptTimeout)
		err := o.transport.Connect(ctx, address)
		cancel()
		if err == nil {
			// OnReady takes it from here.
			return
		}
		o.logError(log.LayerConnection, err, "reconnect")
	}
}

// setState transitions the state and notifies observers.
func (o *Orchestrator) setState(newState State, reason string) {
	o.mu.Lock()
	oldState := o.state
	if oldState == newState {
		o.mu.Unlock()
		return
	}
	o.state = newState
	callback := o.onStateChange
	connID := o.connID
	o.mu.Unlock()

	o.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerConnection,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
	if callback != nil {
		callback(oldState, newState)
	}
}

func (o *Orchestrator) logChunk(dir log.Direction, c wire.Characteristic, chunk []byte) {
	o.mu.Lock()
	connID, address := o.connID, o.address
	o.mu.Unlock()

	event := log.Event{
		Timestamp:      time.Now(),
		ConnectionID:   connID,
		Direction:      dir,
		Layer:          log.LayerTransport,
		Category:       log.CategoryChunk,
		Characteristic: &c,
		RemoteAddr:     address,
		Chunk:          &log.ChunkEvent{Size: len(chunk)},
	}
	if len(chunk) >= packet.ChunkHeaderSize {
		event.Chunk.Remaining = chunk[0] >> 4
		event.Chunk.TxID = chunk[1]
	}
	o.logger.Log(event)
}

func (o *Orchestrator) logMessage(dir log.Direction, c wire.Characteristic, msg wire.Message) {
	o.mu.Lock()
	connID, address := o.connID, o.address
	o.mu.Unlock()

	o.logger.Log(log.Event{
		Timestamp:      time.Now(),
		ConnectionID:   connID,
		Direction:      dir,
		Layer:          log.LayerPacket,
		Category:       log.CategoryMessage,
		Characteristic: &c,
		RemoteAddr:     address,
		Message: &log.MessageEvent{
			Opcode:    msg.Opcode,
			TxID:      msg.TxID,
			CargoSize: len(msg.Cargo),
		},
	})
}

func (o *Orchestrator) logAuth(opcode uint8, outcome string) {
	o.mu.Lock()
	connID := o.connID
	codeType := o.codeType
	o.mu.Unlock()

	method := log.AuthMethodJpake
	if codeType == auth.CodeTypeLegacy {
		method = log.AuthMethodLegacy
	}
	o.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerConnection,
		Category:     log.CategoryAuth,
		Auth:         &log.AuthEvent{Method: method, Opcode: opcode, Outcome: outcome},
	})
}

func (o *Orchestrator) logError(layer log.Layer, err error, context string) {
	o.mu.Lock()
	connID := o.connID
	o.mu.Unlock()

	o.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        layer,
		Category:     log.CategoryError,
		Error:        &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context},
	})
}

// Compile-time interface satisfaction check.
var _ ble.TransportHandler = (*Orchestrator)(nil)
