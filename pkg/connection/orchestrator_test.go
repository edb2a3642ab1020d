package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumplink-protocol/pumplink-go/pkg/ble"
	"github.com/pumplink-protocol/pumplink-go/pkg/persistence"
	"github.com/pumplink-protocol/pumplink-go/pkg/wire"
)

const stateTimeout = 5 * time.Second

// testRig wires an orchestrator to a simulated device over a pipe.
type testRig struct {
	orch   *Orchestrator
	device *ble.SimulatedDevice
	port   *ble.DevicePort
	store  *persistence.MemoryStore
	states chan State
}

func newTestRig(t *testing.T, deviceCode string, cfg Config) *testRig {
	t.Helper()

	transport, port := ble.NewPipe()
	t.Cleanup(transport.Close)

	device, err := ble.NewSimulatedDevice(port, deviceCode)
	require.NoError(t, err)

	store := persistence.NewMemoryStore()
	cfg.Transport = transport
	if cfg.Store == nil {
		cfg.Store = store
	}

	orch, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { orch.Close() })

	states := make(chan State, 32)
	orch.OnStateChange(func(_, newState State) { states <- newState })

	return &testRig{orch: orch, device: device, port: port, store: store, states: states}
}

// waitState consumes state transitions until want appears.
func (r *testRig) waitState(t *testing.T, want State) {
	t.Helper()
	deadline := time.After(stateTimeout)
	for {
		select {
		case got := <-r.states:
			if got == want {
				return
			}
			if got == StateAuthFailed && want != StateAuthFailed {
				t.Fatalf("reached AUTH_FAILED while waiting for %s", want)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s (now %s)", want, r.orch.State())
		}
	}
}

func TestOrchestratorConnectAuthenticatesAndServesRequests(t *testing.T) {
	rig := newTestRig(t, "123456", Config{})

	require.NoError(t, rig.orch.Connect(context.Background(), "00:11:22:33:44:55", "123456"))
	rig.waitState(t, StateConnected)
	assert.True(t, rig.device.Authenticated())

	cargo, err := rig.orch.Request(context.Background(), wire.CharCurrentStatus, wire.OpcodeBatteryStatusRequest, nil)
	require.NoError(t, err)
	require.Len(t, cargo, 1)

	cargo, err = rig.orch.Request(context.Background(), wire.CharCurrentStatus, wire.OpcodeApiVersionRequest, nil)
	require.NoError(t, err)
	assert.Len(t, cargo, 2)
}

func TestOrchestratorPersistsCredentialsOnFirstSuccess(t *testing.T) {
	rig := newTestRig(t, "123456", Config{})

	require.NoError(t, rig.orch.Connect(context.Background(), "aa:bb:cc:dd:ee:ff", "123456"))
	rig.waitState(t, StateConnected)

	p, err := rig.store.Pairing()
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", p.Address)
	assert.Equal(t, "123456", p.PairingCode)

	secret, err := rig.store.DerivedSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 32)

	deviceSecret, ok := rig.device.DerivedSecret()
	require.True(t, ok)
	assert.Equal(t, deviceSecret, secret)

	nonce, err := rig.store.ServerNonce()
	require.NoError(t, err)
	assert.Len(t, nonce, 32)
}

func TestOrchestratorAuthFailure(t *testing.T) {
	rig := newTestRig(t, "999999", Config{AutoReconnect: true})

	require.NoError(t, rig.orch.Connect(context.Background(), "sim", "123456"))
	rig.waitState(t, StateAuthFailed)

	// No usable connection and no silent reconnection from AuthFailed.
	_, err := rig.orch.Request(context.Background(), wire.CharCurrentStatus, wire.OpcodeBatteryStatusRequest, nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StateAuthFailed, rig.orch.State())

	// An explicit Connect with the right code recovers.
	rig2 := newTestRig(t, "123456", Config{})
	require.NoError(t, rig2.orch.Connect(context.Background(), "sim", "123456"))
	rig2.waitState(t, StateConnected)
}

func TestOrchestratorRequestTimeout(t *testing.T) {
	rig := newTestRig(t, "123456", Config{RequestTimeout: 200 * time.Millisecond})

	require.NoError(t, rig.orch.Connect(context.Background(), "sim", "123456"))
	rig.waitState(t, StateConnected)

	// The simulated device never answers control traffic.
	_, err := rig.orch.Request(context.Background(), wire.CharControl, 0x40, nil)
	assert.ErrorIs(t, err, ErrRequestTimeout)

	// The connection stays usable afterwards.
	_, err = rig.orch.Request(context.Background(), wire.CharCurrentStatus, wire.OpcodeBatteryStatusRequest, nil)
	assert.NoError(t, err)
}

func TestOrchestratorCallerCancellation(t *testing.T) {
	rig := newTestRig(t, "123456", Config{})

	require.NoError(t, rig.orch.Connect(context.Background(), "sim", "123456"))
	rig.waitState(t, StateConnected)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := rig.orch.Request(ctx, wire.CharControl, 0x40, nil)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRequestCancelled)
	case <-time.After(stateTimeout):
		t.Fatal("cancelled request did not return")
	}
}

func TestOrchestratorDisconnectCancelsPending(t *testing.T) {
	rig := newTestRig(t, "123456", Config{})

	require.NoError(t, rig.orch.Connect(context.Background(), "sim", "123456"))
	rig.waitState(t, StateConnected)

	done := make(chan error, 1)
	go func() {
		_, err := rig.orch.Request(context.Background(), wire.CharControl, 0x40, nil)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, rig.orch.Disconnect())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRequestCancelled)
	case <-time.After(stateTimeout):
		t.Fatal("pending request survived Disconnect")
	}
	assert.Equal(t, StateDisconnected, rig.orch.State())
}

func TestOrchestratorReconnectsAfterConnectionLoss(t *testing.T) {
	rig := newTestRig(t, "123456", Config{
		AutoReconnect: true,
		Backoff:       BackoffConfig{Initial: 10 * time.Millisecond, Max: 40 * time.Millisecond},
	})

	require.NoError(t, rig.orch.Connect(context.Background(), "sim", "123456"))
	rig.waitState(t, StateConnected)

	rig.port.DropLink(errors.New("supervision timeout"))
	rig.waitState(t, StateReconnecting)
	rig.waitState(t, StateConnected)

	// A fresh handshake ran; requests flow again.
	cargo, err := rig.orch.Request(context.Background(), wire.CharCurrentStatus, wire.OpcodeBatteryStatusRequest, nil)
	require.NoError(t, err)
	assert.Len(t, cargo, 1)
}

func TestOrchestratorNoReconnectWhenDisabled(t *testing.T) {
	rig := newTestRig(t, "123456", Config{AutoReconnect: false})

	require.NoError(t, rig.orch.Connect(context.Background(), "sim", "123456"))
	rig.waitState(t, StateConnected)

	rig.port.DropLink(errors.New("supervision timeout"))
	rig.waitState(t, StateDisconnected)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StateDisconnected, rig.orch.State())
}

func TestOrchestratorConnectStored(t *testing.T) {
	rig := newTestRig(t, "123456", Config{})

	require.NoError(t, rig.store.SavePairing(persistence.Pairing{
		Address:     "sim",
		PairingCode: "123456",
		PairedAt:    time.Now(),
	}))

	require.NoError(t, rig.orch.ConnectStored(context.Background()))
	rig.waitState(t, StateConnected)
}

func TestOrchestratorConnectStoredWithoutPairing(t *testing.T) {
	rig := newTestRig(t, "123456", Config{})
	assert.ErrorIs(t, rig.orch.ConnectStored(context.Background()), ErrNotPaired)
}

func TestOrchestratorRejectsConcurrentConnect(t *testing.T) {
	rig := newTestRig(t, "123456", Config{})

	require.NoError(t, rig.orch.Connect(context.Background(), "sim", "123456"))
	rig.waitState(t, StateConnected)

	err := rig.orch.Connect(context.Background(), "sim", "123456")
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestOrchestratorRejectsBadPairingCode(t *testing.T) {
	rig := newTestRig(t, "123456", Config{})
	err := rig.orch.Connect(context.Background(), "sim", "nope")
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, rig.orch.State())
}

func TestOrchestratorCloseCancelsEverything(t *testing.T) {
	rig := newTestRig(t, "123456", Config{AutoReconnect: true})

	require.NoError(t, rig.orch.Connect(context.Background(), "sim", "123456"))
	rig.waitState(t, StateConnected)

	require.NoError(t, rig.orch.Close())
	assert.Equal(t, StateDisconnected, rig.orch.State())

	_, err := rig.orch.Request(context.Background(), wire.CharCurrentStatus, wire.OpcodeBatteryStatusRequest, nil)
	assert.ErrorIs(t, err, ErrClosed)

	err = rig.orch.Connect(context.Background(), "sim", "123456")
	assert.ErrorIs(t, err, ErrClosed)
}
