package connection

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateAuthenticating indicates the transport is up and the
	// handshake is running.
	StateAuthenticating

	// StateConnected indicates an authenticated, usable connection.
	StateConnected

	// StateReconnecting indicates automatic reconnection is in
	// progress.
	StateReconnecting

	// StateAuthFailed indicates the handshake failed. No automatic
	// reconnection happens from here.
	StateAuthFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateAuthFailed:
		return "AUTH_FAILED"
	default:
		return "UNKNOWN"
	}
}
