package log

// Logger receives protocol events from the stack. Implementations must
// be safe for concurrent use; Log is called from transport callbacks,
// so it should return quickly.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards every event. The zero value is ready to use.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
