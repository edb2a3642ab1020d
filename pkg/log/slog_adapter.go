package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Characteristic != nil {
		attrs = append(attrs, slog.String("characteristic", event.Characteristic.String()))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}

	// Add type-specific attributes
	switch {
	case event.Chunk != nil:
		attrs = append(attrs,
			slog.Int("chunk_size", event.Chunk.Size),
			slog.Uint64("tx_id", uint64(event.Chunk.TxID)),
			slog.Uint64("remaining", uint64(event.Chunk.Remaining)),
		)
		if event.Chunk.Truncated {
			attrs = append(attrs, slog.Bool("truncated", true))
		}
	case event.Message != nil:
		attrs = append(attrs,
			slog.Uint64("opcode", uint64(event.Message.Opcode)),
			slog.Uint64("tx_id", uint64(event.Message.TxID)),
			slog.Int("cargo_size", event.Message.CargoSize),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Auth != nil:
		attrs = append(attrs,
			slog.String("method", event.Auth.Method.String()),
			slog.Uint64("opcode", uint64(event.Auth.Opcode)),
		)
		if event.Auth.Outcome != "" {
			attrs = append(attrs, slog.String("outcome", event.Auth.Outcome))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
