package log

import (
	"context"
	"io"
	"log/slog"
)

// NoOpHandler is a slog.Handler that does nothing.
type NoOpHandler struct{}

// Handle implements slog.Handler.
func (h NoOpHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

// WithAttrs implements slog.Handler.
func (h NoOpHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler.
func (h NoOpHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Enabled implements slog.Handler.
func (h NoOpHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

// NewMockLog returns a logger that silently discards all logs.
func NewMockLog() Slogger {
	return NewSlogger(slog.New(NoOpHandler{}))
}

// NewMockLogWithWriter returns a text logger at Trace level writing to w.
// This is useful for tests that need to verify log output.
func NewMockLogWithWriter(w io.Writer) Slogger {
	return NewSlogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: LevelTrace,
	})))
}
