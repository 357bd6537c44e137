package logging

import (
	"io"
	"log/slog"
)

// NewNopLogger creates a logger that discards all output.
// Services fall back to it when logging has not been configured, which keeps tests quiet.
func NewNopLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelError + 1}))
}
