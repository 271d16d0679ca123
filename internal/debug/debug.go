// Package debug carries the --debug flag on the command context and wires
// it into slog's default logger.
package debug

import (
	"context"
	"log/slog"
	"os"
)

type debugKey struct{}

// WithDebug stores the debug flag on the context.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, debugKey{}, enabled)
}

// IsEnabled reports whether debug mode was requested, defaulting to false.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(debugKey{}).(bool); ok {
		return v
	}
	return false
}

// SetupLogger installs a stderr text handler as slog's default. Debug mode
// lowers the level to Debug; otherwise only warnings and errors surface so
// command output stays clean.
func SetupLogger(debugEnabled bool) {
	level := slog.LevelWarn
	if debugEnabled {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
