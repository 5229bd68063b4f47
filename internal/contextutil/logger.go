// Package contextutil carries the request-scoped logger through context.
package contextutil

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// LoggerFromContext returns the request-scoped logger stored by the HTTP
// logging middleware, or the default logger when none was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctxLogger := ctx.Value(loggerKey); ctxLogger != nil {
		if l, ok := ctxLogger.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// LoggerKey returns the context key the middleware must store the logger
// under. The key type is unexported, so this is the only way to match it.
func LoggerKey() contextKey {
	return loggerKey
}
