package requestctx

import (
	"context"

	"go.uber.org/zap"
)

// Unexported key type keeps our context values from colliding with other
// packages.
type contextKey string

const (
	loggerContextKey contextKey = "github.com/darzi-studio/api/internal/platform/requestctx/logger"
	traceContextKey  contextKey = "github.com/darzi-studio/api/internal/platform/requestctx/trace"
)

var noopLogger = zap.NewNop()

// TraceInfo is the trace metadata a request carries through the context.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// WithLogger attaches logger to the context. Nil inputs are normalised so
// Logger never returns nil.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger returns the context's logger, falling back to a no-op logger so
// callers can log unconditionally.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger returns the package's shared silent logger.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace attaches trace metadata to the context.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceContextKey, info)
}

// Trace reports the trace metadata on the context, if any.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceContextKey).(TraceInfo)
	return info, ok
}

// TraceID is a shorthand for the trace identifier alone.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}
