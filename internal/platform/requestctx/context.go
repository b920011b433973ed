package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey  contextKey = "github.com/chocolog/api/internal/platform/requestctx/logger"
	actorContextKey   contextKey = "github.com/chocolog/api/internal/platform/requestctx/actor"
	requestContextKey contextKey = "github.com/chocolog/api/internal/platform/requestctx/request"
)

var noopLogger = zap.NewNop()

// Actor identifies the authenticated employee driving the current request.
type Actor struct {
	EmployeeID string
	Login      string
	Role       string
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger instance used across the package.
func NoopLogger() *zap.Logger { return noopLogger }

// WithActor stores the authenticated actor on the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFrom retrieves the authenticated actor when present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey).(Actor)
	if !ok || actor.EmployeeID == "" {
		return Actor{}, false
	}
	return actor, true
}

// ActorRef returns a stable "employee:<id>" reference for audit entries, or
// "system" when the context carries no actor.
func ActorRef(ctx context.Context) string {
	actor, ok := ActorFrom(ctx)
	if !ok {
		return "system"
	}
	return "employee:" + actor.EmployeeID
}

// WithRequestID stores the request correlation identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestContextKey, requestID)
}

// RequestID extracts the request correlation identifier when present.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestContextKey).(string)
	return requestID
}
