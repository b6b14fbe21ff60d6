package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type (
	loggerKey struct{}
	entityKey struct{}
)

// WithLogger stores logger in ctx. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// WithField returns a context whose logger carries key.
func WithField(ctx context.Context, key string, value any) context.Context {
	logger := addField(FromContext(ctx).With(), key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithEntity tags entries with the entity identity (its item number).
// Tagging a context already tagged with the same identity is a no-op.
func WithEntity(ctx context.Context, identity string) context.Context {
	if tagged, ok := ctx.Value(entityKey{}).(string); ok && tagged == identity {
		return ctx
	}
	return context.WithValue(WithField(ctx, "entity", identity), entityKey{}, identity)
}

// WithEntityRef tags entries with the entity's remote reference.
func WithEntityRef(ctx context.Context, ref string) context.Context {
	return WithField(ctx, "entity_ref", ref)
}

// WithTransaction tags entries with a creation transaction ID.
func WithTransaction(ctx context.Context, txID string) context.Context {
	return WithField(ctx, "tx_id", txID)
}

// WithOperation tags entries with the running operation.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, "operation", operation)
}
