package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// Into stores l as the request logger of ctx.
func Into(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request logger, or a no-op logger when none is stored.
func From(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// With adds fields to the request logger of ctx. Without a stored logger ctx is returned as is.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	l, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	if !ok || l == nil {
		return ctx
	}
	return Into(ctx, l.With(fields...))
}
