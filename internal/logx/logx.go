package logx

import (
	"context"

	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	viewKey contextKey = iota
	bufferKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithView annotates the logger with the view id if present.
func WithView(ctx context.Context, viewID schema.ViewID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if viewID != 0 {
		if current, ok := ctx.Value(viewKey).(schema.ViewID); ok && current == viewID {
			return log
		}
		log = log.With("view", viewID.String())
	}
	return log
}

// WithViewBuffer annotates the logger with view and buffer identifiers.
func WithViewBuffer(ctx context.Context, viewID schema.ViewID, bufferID schema.BufferID) pslog.Logger {
	log := WithView(ctx, viewID)
	if bufferID != 0 {
		if current, ok := ctx.Value(bufferKey).(schema.BufferID); ok && current == bufferID {
			return log
		}
		log = log.With("buffer", bufferID.String())
	}
	return log
}

// WithPath annotates the logger with a file path when available.
func WithPath(log pslog.Logger, path string) pslog.Logger {
	if path != "" {
		log = log.With("path", path)
	}
	return log
}

// ContextWithView stores the view marker on the context for log de-duplication.
func ContextWithView(ctx context.Context, viewID schema.ViewID) context.Context {
	if ctx == nil || viewID == 0 {
		return ctx
	}
	return context.WithValue(ctx, viewKey, viewID)
}

// ContextWithBuffer stores the buffer marker on the context for log de-duplication.
func ContextWithBuffer(ctx context.Context, bufferID schema.BufferID) context.Context {
	if ctx == nil || bufferID == 0 {
		return ctx
	}
	return context.WithValue(ctx, bufferKey, bufferID)
}

// ContextWithViewLogger attaches the logger and view/buffer markers to the context.
func ContextWithViewLogger(ctx context.Context, log pslog.Logger, viewID schema.ViewID, bufferID schema.BufferID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithBuffer(ContextWithView(ctx, viewID), bufferID)
}
