package dcontext

import "context"

type connectionIDKey struct{}

func (connectionIDKey) String() string { return "connection.id" }

// WithConnectionID attaches the engine-assigned connection identifier to ctx
// so every log line emitted while handling that connection carries it.
func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDKey{}, id)
}

// GetConnectionID returns the connection identifier stashed by
// WithConnectionID, or the empty string if none is present.
func GetConnectionID(ctx context.Context) string {
	v, _ := ctx.Value(connectionIDKey{}).(string)
	return v
}

type streamIDKey struct{}

func (streamIDKey) String() string { return "stream.id" }

// WithStreamID attaches a stream identifier to ctx for per-stream logging.
func WithStreamID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, streamIDKey{}, id)
}

// GetStreamID returns the stream identifier stashed by WithStreamID, and
// whether one was present.
func GetStreamID(ctx context.Context) (uint64, bool) {
	v, ok := ctx.Value(streamIDKey{}).(uint64)
	return v, ok
}
