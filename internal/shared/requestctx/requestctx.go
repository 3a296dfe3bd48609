// Package requestctx carries the request ID across goroutines and queue hops.
package requestctx

import "context"

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx. Empty IDs leave ctx unchanged.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Detach returns a background context that keeps ctx's request ID but not
// its cancellation, for work that outlives the HTTP request.
func Detach(ctx context.Context) context.Context {
	return WithRequestID(context.Background(), RequestID(ctx))
}
