// Package requestcontext carries request-scoped values from middleware to
// services without the services importing net/http.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	keyRequestID key = iota
	keyRequestTime
	keyClientIP
	keyUserAgent
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// RequestID is empty outside an HTTP request.
func RequestID(ctx context.Context) string {
	id, _ := value[string](ctx, keyRequestID)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// Now is the time pinned for the current request, or the wall clock when no
// request is in flight (CLI, background work).
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, keyRequestTime); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}

func ClientIP(ctx context.Context) string {
	ip, _ := value[string](ctx, keyClientIP)
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := value[string](ctx, keyUserAgent)
	return ua
}

// WithClientMetadata records the caller's IP and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, keyClientIP, clientIP)
	return context.WithValue(ctx, keyUserAgent, userAgent)
}
