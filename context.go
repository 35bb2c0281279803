package cache

import (
	"context"
	"time"
)

type (
	skipReadCtxKey struct{}
	ttlCtxKey      struct{}
)

// WithTTL returns context with ttl that is used by Set when DefaultTTL is passed.
func WithTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, ttlCtxKey{}, ttl)
}

// TTL returns ttl from context or DefaultTTL.
func TTL(ctx context.Context) time.Duration {
	ttl, _ := ctx.Value(ttlCtxKey{}).(time.Duration)

	return ttl
}

// WithSkipRead returns context with cache read ignored.
//
// With such context Reader should always miss, discarding cached value.
// Cache-aside callers would rebuild and overwrite the entry.
func WithSkipRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipReadCtxKey{}, true)
}

// SkipRead returns true if cache read is ignored in context.
func SkipRead(ctx context.Context) bool {
	_, ok := ctx.Value(skipReadCtxKey{}).(bool)

	return ok
}
