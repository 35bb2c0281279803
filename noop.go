package cache

import (
	"context"
	"time"
)

// NoOp is a Store stub, it never finds anything.
type NoOp struct{}

var (
	_ Store   = NoOp{}
	_ Stamper = NoOp{}
)

// Get does not find anything.
func (NoOp) Get(ctx context.Context, key string) (interface{}, bool) {
	return nil, false
}

// Set discards value.
func (NoOp) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {}

// Delete has nothing to delete.
func (NoOp) Delete(ctx context.Context, key string) bool {
	return false
}

// ClearUser has nothing to clear.
func (NoOp) ClearUser(ctx context.Context, userID string) int {
	return 0
}

// ClearAll has nothing to clear.
func (NoOp) ClearAll(ctx context.Context) {}

// Stamp returns a zero generation stamp.
func (NoOp) Stamp(userID string) Stamp {
	return Stamp{Owner: userID}
}

// SetStamped discards value.
func (NoOp) SetStamped(ctx context.Context, s Stamp, key string, value interface{}, ttl time.Duration) error {
	return nil
}
