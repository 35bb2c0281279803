package cache

import (
	"context"
	"time"
)

// DefaultTTL indicates default value for entry expiration time, configured TimeToLive is used.
const DefaultTTL = time.Duration(0)

// SkipWriteTTL is a ttl value to indicate that cache must not be stored.
const SkipWriteTTL = time.Duration(-1)

// Reader reads from cache.
type Reader interface {
	// Get returns cached value if it exists and has not expired.
	Get(ctx context.Context, key string) (interface{}, bool)
}

// Writer writes to cache.
type Writer interface {
	// Set stores value in cache with a given key, replacing previous entry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// Deleter removes entries from cache.
type Deleter interface {
	// Delete removes a single entry and reports whether it existed.
	Delete(ctx context.Context, key string) bool
}

// UserClearer removes all entries that belong to a user.
type UserClearer interface {
	// ClearUser removes entries with "<userID>:" prefix and returns their count.
	ClearUser(ctx context.Context, userID string) int
}

// Store is a full featured cache store.
type Store interface {
	Reader
	Writer
	Deleter
	UserClearer

	// ClearAll removes all entries.
	ClearAll(ctx context.Context)
}

// Stamper issues generation stamps and accepts stamped writes.
//
// A stamp taken before building a value is invalidated by ClearUser of stamp owner or by ClearAll,
// stamped write is rejected with ErrStaleWrite in that case.
type Stamper interface {
	Stamp(userID string) Stamp
	SetStamped(ctx context.Context, s Stamp, key string, value interface{}, ttl time.Duration) error
}

// Entry is cache entry.
type Entry interface {
	Value() interface{}
	ExpireAt() time.Time
}

// Walker calls function for every entry in cache and fails on first error returned by that function.
//
// Count of processed entries is returned.
type Walker interface {
	Walk(func(key string, entry Entry) error) (int, error)
}
