package cache

// SentinelError is an error.
type SentinelError string

const (
	// ErrNothingToInvalidate indicates no caches were added to Invalidator.
	ErrNothingToInvalidate = SentinelError("nothing to invalidate")

	// ErrStaleWrite indicates a stamped write was rejected because owner was invalidated after the stamp.
	ErrStaleWrite = SentinelError("stale write rejected")

	// ErrEmptyOwner indicates a key without owner.
	ErrEmptyOwner = SentinelError("cache key owner is empty")

	// ErrKeyOwnerMismatch indicates a stamped write of a key that belongs to another owner.
	ErrKeyOwnerMismatch = SentinelError("cache key does not belong to stamp owner")
)

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}
