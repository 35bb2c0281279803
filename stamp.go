package cache

// Stamp captures invalidation state of a user at the moment a value build started.
type Stamp struct {
	Owner      string
	Generation int64
	Epoch      int64
}
