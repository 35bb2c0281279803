package cache

import (
	"context"
	"sync"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// Invalidator is a registry of user scoped caches that are cleared together.
//
// Data-mutating operations of a user call InvalidateUser after persisting a change,
// so that following reads recompute from fresh data.
type Invalidator struct {
	sync.Mutex

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Caches contains a list of stores to clear on invalidate.
	Caches []UserClearer

	// Callbacks contains a list of functions to call on invalidate.
	Callbacks []func(ctx context.Context, userID string)
}

// Add registers caches for invalidation.
func (i *Invalidator) Add(caches ...UserClearer) {
	i.Lock()
	defer i.Unlock()

	i.Caches = append(i.Caches, caches...)
}

// InvalidateUser clears all entries of a user in every registered cache.
//
// Number of removed entries is returned.
func (i *Invalidator) InvalidateUser(ctx context.Context, userID string) (int, error) {
	i.Lock()
	caches := i.Caches
	callbacks := i.Callbacks
	i.Unlock()

	if len(caches) == 0 && len(callbacks) == 0 {
		return 0, ErrNothingToInvalidate
	}

	n := 0
	for _, c := range caches {
		n += c.ClearUser(ctx, userID)
	}

	for _, cb := range callbacks {
		cb(ctx, userID)
	}

	if i.Logger != nil {
		i.Logger.Debug(ctx, "invalidated user caches", "user", userID, "count", n)
	}

	if i.Stats != nil {
		i.Stats.Add(ctx, MetricUserInvalidation, 1)
	}

	return n, nil
}
