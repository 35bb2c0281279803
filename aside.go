package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"golang.org/x/sync/singleflight"
)

// BuildFunc computes a value on cache miss.
type BuildFunc func(ctx context.Context) (interface{}, error)

// AsideConfig is optional configuration for NewAside.
type AsideConfig struct {
	// Name is added to logs and stats.
	Name string

	// Store is a cache instance, in-memory created by default.
	Store Store

	// StoreConfig is a configuration for in-memory cache instance if Store is not provided.
	StoreConfig MemoryConfig

	// TimeToLive is ttl of built values, default 10m.
	TimeToLive time.Duration

	// Deduplicate enables sharing of a single build between concurrent misses of the same key.
	//
	// Disabled by default, concurrent misses build independently and last write wins.
	Deduplicate bool

	// UnstampedWrites disables generation check of built values.
	//
	// With unstamped writes a build that started before ClearUser may put value computed
	// from outdated data back to cache.
	UnstampedWrites bool

	// Logger collects messages with context.
	Logger ctxd.Logger

	// Stats tracks stats.
	Stats stats.Tracker
}

// Aside implements cache-aside reads: check cache, build on miss, write back with TTL.
//
// Please use NewAside to create instance.
type Aside struct {
	store  Store
	config AsideConfig
	log    ctxd.Logger
	stat   stats.Tracker
	group  singleflight.Group
}

// NewAside creates a cache-aside instance.
func NewAside(config AsideConfig) *Aside {
	if config.TimeToLive <= 0 {
		config.TimeToLive = DefaultTimeToLive
	}

	a := &Aside{}
	a.config = config

	a.log = config.Logger
	if a.log == nil {
		a.log = ctxd.NoOpLogger{}
	}

	a.stat = config.Stats
	if a.stat == nil {
		a.stat = stats.NoOp{}
	}

	a.store = config.Store
	if a.store == nil {
		config.StoreConfig.Name = config.Name
		config.StoreConfig.Logger = config.Logger
		config.StoreConfig.Stats = config.Stats
		config.StoreConfig.TimeToLive = config.TimeToLive
		a.store = NewMemory(config.StoreConfig)
	}

	return a
}

// Store returns underlying cache store.
func (a *Aside) Store() Store {
	return a.store
}

// Get returns value from cache or from build function.
//
// Build errors are returned as is and are not cached.
func (a *Aside) Get(ctx context.Context, key Key, buildFunc BuildFunc) (interface{}, error) {
	k := key.String()

	if v, found := a.store.Get(ctx, k); found {
		return v, nil
	}

	if !a.config.Deduplicate {
		return a.build(ctx, key, buildFunc)
	}

	v, err, shared := a.group.Do(k, func() (interface{}, error) {
		return a.build(ctx, key, buildFunc)
	})

	if shared {
		a.log.Debug(ctx, "shared cache build", "name", a.config.Name, "key", k)
	}

	return v, err
}

func (a *Aside) build(ctx context.Context, key Key, buildFunc BuildFunc) (interface{}, error) {
	k := key.String()

	stamper, stamped := a.store.(Stamper)
	stamped = stamped && !a.config.UnstampedWrites && key.Owner != ""

	var s Stamp
	if stamped {
		s = stamper.Stamp(key.Owner)
	}

	a.log.Debug(ctx, "building cache value", "name", a.config.Name, "key", k)
	a.stat.Add(ctx, MetricBuild, 1, "name", a.config.Name)

	v, err := buildFunc(ctx)
	if err != nil {
		a.stat.Add(ctx, MetricFailed, 1, "name", a.config.Name)

		return nil, ctxd.WrapError(ctx, err, "failed to build cache value", "key", k)
	}

	if !stamped {
		a.store.Set(ctx, k, v, a.config.TimeToLive)

		return v, nil
	}

	err = stamper.SetStamped(ctx, s, k, v, a.config.TimeToLive)

	switch {
	case err == nil:
	case errors.Is(err, ErrStaleWrite):
		// Value is still served to this caller, next read rebuilds from fresh data.
		a.log.Debug(ctx, "built value outdated by invalidation", "name", a.config.Name, "key", k)
	default:
		a.log.Warn(ctx, "failed to write cache value",
			"error", err,
			"name", a.config.Name,
			"key", k)
	}

	return v, nil
}

// ClearUser removes all entries of a user from underlying store.
func (a *Aside) ClearUser(ctx context.Context, userID string) int {
	return a.store.ClearUser(ctx, userID)
}
