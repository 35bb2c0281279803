package cache

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync"
)

// DefaultTimeToLive is a ttl of entries written with DefaultTTL.
const DefaultTimeToLive = 10 * time.Minute

const shards = 64

// generationStripes is a number of invalidation counters users are hashed to.
const generationStripes = 64

// entry is a cache entry.
type entry struct {
	Val interface{}
	Exp time.Time
}

func (e entry) Value() interface{} {
	return e.Val
}

func (e entry) ExpireAt() time.Time {
	return e.Exp
}

type bucket struct {
	sync.RWMutex
	data map[string]entry
}

// MemoryConfig controls in-memory cache instance.
type MemoryConfig struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Name is cache instance name, used in stats and logging.
	Name string

	// TimeToLive is delay before entry expiration, default 10m.
	TimeToLive time.Duration

	// DeleteExpiredJobInterval is delay between two consecutive sweeps of expired entries.
	// Zero or negative value disables background sweep, expired entries are then removed on read.
	DeleteExpiredJobInterval time.Duration

	// ItemsCountReportInterval is items count metric report interval, default 1m.
	ItemsCountReportInterval time.Duration

	// ExpirationJitter is a fraction of TTL to randomize, disabled by default.
	// If enabled, entry TTL will be randomly altered in bounds of ±(ExpirationJitter * TTL / 2).
	ExpirationJitter float64

	// HeapInUseSoftLimit sets heap in use threshold when eviction of most expired items will be performed.
	//
	// Eviction is a part of delete expired job, eviction runs at most once per delete expired job and
	// removes most expired entries up to HeapInUseEvictFraction.
	HeapInUseSoftLimit uint64

	// HeapInUseEvictFraction is a fraction of total count of items to be evicted (0, 1], default 0.1 (10% of items).
	HeapInUseEvictFraction float64

	// Clock returns current time, default time.Now.
	Clock func() time.Time
}

var (
	_ Store   = &Memory{}
	_ Stamper = &Memory{}
	_ Walker  = &Memory{}
)

// Memory is an in-memory cache. Please use NewMemory to create it.
type Memory struct {
	*memory
}

type memory struct {
	buckets [shards]bucket

	// generations are incremented on ClearUser of any user hashed to a stripe.
	generations [generationStripes]xsync.Counter
	epoch       xsync.Counter

	closed    chan struct{}
	closeOnce sync.Once

	config MemoryConfig
	log    ctxd.Logger
	stat   stats.Tracker
	now    func() time.Time
}

// NewMemory creates an instance of in-memory cache with optional configuration.
func NewMemory(cfg ...MemoryConfig) *Memory {
	config := MemoryConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.TimeToLive <= 0 {
		config.TimeToLive = DefaultTimeToLive
	}

	if config.ItemsCountReportInterval == 0 {
		config.ItemsCountReportInterval = time.Minute
	}

	if config.Clock == nil {
		config.Clock = time.Now
	}

	c := &memory{
		closed: make(chan struct{}),
		config: config,
		log:    config.Logger,
		stat:   config.Stats,
		now:    config.Clock,
	}

	for i := 0; i < shards; i++ {
		c.buckets[i].data = make(map[string]entry)
	}

	C := &Memory{
		memory: c,
	}

	if c.stat != nil {
		go c.reportItemsCount()
	}

	if config.DeleteExpiredJobInterval > 0 {
		go c.cleaner()
	}

	runtime.SetFinalizer(C, func(m *Memory) {
		m.Close()
	})

	return C
}

func (c *memory) bucket(key string) *bucket {
	return &c.buckets[xxhash.Sum64String(key)%shards]
}

// Get returns a live value.
//
// Expired entry is removed from the store when observed.
func (c *memory) Get(ctx context.Context, key string) (interface{}, bool) {
	if SkipRead(ctx) {
		return nil, false
	}

	b := c.bucket(key)

	b.RLock()
	cacheEntry, found := b.data[key]
	b.RUnlock()

	if !found {
		if c.log != nil {
			c.log.Debug(ctx, "cache miss",
				"name", c.config.Name,
				"key", key)
		}

		if c.stat != nil {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
		}

		return nil, false
	}

	if !c.now().Before(cacheEntry.Exp) {
		b.Lock()
		cacheEntry, found = b.data[key]

		// Entry may have been replaced with a live one since read lock was released.
		live := found && c.now().Before(cacheEntry.Exp)
		if found && !live {
			delete(b.data, key)
		}
		b.Unlock()

		if !live {
			if c.log != nil {
				c.log.Debug(ctx, "cache key expired",
					"name", c.config.Name,
					"key", key)
			}

			if c.stat != nil {
				c.stat.Add(ctx, MetricExpired, 1, "name", c.config.Name)
			}

			return nil, false
		}
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}

	if c.log != nil {
		c.log.Debug(ctx, "cache hit",
			"name", c.config.Name,
			"key", key,
			"expireAt", cacheEntry.Exp)
	}

	return cacheEntry.Val, true
}

func (c *memory) ttl(ctx context.Context, ttl time.Duration) time.Duration {
	if ttl == DefaultTTL {
		ttl = TTL(ctx)
	}

	if ttl == DefaultTTL {
		ttl = c.config.TimeToLive
	}

	if ttl > 0 && c.config.ExpirationJitter > 0 {
		ttl += time.Duration(float64(ttl) * c.config.ExpirationJitter * (rand.Float64() - 0.5)) // nolint:gosec
	}

	return ttl
}

// Set stores value replacing any previous entry of the key.
//
// DefaultTTL applies ttl from context or configured TimeToLive, negative ttl skips the write.
func (c *memory) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	ttl = c.ttl(ctx, ttl)
	if ttl < 0 {
		if c.log != nil {
			c.log.Debug(ctx, "skipped cache write", "name", c.config.Name, "key", key)
		}

		return
	}

	b := c.bucket(key)

	b.Lock()
	b.data[key] = entry{Val: value, Exp: c.now().Add(ttl)}
	b.Unlock()

	c.wrote(ctx, key, ttl)
}

func (c *memory) wrote(ctx context.Context, key string, ttl time.Duration) {
	if c.log != nil {
		c.log.Debug(ctx, "wrote to cache", "name", c.config.Name, "key", key, "ttl", ttl)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricWrite, 1, "name", c.config.Name)
	}
}

// Stamp returns current generation of user entries.
func (c *memory) Stamp(userID string) Stamp {
	return Stamp{
		Owner:      userID,
		Generation: c.generation(userID).Value(),
		Epoch:      c.epoch.Value(),
	}
}

// SetStamped stores value only if neither ClearUser of stamp owner nor ClearAll happened since stamp was taken.
//
// Key must belong to stamp owner.
func (c *memory) SetStamped(ctx context.Context, s Stamp, key string, value interface{}, ttl time.Duration) error {
	if s.Owner == "" {
		return ErrEmptyOwner
	}

	if !strings.HasPrefix(key, UserPrefix(s.Owner)) {
		return fmt.Errorf("%w: key %q, owner %q", ErrKeyOwnerMismatch, key, s.Owner)
	}

	ttl = c.ttl(ctx, ttl)
	if ttl < 0 {
		return nil
	}

	b := c.bucket(key)

	b.Lock()
	// Invalidation bumps generation before sweeping buckets, so the check and the write
	// must happen under the same bucket lock.
	if c.Stamp(s.Owner) != s {
		b.Unlock()

		if c.log != nil {
			c.log.Debug(ctx, "rejected stale cache write", "name", c.config.Name, "key", key)
		}

		if c.stat != nil {
			c.stat.Add(ctx, MetricStaleWrite, 1, "name", c.config.Name)
		}

		return ErrStaleWrite
	}

	b.data[key] = entry{Val: value, Exp: c.now().Add(ttl)}
	b.Unlock()

	c.wrote(ctx, key, ttl)

	return nil
}

// Delete removes entry and reports whether it existed.
func (c *memory) Delete(ctx context.Context, key string) bool {
	b := c.bucket(key)

	b.Lock()
	_, found := b.data[key]
	if found {
		delete(b.data, key)
	}
	b.Unlock()

	if !found {
		return false
	}

	if c.log != nil {
		c.log.Debug(ctx, "deleted cache entry", "name", c.config.Name, "key", key)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricDelete, 1, "name", c.config.Name)
	}

	return true
}

// generation returns invalidation counter of a user.
//
// Users share a fixed set of counters, so ClearUser may also reject
// in-flight writes of another user hashed to the same stripe.
func (c *memory) generation(userID string) *xsync.Counter {
	return &c.generations[xxhash.Sum64String(userID)%generationStripes]
}

// ClearUser removes all entries with "<userID>:" key prefix, expired or not.
//
// All keys are scanned, number of removed entries is returned.
func (c *memory) ClearUser(ctx context.Context, userID string) int {
	c.generation(userID).Inc()

	prefix := UserPrefix(userID)
	n := 0

	for i := range c.buckets {
		b := &c.buckets[i]

		b.Lock()
		for k := range b.data {
			if strings.HasPrefix(k, prefix) {
				delete(b.data, k)
				n++
			}
		}
		b.Unlock()
	}

	if c.log != nil {
		c.log.Debug(ctx, "cleared user cache entries",
			"name", c.config.Name,
			"user", userID,
			"count", n)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricInvalidated, float64(n), "name", c.config.Name)
	}

	return n
}

// ClearAll deletes all entries.
func (c *memory) ClearAll(ctx context.Context) {
	c.epoch.Inc()

	for i := range c.buckets {
		b := &c.buckets[i]

		b.Lock()
		b.data = make(map[string]entry)
		b.Unlock()
	}

	if c.log != nil {
		c.log.Debug(ctx, "cleared all cache entries", "name", c.config.Name)
	}
}

// Close stops background jobs of cache instance.
//
// Cache remains usable after close.
func (c *memory) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *memory) cleaner() {
	for {
		select {
		case <-time.After(c.config.DeleteExpiredJobInterval):
			c.clearExpired()
		case <-c.closed:
			return
		}
	}
}

func (c *memory) clearExpired() {
	now := c.now()
	keys := make([]string, 0, 100)

	for i := range c.buckets {
		b := &c.buckets[i]

		b.Lock()
		for k, e := range b.data {
			if !now.Before(e.Exp) {
				keys = append(keys, k)

				delete(b.data, k)
			}
		}
		b.Unlock()
	}

	if c.log != nil && len(keys) > 0 {
		c.log.Debug(context.Background(), "cleared expired cache items",
			"name", c.config.Name,
			"items", keys,
		)
	}

	if c.stat != nil && len(keys) > 0 {
		c.stat.Add(context.Background(), MetricExpired, float64(len(keys)), "name", c.config.Name)
	}

	c.evictHeapInUse()
}

func (c *memory) reportItemsCount() {
	for {
		select {
		case <-c.closed:
			return
		case <-time.After(c.config.ItemsCountReportInterval):
			count := c.Len()

			if c.log != nil {
				c.log.Debug(context.Background(), "cache items count",
					"name", c.config.Name,
					"count", count,
				)
			}

			c.stat.Set(context.Background(), MetricItems, float64(count), "name", c.config.Name)
		}
	}
}

// Len returns number of stored entries, including expired ones that were not yet removed.
func (c *memory) Len() int {
	cnt := 0

	for i := range c.buckets {
		b := &c.buckets[i]

		b.RLock()
		cnt += len(b.data)
		b.RUnlock()
	}

	return cnt
}

// Walk walks cached entries.
//
// Entries of a bucket are copied before walking, so walkFn may access cache.
func (c *memory) Walk(walkFn func(key string, value Entry) error) (int, error) {
	n := 0

	type kv struct {
		k string
		e entry
	}

	for i := range c.buckets {
		b := &c.buckets[i]

		b.RLock()
		items := make([]kv, 0, len(b.data))
		for k, e := range b.data {
			items = append(items, kv{k: k, e: e})
		}
		b.RUnlock()

		for _, item := range items {
			if err := walkFn(item.k, item.e); err != nil {
				return n, err
			}

			n++
		}
	}

	return n, nil
}
