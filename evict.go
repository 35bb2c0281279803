package cache

import (
	"context"
	"runtime"
	"sort"
	"time"
)

func (c *memory) evictHeapInUse() {
	if c.config.HeapInUseSoftLimit == 0 {
		return
	}

	runtime.GC()

	m := runtime.MemStats{}
	runtime.ReadMemStats(&m)

	if m.HeapInuse < c.config.HeapInUseSoftLimit {
		return
	}

	c.evictMostExpired()
}

func (c *memory) evictMostExpired() {
	type item struct {
		key      string
		expireAt time.Time
	}

	entries := make([]item, 0, c.Len())

	// Collect all keys and expirations.
	for i := range c.buckets {
		b := &c.buckets[i]

		b.RLock()
		for k, e := range b.data {
			entries = append(entries, item{key: k, expireAt: e.Exp})
		}
		b.RUnlock()
	}

	// Sort entries to put most expired in head.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].expireAt.Before(entries[j].expireAt)
	})

	evictFraction := c.config.HeapInUseEvictFraction
	if evictFraction == 0 {
		evictFraction = 0.1
	}

	evictItems := int(float64(len(entries)) * evictFraction)

	if c.stat != nil {
		c.stat.Add(context.Background(), MetricEvict, float64(evictItems), "name", c.config.Name)
	}

	for i := 0; i < evictItems; i++ {
		b := c.bucket(entries[i].key)

		b.Lock()
		delete(b.data, entries[i].key)
		b.Unlock()
	}
}
