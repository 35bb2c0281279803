package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bool64/stats"
	"github.com/stretchr/testify/assert"
	"github.com/vearutop/spendcache"
)

func TestInvalidator_InvalidateUser(t *testing.T) {
	cache1 := cache.NewMemory()
	defer cache1.Close()

	cache2 := cache.NewMemory()
	defer cache2.Close()

	ctx := context.Background()

	i := &cache.Invalidator{}
	_, err := i.InvalidateUser(ctx, "u1")
	assert.True(t, errors.Is(err, cache.ErrNothingToInvalidate))

	var called []string

	i.Add(cache1, cache2)
	i.Callbacks = append(i.Callbacks, func(ctx context.Context, userID string) {
		called = append(called, userID)
	})

	cache1.Set(ctx, "u1:tip", 1, time.Minute)
	cache1.Set(ctx, "u2:tip", 1, time.Minute)
	cache2.Set(ctx, "u1:insights:month", 2, time.Minute)

	n, err := i.InvalidateUser(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"u1"}, called)

	_, found := cache1.Get(ctx, "u1:tip")
	assert.False(t, found)

	_, found = cache2.Get(ctx, "u1:insights:month")
	assert.False(t, found)

	_, found = cache1.Get(ctx, "u2:tip")
	assert.True(t, found)

	// Invalidation is not throttled.
	n, err = i.InvalidateUser(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []string{"u1", "u1"}, called)
}

func TestInvalidator_InvalidateUser_stats(t *testing.T) {
	ctx := context.Background()
	st := &stats.TrackerMock{}

	mc := cache.NewMemory(cache.MemoryConfig{Name: "insights", Stats: st})
	defer mc.Close()

	i := &cache.Invalidator{Stats: st}
	i.Add(mc)

	mc.Set(ctx, "u1:tips", 1, time.Minute)
	mc.Set(ctx, "u1:insights:month", 2, time.Minute)
	mc.Set(ctx, "u2:tips", 3, time.Minute)

	n, err := i.InvalidateUser(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	// Removed entries are counted once, by the cache that held them.
	assert.Equal(t, 2, st.Int(cache.MetricInvalidated))
	assert.Equal(t, 1, st.Int(cache.MetricUserInvalidation))

	_, err = i.InvalidateUser(ctx, "u3")
	assert.NoError(t, err)
	assert.Equal(t, 2, st.Int(cache.MetricInvalidated))
	assert.Equal(t, 2, st.Int(cache.MetricUserInvalidation))
}
