package cache_test

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"testing"
	"time"

	pca "github.com/patrickmn/go-cache"
	"github.com/vearutop/spendcache"
)

const cardinality = 10000

func benchKey(i int) string {
	return "u" + strconv.Itoa(i%100) + ":tips:" + strconv.Itoa(i)
}

func Benchmark_Memory(b *testing.B) {
	c := cache.NewMemory()
	defer c.Close()

	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := benchKey(i % cardinality)
		// nolint
		if i < cardinality {
			c.Set(ctx, k, 123, time.Minute)
		}

		_, _ = c.Get(ctx, k)
	}
}

func Benchmark_PatrickmnGoCache(b *testing.B) {
	c := pca.New(time.Minute, 10*time.Minute)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := benchKey(i % cardinality)
		// nolint
		if i < cardinality {
			c.Set(k, 123, time.Minute)
		}

		_, _ = c.Get(k)
	}
}

func Benchmark_Aside(b *testing.B) {
	c := cache.NewAside(cache.AsideConfig{})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := cache.NewKey("u"+strconv.Itoa(i%100), "tips", strconv.Itoa(i%cardinality))

		_, _ = c.Get(ctx, k, func(ctx context.Context) (interface{}, error) {
			return 123, nil
		})
	}
}

func Benchmark_Memory_ClearUser(b *testing.B) {
	c := cache.NewMemory()
	defer c.Close()

	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		for j := 0; j < cardinality; j++ {
			c.Set(ctx, benchKey(j), j, time.Minute)
		}
		b.StartTimer()

		c.ClearUser(ctx, "u"+strconv.Itoa(i%100))
	}
}

func Benchmark_Memory_concurrent(b *testing.B) {
	c := cache.NewMemory()
	defer c.Close()

	ctx := context.Background()

	for i := 0; i < cardinality; i++ {
		c.Set(ctx, benchKey(i), 123, time.Hour)
	}

	runConcurrent(b, func(i int) {
		v, _ := c.Get(ctx, benchKey((i^12345)%cardinality))

		if v.(int) != 123 {
			b.Fail()
		}
	})
}

func Benchmark_PatrickmnGoCache_concurrent(b *testing.B) {
	c := pca.New(time.Hour, 10*time.Minute)

	for i := 0; i < cardinality; i++ {
		c.Set(benchKey(i), 123, time.Hour)
	}

	runConcurrent(b, func(i int) {
		v, _ := c.Get(benchKey((i ^ 12345) % cardinality))

		if v.(int) != 123 {
			b.Fail()
		}
	})
}

func runConcurrent(b *testing.B, f func(i int)) {
	b.Helper()

	before := heapInUse()

	b.ReportAllocs()
	b.ResetTimer()

	numRoutines := runtime.GOMAXPROCS(0)
	wg := sync.WaitGroup{}
	wg.Add(numRoutines)

	for r := 0; r < numRoutines; r++ {
		cnt := b.N / numRoutines
		if r == 0 {
			cnt = b.N - cnt*(numRoutines-1)
		}

		go func() {
			defer wg.Done()

			for i := 0; i < cnt; i++ {
				f(i)
			}
		}()
	}

	wg.Wait()
	b.StopTimer()
	b.ReportMetric((float64(heapInUse())-float64(before))/(1024*1024), "MB/inuse")
}

func heapInUse() uint64 {
	var (
		m         = runtime.MemStats{}
		prevInUse uint64
	)

	for {
		runtime.ReadMemStats(&m)

		if math.Abs(float64(m.HeapInuse)-float64(prevInUse)) < 1*1024 {
			break
		}

		prevInUse = m.HeapInuse

		time.Sleep(50 * time.Millisecond)
		runtime.GC()
		debug.FreeOSMemory()
	}

	return m.HeapInuse
}
