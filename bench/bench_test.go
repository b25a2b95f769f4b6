// Package bench provides reproducible micro-benchmarks for the shm
// back-end through oauth2-cache's string-keyed façade: Set, GetOrLoad,
// parallel GetOrLoad, and GetOrLoad with a mixed hit/miss ratio, all over a
// fixed dataset.
//
// Run via: go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// NOTE: Unit tests live alongside each package; this file is only for
// performance.
//
// © 2025 oauth2-cache authors. MIT License.
package bench

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	cache "github.com/zmartzone/oauth2-cache/pkg"

	_ "github.com/zmartzone/oauth2-cache/internal/shmstore"
)

const (
	maxEntries = 1 << 16
	ttl        = time.Minute
	keys       = 1 << 16
)

var value = make([]byte, 64)

func newTestCache() *cache.Cache {
	c, err := cache.Init("shm", fmt.Sprintf("max_entries=%d&encrypt=false", maxEntries))
	if err != nil {
		panic(err)
	}
	return c
}

var ds = func() []string {
	arr := make([]string, keys)
	rnd := rand.New(rand.NewSource(42))
	for i := range arr {
		arr[i] = fmt.Sprintf("k-%x", rnd.Uint64())
	}
	return arr
}()

func BenchmarkSet(b *testing.B) {
	c := newTestCache()
	defer c.Close()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := ds[i&(keys-1)]
		c.Set(context.Background(), key, value, ttl)
	}
}

func BenchmarkGetOrLoad(b *testing.B) {
	c := newTestCache()
	defer c.Close()
	for _, k := range ds {
		c.Set(context.Background(), k, value, ttl)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keys-1)]
		_, _ = c.GetOrLoad(context.Background(), k, ttl, func(ctx context.Context) ([]byte, error) {
			return value, nil
		})
	}
}

func BenchmarkGetOrLoadParallel(b *testing.B) {
	c := newTestCache()
	defer c.Close()
	for _, k := range ds {
		c.Set(context.Background(), k, value, ttl)
	}
	loader := func(ctx context.Context) ([]byte, error) { return value, nil }

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := rand.Intn(keys)
		for pb.Next() {
			idx = (idx + 1) & (keys - 1)
			c.GetOrLoad(context.Background(), ds[idx], ttl, loader)
		}
	})
}

func BenchmarkGetOrLoadMixedHitMiss(b *testing.B) {
	c := newTestCache()
	defer c.Close()
	for i, k := range ds {
		if i%10 != 0 { // 90% fill
			c.Set(context.Background(), k, value, ttl)
		}
	}
	var loaderCnt atomic.Uint64
	loader := func(ctx context.Context) ([]byte, error) {
		loaderCnt.Add(1)
		return value, nil
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keys-1)]
		c.GetOrLoad(context.Background(), k, ttl, loader)
	}
	b.ReportMetric(float64(loaderCnt.Load())/float64(b.N)*100, "miss-%")
}

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())
}
