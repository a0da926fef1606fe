package benchmark

import (
	"fmt"
	"testing"

	"github.com/robustmq/robustmq-go/internal/journal"
)

// BenchmarkShardAdd benchmarks shard registration at various cache
// sizes.
func BenchmarkShardAdd(b *testing.B) {
	counts := SmallShardCounts

	for _, preload := range counts {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			cache := journal.NewCacheManager(nil, nil)
			prefillCache(cache, "bench-ns", preload)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				cache.AddShard(newShard("bench-ns", preload+i))
			}

			b.StopTimer()
			reportMemory(b, "mem")
		})
	}
}

// BenchmarkShardGet benchmarks shard lookup at various cache sizes.
func BenchmarkShardGet(b *testing.B) {
	runWithShardCounts(b, SmallShardCounts, func(b *testing.B, count int) {
		cache := journal.NewCacheManager(nil, nil)
		shards := prefillCache(cache, "bench-ns", count)

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			s := shards[i%len(shards)]
			if _, ok := cache.GetShard(s.Namespace, s.ShardName); !ok {
				b.Fatalf("GetShard missed %s", s.Key())
			}
		}
	})
}

// BenchmarkShardExists benchmarks the existence check used before
// routing a write.
func BenchmarkShardExists(b *testing.B) {
	runWithShardCounts(b, SmallShardCounts, func(b *testing.B, count int) {
		cache := journal.NewCacheManager(nil, nil)
		shards := prefillCache(cache, "bench-ns", count)

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			s := shards[i%len(shards)]
			cache.ShardExists(s.Namespace, s.ShardName)
		}
	})
}

// BenchmarkShardDelete benchmarks shard teardown, which also sweeps
// every segment recorded under the shard.
func BenchmarkShardDelete(b *testing.B) {
	cache := journal.NewCacheManager(nil, nil)
	shards := make([]journal.Shard, b.N)
	for i := 0; i < b.N; i++ {
		s := newShard("bench-ns", i)
		cache.AddShard(s)
		cache.AddSegment(newSegment(s))
		shards[i] = s
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.DeleteShard(shards[i].Namespace, shards[i].ShardName)
	}
}

// BenchmarkActiveSegmentLookup benchmarks the write-path's hot
// GetActiveSegment call: resolve a shard, then its current active
// (non-sealed) segment.
func BenchmarkActiveSegmentLookup(b *testing.B) {
	runWithShardCounts(b, SmallShardCounts, func(b *testing.B, count int) {
		cache := journal.NewCacheManager(nil, nil)
		shards := prefillCache(cache, "bench-ns", count)

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			s := shards[i%len(shards)]
			if _, ok := cache.GetActiveSegment(s.Namespace, s.ShardName); !ok {
				b.Fatalf("GetActiveSegment missed %s", s.Key())
			}
		}
	})
}

// BenchmarkCacheConcurrent benchmarks a mix of shard/segment reads and
// writes hitting the cache's cmap-backed maps from multiple goroutines.
func BenchmarkCacheConcurrent(b *testing.B) {
	cache := journal.NewCacheManager(nil, nil)
	shards := prefillCache(cache, "bench-ns", 10000)

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			s := shards[i%len(shards)]
			switch i % 4 {
			case 0:
				cache.GetShard(s.Namespace, s.ShardName)
			case 1:
				cache.GetActiveSegment(s.Namespace, s.ShardName)
			case 2:
				cache.ShardExists(s.Namespace, s.ShardName)
			case 3:
				cache.AddSegment(newSegment(s))
			}
			i++
		}
	})
}
