package benchmark

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/robustmq/robustmq-go/internal/journal"
	"github.com/robustmq/robustmq-go/internal/placement"
)

// ShardCounts defines the shard counts for benchmarking the journal
// engine's cache at scale.
var ShardCounts = []int{1000, 5000, 10000, 50000, 100000}

// SmallShardCounts for quick benchmarks.
var SmallShardCounts = []int{100, 1000, 5000}

// newShard builds a test shard under the given namespace.
func newShard(namespace string, seq int) journal.Shard {
	return journal.Shard{
		Namespace:        namespace,
		ShardName:        fmt.Sprintf("shard-%d", seq),
		ReplicaNum:       3,
		ActiveSegmentSeq: 0,
	}
}

// newSegment builds the active segment for a shard.
func newSegment(shard journal.Shard) placement.JournalSegment {
	return placement.JournalSegment{
		Namespace:     shard.Namespace,
		ShardName:     shard.ShardName,
		SegmentSeq:    shard.ActiveSegmentSeq,
		Status:        placement.SegmentStatusWrite,
		Replicas:      []string{"node-1", "node-2", "node-3"},
		ReplicaLeader: "node-1",
	}
}

// prefillCache populates a journal.CacheManager with count shards, each
// carrying one active segment, and returns the shards created.
func prefillCache(cache *journal.CacheManager, namespace string, count int) []journal.Shard {
	shards := make([]journal.Shard, count)
	for i := 0; i < count; i++ {
		s := newShard(namespace, i)
		cache.AddShard(s)
		cache.AddSegment(newSegment(s))
		shards[i] = s
	}
	return shards
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithShardCounts runs a benchmark function across several shard
// counts, b.Run-ing each count as its own sub-benchmark.
func runWithShardCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("shards_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

