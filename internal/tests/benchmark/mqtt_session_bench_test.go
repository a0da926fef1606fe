package benchmark

import (
	"fmt"
	"testing"

	"github.com/robustmq/robustmq-go/internal/mqtt"
)

func benchClientID(i int) string {
	return fmt.Sprintf("bench-client-%d", i)
}

func prefillMqttCache(cache *mqtt.CacheManager, count int) []string {
	clientIDs := make([]string, count)
	for i := 0; i < count; i++ {
		id := benchClientID(i)
		cache.AddSession(mqtt.NewSession(id, uint64(i)))
		clientIDs[i] = id
	}
	return clientIDs
}

// BenchmarkMqttSessionAdd benchmarks session registration at various
// cache sizes.
func BenchmarkMqttSessionAdd(b *testing.B) {
	counts := SmallSessionCountsMqtt()

	for _, preload := range counts {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			cache := mqtt.NewCacheManager(mqtt.QoSExactlyOnce)
			prefillMqttCache(cache, preload)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				cache.AddSession(mqtt.NewSession(benchClientID(preload+i), uint64(preload+i)))
			}

			b.StopTimer()
			reportMemory(b, "mem")
		})
	}
}

// BenchmarkMqttSessionGet benchmarks the client_id -> Session lookup
// the delivery core makes on every inbound packet.
func BenchmarkMqttSessionGet(b *testing.B) {
	for _, count := range SmallSessionCountsMqtt() {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			cache := mqtt.NewCacheManager(mqtt.QoSExactlyOnce)
			clientIDs := prefillMqttCache(cache, count)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				id := clientIDs[i%len(clientIDs)]
				if _, ok := cache.GetSession(id); !ok {
					b.Fatalf("GetSession missed %s", id)
				}
			}
		})
	}
}

// BenchmarkMqttConnectIDLookup benchmarks the client_id -> connect_id
// binding lookup used to route a delivery to its live connection.
func BenchmarkMqttConnectIDLookup(b *testing.B) {
	cache := mqtt.NewCacheManager(mqtt.QoSExactlyOnce)
	clientIDs := prefillMqttCache(cache, 10000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		id := clientIDs[i%len(clientIDs)]
		if _, ok := cache.GetConnectID(id); !ok {
			b.Fatalf("GetConnectID missed %s", id)
		}
	}
}

// BenchmarkMqttSessionRemove benchmarks session teardown, which sweeps
// the client's connect_id binding, pkid allocator, and every pending
// QoS ack-wait entry it held.
func BenchmarkMqttSessionRemove(b *testing.B) {
	cache := mqtt.NewCacheManager(mqtt.QoSExactlyOnce)
	clientIDs := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		id := benchClientID(i)
		cache.AddSession(mqtt.NewSession(id, uint64(i)))
		cache.AddAckPacket(id, 1, mqtt.QosAckPacketInfo{})
		clientIDs[i] = id
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.RemoveSession(clientIDs[i])
	}
}

// BenchmarkMqttPkidAllocate benchmarks packet-identifier allocation
// under the QoS ack-wait bookkeeping (invariant I6's sequential,
// wraparound-safe allocator).
func BenchmarkMqttPkidAllocate(b *testing.B) {
	cache := mqtt.NewCacheManager(mqtt.QoSExactlyOnce)
	clientID := "bench-client"

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		pkid := cache.GetPkid(clientID)
		cache.RemovePkidInfo(clientID, pkid)
	}
}

// BenchmarkMqttAckPacketRoundTrip benchmarks registering and resolving
// one QoS>=1 ack-wait entry, the per-publish cost on the exclusive
// delivery pipeline's hot path.
func BenchmarkMqttAckPacketRoundTrip(b *testing.B) {
	cache := mqtt.NewCacheManager(mqtt.QoSExactlyOnce)
	clientID := "bench-client"

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		pkid := uint16(i%65535) + 1
		cache.AddAckPacket(clientID, pkid, mqtt.QosAckPacketInfo{})
		if _, ok := cache.GetAckPacket(clientID, pkid); !ok {
			b.Fatalf("GetAckPacket missed pkid %d", pkid)
		}
		cache.RemoveAckPacket(clientID, pkid)
	}
}

// BenchmarkMqttCacheConcurrent benchmarks a mix of session, connection,
// and ack-table operations hitting the delivery core's cache from
// multiple goroutines.
func BenchmarkMqttCacheConcurrent(b *testing.B) {
	cache := mqtt.NewCacheManager(mqtt.QoSExactlyOnce)
	clientIDs := prefillMqttCache(cache, 10000)

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			id := clientIDs[i%len(clientIDs)]
			switch i % 4 {
			case 0:
				cache.GetSession(id)
			case 1:
				cache.GetConnectID(id)
			case 2:
				pkid := cache.GetPkid(id)
				cache.RemovePkidInfo(id, pkid)
			case 3:
				cache.AddConnection(uint64(i), mqtt.ConnectionInfo{Protocol: "mqtt5", MaxPacketSize: 65536})
			}
			i++
		}
	})
}

// SmallSessionCountsMqtt mirrors SmallShardCounts for MQTT session
// cache sizing; kept distinct so journal and MQTT benchmarks can be
// scaled independently.
func SmallSessionCountsMqtt() []int {
	return []int{1000, 5000, 10000}
}
