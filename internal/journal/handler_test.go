package journal

import (
	"context"
	"testing"

	"github.com/robustmq/robustmq-go/internal/placement"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

func newHandlerTestStore(t *testing.T, shardName string, leader string) (*Store, *CacheManager) {
	t.Helper()
	cache := NewCacheManager(nil, nil)
	cache.AddShard(Shard{Namespace: "default", ShardName: shardName, ReplicaNum: 1, ActiveSegmentSeq: 0})
	cache.AddSegment(placement.JournalSegment{
		Namespace:     "default",
		ShardName:     shardName,
		SegmentSeq:    0,
		Status:        placement.SegmentStatusWrite,
		Replicas:      []string{leader},
		ReplicaLeader: leader,
	})
	store := NewStore(t.TempDir(), leader, cache, nil, nil)
	t.Cleanup(func() { store.Close() })
	return store, cache
}

func call(t *testing.T, h *Handler, iface rpcpool.Interface, req any) *rpcpool.Envelope {
	t.Helper()
	payload, err := rpcpool.EncodePayload(req)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	resp, err := h.Handle(context.Background(), &rpcpool.Envelope{Service: rpcpool.ServiceJournalData, Interface: iface, Payload: payload})
	if err != nil {
		t.Fatalf("Handle(%s): %v", iface, err)
	}
	return resp
}

func TestHandler_WriteRecordThenReadRecords(t *testing.T) {
	store, _ := newHandlerTestStore(t, "orders-0", "node-1")
	h := NewHandler(store, nil)

	for i, v := range []string{"a", "b", "c"} {
		resp := call(t, h, rpcpool.InterfaceWriteRecord, rpcpool.WriteRecordRequest{
			Namespace: "default", ShardName: "orders-0", ProducerID: "producer-1", Value: []byte(v),
		})
		var reply rpcpool.WriteRecordReply
		if err := rpcpool.DecodePayload(resp.Payload, &reply); err != nil {
			t.Fatalf("decode WriteRecordReply: %v", err)
		}
		if reply.Offset != uint64(i) {
			t.Fatalf("WriteRecord %d offset = %d, want %d", i, reply.Offset, i)
		}
	}

	resp := call(t, h, rpcpool.InterfaceReadRecords, rpcpool.ReadRecordsRequest{
		Namespace: "default", ShardName: "orders-0", SegmentSeq: 0, FromOffset: 1,
	})
	var reply rpcpool.ReadRecordsReply
	if err := rpcpool.DecodePayload(resp.Payload, &reply); err != nil {
		t.Fatalf("decode ReadRecordsReply: %v", err)
	}
	if len(reply.Records) != 2 || string(reply.Records[0].Value) != "b" || string(reply.Records[1].Value) != "c" {
		t.Fatalf("Records = %+v, want b,c starting at offset 1", reply.Records)
	}
}

func TestHandler_WriteRecordRejectsNonLeader(t *testing.T) {
	store, _ := newHandlerTestStore(t, "orders-0", "node-2")
	store.nodeID = "node-1" // segment 0 is led by node-2, not by this node
	h := NewHandler(store, nil)

	payload, err := rpcpool.EncodePayload(rpcpool.WriteRecordRequest{Namespace: "default", ShardName: "orders-0", Value: []byte("x")})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	_, err = h.Handle(context.Background(), &rpcpool.Envelope{Service: rpcpool.ServiceJournalData, Interface: rpcpool.InterfaceWriteRecord, Payload: payload})
	if err != ErrNotActiveSegmentLeader {
		t.Fatalf("WriteRecord as non-leader = %v, want ErrNotActiveSegmentLeader", err)
	}
}

func TestHandler_UnsupportedService(t *testing.T) {
	store, _ := newHandlerTestStore(t, "orders-0", "node-1")
	h := NewHandler(store, nil)

	_, err := h.Handle(context.Background(), &rpcpool.Envelope{Service: rpcpool.ServicePlacement, Interface: rpcpool.InterfaceWriteRecord})
	if err == nil {
		t.Fatal("Handle with wrong service = nil error, want error")
	}
}
