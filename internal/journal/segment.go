package journal

import (
	"context"
	"time"

	"github.com/robustmq/robustmq-go/internal/placement"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

// SealPolicy bounds how large or how old an active segment may grow
// before the journal engine requests it be sealed. Sealing thresholds
// are not fixed by the system this implements; each deployment exposes
// these as configuration, per spec.md's open sealing-policy question.
type SealPolicy struct {
	MaxSegmentBytes int64
	MaxSegmentAge   time.Duration
}

// DefaultSealPolicy returns conservative defaults: 128 MiB or 1 hour,
// whichever comes first.
func DefaultSealPolicy() SealPolicy {
	return SealPolicy{MaxSegmentBytes: 128 << 20, MaxSegmentAge: time.Hour}
}

// ShouldSeal reports whether a segment written writtenBytes bytes since
// openedAt has crossed policy's threshold.
func (p SealPolicy) ShouldSeal(writtenBytes int64, openedAt time.Time, now time.Time) bool {
	if p.MaxSegmentBytes > 0 && writtenBytes >= p.MaxSegmentBytes {
		return true
	}
	if p.MaxSegmentAge > 0 && now.Sub(openedAt) >= p.MaxSegmentAge {
		return true
	}
	return false
}

// SegmentRoller watches one shard's active segment and requests the
// placement center seal it and cut a new one once SealPolicy's
// threshold is crossed. Transitions are driven by PC commands
// replicated via consensus and broadcast back to JE caches (spec.md
// §4.4); this type only decides *when* to ask, never mutates segment
// status locally — that stays exclusively invariant I2's monotonic
// Idle->Write->PrepareSealUp->SealUp path inside the placement center's
// FSM.
type SegmentRoller struct {
	dispatcher *rpcpool.Dispatcher
	addrs      func() []string
	policy     SealPolicy

	openedAt     map[string]time.Time
	writtenBytes map[string]int64
}

// NewSegmentRoller builds a roller that calls the placement center
// through dispatcher, using addrs() to resolve its current set of RPC
// addresses on every call (so a refreshed membership list is picked up
// without re-wiring the roller).
func NewSegmentRoller(dispatcher *rpcpool.Dispatcher, addrs func() []string, policy SealPolicy) *SegmentRoller {
	return &SegmentRoller{
		dispatcher:   dispatcher,
		addrs:        addrs,
		policy:       policy,
		openedAt:     make(map[string]time.Time),
		writtenBytes: make(map[string]int64),
	}
}

// Observe records that n bytes were appended to a shard's active
// segment at observedAt, and seals+rolls the segment if policy's
// threshold has now been crossed.
func (r *SegmentRoller) Observe(ctx context.Context, namespace, shardName string, n int64, observedAt time.Time) error {
	key := shardKey(namespace, shardName)
	if _, ok := r.openedAt[key]; !ok {
		r.openedAt[key] = observedAt
	}
	r.writtenBytes[key] += n

	if !r.policy.ShouldSeal(r.writtenBytes[key], r.openedAt[key], observedAt) {
		return nil
	}
	if err := r.rollSegment(ctx, namespace, shardName); err != nil {
		return err
	}
	delete(r.openedAt, key)
	delete(r.writtenBytes, key)
	return nil
}

func (r *SegmentRoller) rollSegment(ctx context.Context, namespace, shardName string) error {
	req, err := rpcpool.EncodePayload(rpcpool.CreateSegmentRequest{Namespace: namespace, ShardName: shardName})
	if err != nil {
		return err
	}
	_, err = r.dispatcher.Call(ctx, rpcpool.ServiceJournal, rpcpool.InterfaceCreateSegment, r.addrs(), &rpcpool.Envelope{
		Service:   rpcpool.ServiceJournal,
		Interface: rpcpool.InterfaceCreateSegment,
		Payload:   req,
	})
	return err
}

// IsWritable reports whether status allows new records to be appended.
func IsWritable(status placement.SegmentStatus) bool {
	return status == placement.SegmentStatusWrite
}
