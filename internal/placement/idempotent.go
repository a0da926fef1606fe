package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robustmq/robustmq-go/internal/storage"
	"github.com/robustmq/robustmq-go/pkg/token"
)

// IdempotentStore tracks producer_id/seq_num pairs already seen for
// exactly-once publish semantics (MQTT QoS 1/2 retries, Mqtt-service
// SetIdempotentData/ExistsIdempotentData/DeleteIdempotentData). It is
// backed by a KVEngine rather than the in-memory CacheManager: dedup
// keys are high-cardinality and short-lived, the opposite access
// pattern from raft-replicated cluster metadata, so a local embedded
// store is the better fit.
type IdempotentStore struct {
	engine storage.KVEngine
}

// NewIdempotentStore wraps engine for idempotent-key bookkeeping.
func NewIdempotentStore(engine storage.KVEngine) *IdempotentStore {
	return &IdempotentStore{engine: engine}
}

func idempotentKey(clusterName, producerID string, seqNum uint64) []byte {
	raw := fmt.Sprintf("%s:%s:%d", clusterName, producerID, seqNum)
	return []byte("idempotent/" + token.HashBytes([]byte(raw)))
}

// Set records that (producerID, seqNum) has been processed.
func (s *IdempotentStore) Set(ctx context.Context, clusterName, producerID string, seqNum uint64) error {
	value := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := s.engine.Set(ctx, idempotentKey(clusterName, producerID, seqNum), value); err != nil {
		return fmt.Errorf("set idempotent data: %w", err)
	}
	return nil
}

// Exists reports whether (producerID, seqNum) has already been recorded.
func (s *IdempotentStore) Exists(ctx context.Context, clusterName, producerID string, seqNum uint64) (bool, error) {
	_, err := s.engine.Get(ctx, idempotentKey(clusterName, producerID, seqNum))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get idempotent data: %w", err)
	}
	return true, nil
}

// Delete forgets (producerID, seqNum), e.g. once a retry window expires.
func (s *IdempotentStore) Delete(ctx context.Context, clusterName, producerID string, seqNum uint64) error {
	if err := s.engine.Delete(ctx, idempotentKey(clusterName, producerID, seqNum)); err != nil {
		return fmt.Errorf("delete idempotent data: %w", err)
	}
	return nil
}
