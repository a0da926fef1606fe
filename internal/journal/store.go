package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robustmq/robustmq-go/internal/journal/seglog"
	"github.com/robustmq/robustmq-go/pkg/crypto/adaptive"
)

// ErrNotActiveSegmentLeader is returned when a write targets a shard
// whose active segment is unknown, sealed, or not led by this node —
// the write race spec.md calls out: callers must reload shard metadata
// from the placement center and retry after a short backoff.
var ErrNotActiveSegmentLeader = errors.New("journal: not the active segment leader")

// Store is the per-node collaborator the MQTT delivery core's message
// store contract talks to: it routes an append to the shard's current
// active segment's local seglog file and reads records back in store
// offset order, the ordering guarantee spec.md §4.6's exclusive
// delivery pipeline depends on.
type Store struct {
	mu      sync.Mutex
	dataDir string
	cipher  adaptive.Cipher
	cache   *CacheManager
	nodeID  string
	writers map[string]*seglog.Writer // key: segmentFileKey(namespace, shard, segmentSeq)
	roller  *SegmentRoller
	logger  *slog.Logger
}

// NewStore creates a Store rooted at dataDir, where segment files live
// under <dataDir>/<namespace>/<shardName>/<segmentSeq>.seg. cipher may
// be nil to store records unencrypted. logger may be nil to use
// slog.Default().
func NewStore(dataDir, nodeID string, cache *CacheManager, cipher adaptive.Cipher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dataDir: dataDir, nodeID: nodeID, cache: cache, cipher: cipher, writers: make(map[string]*seglog.Writer), logger: logger}
}

// SetRoller attaches the SegmentRoller Append notifies of newly written
// bytes after each successful write, so the journal engine can ask the
// placement center to seal and roll a segment once SealPolicy's
// threshold is crossed. Left nil, Append never rolls segments on its
// own.
func (s *Store) SetRoller(roller *SegmentRoller) {
	s.roller = roller
}

func segmentFileKey(namespace, shardName string, segmentSeq int64) string {
	return fmt.Sprintf("%s/%s/%d", namespace, shardName, segmentSeq)
}

func (s *Store) segmentPath(namespace, shardName string, segmentSeq int64) string {
	return filepath.Join(s.dataDir, namespace, shardName, fmt.Sprintf("%020d.seg", segmentSeq))
}

// Append writes one record to shard's active segment and returns its
// segment-relative offset. It fails with ErrNotActiveSegmentLeader if
// this node does not lead that segment's active replica, or if the
// shard's cached active segment is unknown or already sealed.
func (s *Store) Append(ctx context.Context, namespace, shardName, producerID string, key, value []byte) (uint64, error) {
	seg, ok := s.cache.GetActiveSegment(namespace, shardName)
	if !ok {
		return 0, ErrNotActiveSegmentLeader
	}
	if seg.ReplicaLeader != s.nodeID {
		return 0, ErrNotActiveSegmentLeader
	}

	w, err := s.writerFor(namespace, shardName, seg.SegmentSeq)
	if err != nil {
		return 0, err
	}
	offset, err := w.Append(producerID, key, value)
	if err != nil {
		return 0, err
	}

	if s.roller != nil {
		n := int64(len(key) + len(value))
		if err := s.roller.Observe(ctx, namespace, shardName, n, time.Now()); err != nil {
			s.logger.Error("journal store: segment roll observation failed", "namespace", namespace, "shard", shardName, "error", err)
		}
	}

	return offset, nil
}

func (s *Store) writerFor(namespace, shardName string, segmentSeq int64) (*seglog.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileKey := segmentFileKey(namespace, shardName, segmentSeq)
	if w, ok := s.writers[fileKey]; ok {
		return w, nil
	}

	path := s.segmentPath(namespace, shardName, segmentSeq)
	if err := os.MkdirAll(filepath.Dir(path), seglog.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("journal: create segment dir: %w", err)
	}
	cfg := seglog.DefaultConfig(path)
	cfg.Cipher = s.cipher
	w, err := seglog.NewWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("journal: open segment writer: %w", err)
	}
	s.writers[fileKey] = w
	return w, nil
}

// ReadFrom replays every record in shard's segment segmentSeq starting
// at fromOffset, in store offset order. Records still buffered by this
// node's open writer for that segment are flushed first, so they are
// included.
func (s *Store) ReadFrom(ctx context.Context, namespace, shardName string, segmentSeq int64, fromOffset uint64) ([]*seglog.Record, error) {
	s.mu.Lock()
	w, open := s.writers[segmentFileKey(namespace, shardName, segmentSeq)]
	s.mu.Unlock()
	if open {
		if err := w.Flush(); err != nil {
			return nil, fmt.Errorf("journal: flush segment writer: %w", err)
		}
	}

	r, err := seglog.NewReader(s.segmentPath(namespace, shardName, segmentSeq), s.cipher)
	if err != nil {
		return nil, fmt.Errorf("journal: open segment reader: %w", err)
	}
	defer r.Close()

	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := all[:0:0]
	for _, rec := range all {
		if rec.Offset >= fromOffset {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SealActiveWriter seals and closes the cached writer for a shard's
// segment, if one is open on this node, so a PrepareSealUp->SealUp
// transition observed through the update feed stops accepting local
// writes promptly.
func (s *Store) SealActiveWriter(namespace, shardName string, segmentSeq int64) error {
	s.mu.Lock()
	fileKey := segmentFileKey(namespace, shardName, segmentSeq)
	w, ok := s.writers[fileKey]
	if ok {
		delete(s.writers, fileKey)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := w.Seal(); err != nil {
		return err
	}
	return w.Close()
}

// Close closes every open segment writer without sealing them, so they
// can be reopened and resumed by a later Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for key, w := range s.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.writers, key)
	}
	return firstErr
}
