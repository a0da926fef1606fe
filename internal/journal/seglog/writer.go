package seglog

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"
	"time"

	"github.com/robustmq/robustmq-go/pkg/crypto/adaptive"
)

const (
	DefaultFilePerm = 0600
	DefaultDirPerm  = 0750

	DefaultBatchCount          = 100
	DefaultBatchBytes    int64 = 1 << 20
	DefaultSyncInterval        = time.Second
)

// SyncMode controls when Writer flushes buffered records to disk.
type SyncMode string

const (
	SyncModeSync  SyncMode = "sync"
	SyncModeBatch SyncMode = "batch"
)

// Config configures a segment log Writer.
type Config struct {
	Path string

	SyncMode     SyncMode
	SyncInterval time.Duration
	BatchCount   int
	BatchBytes   int64

	// Cipher, if set, encrypts every record's Value at rest.
	Cipher adaptive.Cipher
}

// DefaultConfig returns the default Writer configuration for the
// segment file at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		SyncMode:     SyncModeBatch,
		SyncInterval: DefaultSyncInterval,
		BatchCount:   DefaultBatchCount,
		BatchBytes:   DefaultBatchBytes,
	}
}

// Writer appends records to one segment file and seals it exactly
// once. It is safe for concurrent use.
type Writer struct {
	cfg Config

	mu sync.Mutex

	file     *os.File
	fileSize int64
	hash     hash.Hash

	nextOffset uint64

	buffer      [][]byte
	bufferBytes int64

	sealed bool
	closed bool

	syncTicker *time.Ticker
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewWriter opens (or creates) the segment file at cfg.Path for
// appending. The file must not already be sealed.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("seglog: path is required")
	}
	if cfg.SyncMode == "" {
		cfg.SyncMode = SyncModeBatch
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.BatchCount == 0 {
		cfg.BatchCount = DefaultBatchCount
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = DefaultBatchBytes
	}

	w := &Writer{cfg: cfg, hash: sha256.New(), stopCh: make(chan struct{})}

	if _, err := os.Stat(cfg.Path); err == nil {
		if err := w.openExisting(); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := w.openNew(); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("seglog: stat segment: %w", err)
	}

	if w.cfg.SyncMode == SyncModeBatch {
		w.startSyncLoop()
	}

	return w, nil
}

func (w *Writer) openNew() error {
	file, err := os.OpenFile(w.cfg.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("seglog: create segment: %w", err)
	}
	w.file = file
	if _, err := w.writeLocked([]byte(MagicBytes)); err != nil {
		file.Close()
		return err
	}
	return nil
}

func (w *Writer) openExisting() error {
	stat, err := os.Stat(w.cfg.Path)
	if err != nil {
		return fmt.Errorf("seglog: stat segment: %w", err)
	}
	if stat.Size() >= MagicBytesSize+ChecksumSize {
		if sealed, _, _ := verifyTrailer(w.cfg.Path); sealed {
			return fmt.Errorf("seglog: segment %s is already sealed", w.cfg.Path)
		}
	}

	file, err := os.OpenFile(w.cfg.Path, os.O_RDWR, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("seglog: open segment: %w", err)
	}

	r, err := NewReader(w.cfg.Path, w.cfg.Cipher)
	if err != nil {
		file.Close()
		return err
	}
	recs, err := r.ReadAll()
	r.Close()
	if err != nil {
		file.Close()
		return fmt.Errorf("seglog: replay segment: %w", err)
	}
	if n := len(recs); n > 0 {
		w.nextOffset = recs[n-1].Offset + 1
	}

	if _, err := w.hash.Write([]byte(MagicBytes)); err != nil {
		file.Close()
		return err
	}
	buf := make([]byte, stat.Size()-MagicBytesSize)
	if _, err := file.ReadAt(buf, MagicBytesSize); err != nil {
		file.Close()
		return fmt.Errorf("seglog: read existing body: %w", err)
	}
	if _, err := w.hash.Write(buf); err != nil {
		file.Close()
		return err
	}
	w.fileSize = stat.Size()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return fmt.Errorf("seglog: seek: %w", err)
	}

	w.file = file
	return nil
}

// Append buffers one data record, assigning it the next sequential
// offset, and returns that offset. producerID is optional and exists
// for idempotent-append dedup at the caller's discretion. Flushes once
// batch thresholds are crossed.
func (w *Writer) Append(producerID string, key, value []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.sealed {
		return 0, fmt.Errorf("seglog: writer is closed or sealed")
	}

	rec := &Record{Offset: w.nextOffset, Timestamp: time.Now().UnixMilli(), ProducerID: producerID, Key: key, Value: value}
	frame, err := encodeFrame(RecordTypeData, rec, w.cfg.Cipher)
	if err != nil {
		return 0, err
	}

	w.buffer = append(w.buffer, frame)
	w.bufferBytes += int64(len(frame))
	w.nextOffset++

	if len(w.buffer) >= w.cfg.BatchCount || w.bufferBytes >= w.cfg.BatchBytes {
		if err := w.flushLocked(); err != nil {
			return 0, err
		}
	}
	return rec.Offset, nil
}

// Flush writes buffered records to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.buffer) == 0 {
		if w.cfg.SyncMode == SyncModeSync && w.file != nil {
			return w.file.Sync()
		}
		return nil
	}

	var buf bytes.Buffer
	for _, frame := range w.buffer {
		buf.Write(frame)
	}
	if _, err := w.writeLocked(buf.Bytes()); err != nil {
		return fmt.Errorf("seglog: write batch: %w", err)
	}
	w.buffer = nil
	w.bufferBytes = 0

	if w.cfg.SyncMode == SyncModeSync {
		return w.file.Sync()
	}
	return nil
}

func (w *Writer) writeLocked(p []byte) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("seglog: file not open")
	}
	n, err := w.file.Write(p)
	if n > 0 {
		w.hash.Write(p[:n])
		w.fileSize += int64(n)
	}
	return n, err
}

func (w *Writer) startSyncLoop() {
	w.syncTicker = time.NewTicker(w.cfg.SyncInterval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.syncTicker.C:
				_ = w.Flush()
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Seal appends a seal marker, writes the trailer checksum and syncs the
// file; the file stays open until Close. A sealed segment never accepts
// further writes.
func (w *Writer) Seal() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("seglog: writer is closed")
	}
	if w.sealed {
		return nil
	}

	marker := NewSealMarker(w.nextOffset, time.Now().UnixMilli())
	frame, err := encodeFrame(RecordTypeSeal, marker, w.cfg.Cipher)
	if err != nil {
		return err
	}
	w.buffer = append(w.buffer, frame)
	w.bufferBytes += int64(len(frame))
	if err := w.flushLocked(); err != nil {
		return err
	}

	checksum := w.hash.Sum(nil)
	if len(checksum) != ChecksumSize {
		return fmt.Errorf("seglog: invalid sha256 size: %d", len(checksum))
	}
	if _, err := w.file.Write(checksum); err != nil {
		return fmt.Errorf("seglog: write checksum: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("seglog: sync: %w", err)
	}

	w.sealed = true
	return nil
}

// Close stops the background sync loop and closes the file without
// sealing it; an unsealed file can still be reopened for appends by a
// later NewWriter call.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.stopCh)
	w.mu.Unlock()

	if w.syncTicker != nil {
		w.syncTicker.Stop()
	}
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushLocked(); err != nil {
		return err
	}
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

// NextOffset returns the offset the next appended record will receive.
func (w *Writer) NextOffset() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextOffset
}
