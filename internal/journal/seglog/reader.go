package seglog

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/robustmq/robustmq-go/pkg/crypto/adaptive"
)

var (
	errInvalidMagic     = errors.New("seglog: invalid magic bytes")
	errChecksumInvalid  = errors.New("seglog: checksum mismatch")
	ErrNotSealed        = errors.New("seglog: segment is not sealed")
)

// Reader replays records from one segment file in order, starting
// from its magic header.
type Reader struct {
	file    *os.File
	dataLen int64
	reader  *bufio.Reader
	cipher  adaptive.Cipher
}

// NewReader opens path for sequential replay. The segment need not be
// sealed; an open (unsealed) segment is read up to its current size.
// cipher must match whatever Config.Cipher the segment was written
// with, or be nil if the segment was written unencrypted.
func NewReader(path string, cipher adaptive.Cipher) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seglog: open segment: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seglog: stat segment: %w", err)
	}
	if stat.Size() < MagicBytesSize {
		file.Close()
		return nil, errInvalidMagic
	}

	sealed, dataLen, err := verifyTrailerFile(file, stat.Size())
	if err != nil && !errors.Is(err, errInvalidMagic) {
		file.Close()
		return nil, err
	}
	limit := stat.Size()
	if sealed {
		limit = dataLen
	}

	sr := io.NewSectionReader(file, MagicBytesSize, limit-MagicBytesSize)
	return &Reader{file: file, dataLen: limit, reader: bufio.NewReader(sr), cipher: cipher}, nil
}

// Read returns the next record (skipping the seal marker, if any) or
// io.EOF once the segment is exhausted.
func (r *Reader) Read() (*Record, error) {
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r.reader, lenBuf[:]); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}

		length := binary.BigEndian.Uint32(lenBuf[:])
		if length < 5 {
			return nil, ErrCorruptedRecord
		}

		frame := make([]byte, length)
		if _, err := io.ReadFull(r.reader, frame); err != nil {
			return nil, err
		}

		rt, rec, err := decodeFrame(frame, r.cipher)
		if err != nil {
			return nil, err
		}
		if rt == RecordTypeSeal {
			continue
		}
		return rec, nil
	}
}

// ReadAll replays every data record in the segment.
func (r *Reader) ReadAll() ([]*Record, error) {
	var out []*Record
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		out = append(out, rec)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// IsSealed reports whether path carries a valid trailer checksum.
func IsSealed(path string) (bool, error) {
	sealed, _, err := verifyTrailer(path)
	return sealed, err
}

func verifyTrailer(path string) (sealed bool, dataLen int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, 0, err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return false, 0, err
	}
	return verifyTrailerFile(f, stat.Size())
}

func verifyTrailerFile(f *os.File, size int64) (sealed bool, dataLen int64, err error) {
	if size < MagicBytesSize {
		return false, size, nil
	}

	magic := make([]byte, MagicBytesSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, MagicBytesSize), magic); err != nil {
		return false, 0, fmt.Errorf("seglog: read magic: %w", err)
	}
	if string(magic) != MagicBytes {
		return false, 0, errInvalidMagic
	}

	if size < MagicBytesSize+ChecksumSize {
		return false, size, nil
	}

	trailer := make([]byte, ChecksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, size-ChecksumSize, ChecksumSize), trailer); err != nil {
		return false, 0, fmt.Errorf("seglog: read checksum trailer: %w", err)
	}

	h := sha256.New()
	dataLen = size - ChecksumSize
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, dataLen), dataLen); err != nil {
		return false, 0, fmt.Errorf("seglog: hash: %w", err)
	}
	if !bytes.Equal(h.Sum(nil), trailer) {
		return false, size, nil
	}
	return true, dataLen, nil
}
