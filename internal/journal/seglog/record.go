package seglog

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/robustmq/robustmq-go/pkg/crypto/adaptive"
)

// File format constants.
const (
	MagicBytes     = "RBMQSEG\x01"
	MagicBytesSize = 8
	ChecksumSize   = 32

	headerSize   = 8
	minFrameSize = headerSize + 1
)

var (
	ErrCorruptedRecord   = errors.New("seglog: corrupted record")
	ErrChecksumMismatch  = errors.New("seglog: checksum mismatch")
	ErrInvalidRecordType = errors.New("seglog: invalid record type")
)

// RecordType distinguishes ordinary data records from the seal marker
// that ends a segment.
type RecordType uint8

const (
	RecordTypeUnspecified RecordType = iota
	RecordTypeData
	RecordTypeSeal
)

// Record is one entry appended to a journal segment's log. Offset is
// the segment-relative, monotonically increasing sequence number a
// consumer resumes reading from; ProducerID identifies the writer for
// idempotent-append dedup, Key is optional (e.g. an MQTT topic or
// partition key), and Value is the opaque message payload.
type Record struct {
	Offset     uint64
	Timestamp  int64
	ProducerID string
	Key        []byte
	Value      []byte
}

// NewSealMarker builds the record written once, as the last record in
// a segment, to mark it sealed.
func NewSealMarker(offset uint64, timestamp int64) *Record {
	return &Record{Offset: offset, Timestamp: timestamp}
}

type wireRecord struct {
	Offset     uint64 `json:"offset"`
	Timestamp  int64  `json:"ts"`
	ProducerID string `json:"producer_id,omitempty"`
	Key        []byte `json:"key,omitempty"`

	Value []byte `json:"value,omitempty"`

	// EncryptedValue is base64 of adaptive.Cipher.Encrypt(Value).
	EncryptedValue string `json:"enc_value,omitempty"`
}

func encodeFrame(rt RecordType, rec *Record, cipher adaptive.Cipher) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("seglog: record is nil")
	}
	if rt == RecordTypeUnspecified {
		return nil, ErrInvalidRecordType
	}

	w := wireRecord{
		Offset:     rec.Offset,
		Timestamp:  rec.Timestamp,
		ProducerID: rec.ProducerID,
		Key:        rec.Key,
	}

	if rt == RecordTypeData {
		if cipher == nil {
			w.Value = rec.Value
		} else {
			encrypted, err := cipher.Encrypt(rec.Value, nil)
			if err != nil {
				return nil, fmt.Errorf("seglog: encrypt value: %w", err)
			}
			w.EncryptedValue = base64.StdEncoding.EncodeToString(encrypted)
		}
	}

	payload, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("seglog: marshal record: %w", err)
	}

	typeByte := []byte{byte(rt)}
	crc := crc32.ChecksumIEEE(append(typeByte, payload...))

	length := uint32(4 + 1 + len(payload))
	if length < 5 {
		return nil, ErrCorruptedRecord
	}

	out := make([]byte, 0, 4+int(length))
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], length)
	out = append(out, header[:]...)

	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	out = append(out, crcBuf[:]...)

	out = append(out, typeByte...)
	out = append(out, payload...)
	return out, nil
}

// decodeFrame decodes a frame body (everything after the 4-byte length
// prefix already consumed by the caller).
func decodeFrame(frame []byte, cipher adaptive.Cipher) (RecordType, *Record, error) {
	if len(frame) < 5 {
		return RecordTypeUnspecified, nil, ErrCorruptedRecord
	}

	wantCRC := binary.BigEndian.Uint32(frame[:4])
	typeByte := frame[4]
	payload := frame[5:]

	gotCRC := crc32.ChecksumIEEE(append([]byte{typeByte}, payload...))
	if gotCRC != wantCRC {
		return RecordTypeUnspecified, nil, ErrChecksumMismatch
	}

	rt := RecordType(typeByte)
	switch rt {
	case RecordTypeData, RecordTypeSeal:
	default:
		return RecordTypeUnspecified, nil, ErrInvalidRecordType
	}

	var w wireRecord
	if err := json.Unmarshal(payload, &w); err != nil {
		return RecordTypeUnspecified, nil, fmt.Errorf("seglog: unmarshal record: %w", err)
	}

	rec := &Record{Offset: w.Offset, Timestamp: w.Timestamp, ProducerID: w.ProducerID, Key: w.Key}
	if rt != RecordTypeData {
		return rt, rec, nil
	}

	if w.Value != nil || w.EncryptedValue == "" {
		rec.Value = w.Value
		return rt, rec, nil
	}

	if cipher == nil {
		return RecordTypeUnspecified, nil, fmt.Errorf("seglog: encrypted record requires cipher")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(w.EncryptedValue)
	if err != nil {
		return RecordTypeUnspecified, nil, fmt.Errorf("seglog: decode encrypted value: %w", err)
	}
	plain, err := cipher.Decrypt(ciphertext, nil)
	if err != nil {
		return RecordTypeUnspecified, nil, fmt.Errorf("seglog: decrypt value: %w", err)
	}
	rec.Value = plain
	return rt, rec, nil
}
