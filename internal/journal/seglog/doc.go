// Package seglog implements the append-only record log backing one
// journal segment.
//
// Unlike internal/storage/wal, where rotation across many files is the
// writer's own job, a seglog file corresponds 1:1 with one journal
// segment: rotation across segments is the placement center's and the
// journal engine's own state-machine decision (Idle -> Write ->
// PrepareSealUp -> SealUp), not something the log writer decides for
// itself. A seglog file is sealed exactly once, by appending a seal
// marker record and finalizing the trailer checksum; after that it
// never accepts further writes.
//
// Format:
//
//	[magic:8 "RBMQSEG\x01"]
//	[Record]*
//	[checksum:32 SHA-256 of all bytes above] (written once, at seal time)
//
// Record wire format:
//
//	[Length:4][CRC32:4][Type:1][Payload:Length-5]
//
// Where Payload is JSON holding the record's offset, timestamp, key and
// value.
package seglog
