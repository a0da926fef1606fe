// Package storage provides the embedded key-value store used by RobustMQ.
//
// It defines the KVEngine interface (kv.go) and its one implementation,
// BadgerEngine (badger.go): a Badger-backed store with periodic value-log
// GC, snapshot save/load and optional Prometheus metrics.
//
// The package has no in-memory session store, no write-ahead log of its
// own and no encryption layer.
//
// @req RQ-0101
// @design DS-0102
package storage
