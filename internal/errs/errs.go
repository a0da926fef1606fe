// Package errs defines the error kinds shared across the placement,
// journal and mqtt packages, following §7 of the design: transport and
// forwardable errors are retried, decode errors are logged and dropped,
// and fatal errors abort the process.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purpose of retry/propagation policy.
type Kind string

const (
	// KindTransport covers RPC connect/timeout failures. Retry with backoff.
	KindTransport Kind = "transport"

	// KindForwardable covers a Raft non-leader reply. The caller extracts
	// the leader address and retries immediately.
	KindForwardable Kind = "forwardable"

	// KindDecode covers a malformed payload or packet. Log with the
	// offending bytes; drop or commit past, never poison the cache.
	KindDecode Kind = "decode"

	// KindNotActiveSegmentLeader covers a journal write race: the caller
	// reloads shard metadata, sleeps briefly, and retries.
	KindNotActiveSegmentLeader Kind = "not_active_segment_leader"

	// KindSessionExpired covers a session that has aged out. Drop the
	// ack-wait entry and exit the push thread for that client.
	KindSessionExpired Kind = "session_expired"

	// KindNoConnection covers a client with no live connection. Same
	// propagation as KindSessionExpired.
	KindNoConnection Kind = "no_connection"

	// KindFatal covers startup failures (KV open, initial catalog load)
	// that leave the process in no valid state to continue.
	KindFatal Kind = "fatal"
)

// DomainError is a structured error carrying a Kind, a code, a message and
// an optional cause, so callers can errors.Is/errors.As them across package
// boundaries instead of matching on error strings.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Details string
	Cause   error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Kind, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is compares two DomainErrors by code, so errors.Is matches sentinels
// regardless of attached details or cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a DomainError of the given kind and code.
func New(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// WithDetails returns a copy of the error with additional details attached.
func (e *DomainError) WithDetails(details string) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Is reports whether err is a DomainError of the given kind.
func Is(err error, kind Kind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from an error, or "" if it is not a DomainError.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Sentinel errors for the conditions named in §7. Package code should wrap
// these with WithCause/WithDetails rather than constructing ad hoc errors,
// so that upstream retry logic can classify failures with errors.Is.
var (
	ErrTransportUnavailable = New(KindTransport, "RQ-TRANSPORT-001", "rpc transport unavailable")
	ErrNotLeader            = New(KindForwardable, "RQ-FORWARD-001", "not the raft leader")
	ErrDecodeFailed         = New(KindDecode, "RQ-DECODE-001", "malformed payload")
	ErrNotActiveSegmentLeader = New(KindNotActiveSegmentLeader, "RQ-JOURNAL-001", "not the active segment leader")
	ErrSessionExpired       = New(KindSessionExpired, "RQ-MQTT-001", "session expired")
	ErrNoConnection         = New(KindNoConnection, "RQ-MQTT-002", "client has no live connection")
	ErrFatalStartup         = New(KindFatal, "RQ-FATAL-001", "fatal startup error")
)
