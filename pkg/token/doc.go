// Package token provides token generation and validation utilities.
//
// This package implements cryptographically secure random token
// generation and SHA-256-based hashing, used by the placement center
// for idempotency keys and other one-time identifiers that don't need
// a structured format.
//
// Token Format:
//
//   - DefaultLength bytes (32) of CSPRNG output, Base64 RawURL encoded
//   - No fixed prefix: callers that need a namespaced key compose their
//     own (e.g. "idempotent/" + token.HashBytes(raw))
//
// Token Hash Format:
//
//   - 64 characters of hex-encoded SHA-256 hash
//
// Security:
//
//   - Uses crypto/rand for CSPRNG
//   - SHA-256 hashing with constant-time comparison
//   - Tokens are never stored, only hashes
package token
