// Package adaptive provides adaptive encryption for RobustMQ.
//
// This package implements a cipher abstraction that automatically
// selects the best available encryption algorithm based on hardware
// capabilities and security requirements.
//
// Supported Algorithms:
//
//   - AES-256-GCM: Preferred when hardware AES support is available
//   - ChaCha20-Poly1305: Fallback for systems without AES-NI
//
// Features:
//
//   - Algorithm Selection: New picks AES-GCM on amd64 and arm64 and
//     ChaCha20-Poly1305 elsewhere, by GOARCH; CPU features are not probed
//   - AEAD: Authenticated encryption with associated data
//   - Keys: callers pass raw key bytes; no key derivation from passwords
//   - Thread Safety: All cipher operations are thread-safe
//
// Usage:
//
//	cipher, err := adaptive.New(key)
//	encrypted, err := cipher.Encrypt(plaintext, aad)
//	plaintext, err := cipher.Decrypt(encrypted, aad)
//
// @adr AD-0201
package adaptive
