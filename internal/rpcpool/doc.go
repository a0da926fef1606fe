// Package rpcpool is the client side of placement center RPC.
//
// The placement center exposes five logical services (kv, placement,
// journal, mqtt, openraft) but this tree ships no generated protobuf
// stubs, so every interface travels over one connect procedure keyed by
// (Service, Interface):
//
//   - classify.go: Service/Interface enums and the forward-set
//   - messages.go: request/response payload structs per interface
//   - codec.go: a JSON connect.Codec standing in for protobuf framing
//   - transport.go: connect client/handler construction for the shared
//     Call procedure
//   - pool.go: per-address client cache plus the leader-redirect cache
//   - dispatch.go: the retry loop — round robin over configured
//     addresses unless a leader redirect is cached, follow forwardable
//     errors immediately, back off and retry on any other error
package rpcpool
