package rpcpool

import "encoding/json"

// jsonCodec implements connect.Codec over encoding/json. The placement
// center's RPC surface has no generated protobuf stubs in this tree, so
// Envelope travels as JSON instead of binary protobuf; connect's framing,
// compression and interceptor chain work identically either way.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
