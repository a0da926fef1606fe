package rpcpool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
)

func TestCallRoundTrip(t *testing.T) {
	procedure, handler := NewCallHandler(func(ctx context.Context, req *Envelope) (*Envelope, error) {
		var r GetRequest
		if err := DecodePayload(req.Payload, &r); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		payload, err := EncodePayload(GetReply{Value: []byte("value-for-" + r.Key)})
		if err != nil {
			return nil, err
		}
		return &Envelope{Service: req.Service, Interface: req.Interface, Payload: payload}, nil
	})

	mux := http.NewServeMux()
	mux.Handle(procedure, handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewCallClient(srv.Client(), srv.Listener.Addr().String(), nil)

	reqPayload, err := EncodePayload(GetRequest{Key: "k1"})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&Envelope{
		Service:   ServiceKv,
		Interface: InterfaceGet,
		Payload:   reqPayload,
	}))
	if err != nil {
		t.Fatalf("CallUnary: %v", err)
	}

	var reply GetReply
	if err := DecodePayload(resp.Msg.Payload, &reply); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if string(reply.Value) != "value-for-k1" {
		t.Errorf("got %q, want %q", reply.Value, "value-for-k1")
	}
}

func TestCallRoundTrip_HandlerError(t *testing.T) {
	procedure, handler := NewCallHandler(func(ctx context.Context, req *Envelope) (*Envelope, error) {
		return nil, connect.NewError(connect.CodeUnavailable, errNotLeaderForTest())
	})

	mux := http.NewServeMux()
	mux.Handle(procedure, handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewCallClient(srv.Client(), srv.Listener.Addr().String(), nil)
	_, err := client.CallUnary(context.Background(), connect.NewRequest(&Envelope{
		Service:   ServicePlacement,
		Interface: InterfaceHeartbeat,
	}))
	if err == nil {
		t.Fatal("expected error")
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

func errNotLeaderForTest() error {
	return testErr("has to forward request to: Some(2), Some(Node { node_id: 2, rpc_addr: \"127.0.0.1:2228\" })")
}
